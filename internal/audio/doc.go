// Package audio provides the sample buffer model, WAV codec, ingestion
// (decode, downmix, resample) and segment windowing for the harness.
package audio
