package perturb

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ostapenco/audio-stress-harness/internal/audio"
)

// apply runs the segment through a real encoder and back: WAV out, ffmpeg
// encode at the configured format/bitrate, ffmpeg decode to mono PCM at the
// original rate. Unlike the codec stub this picks up genuine codec artifacts.
func (p RealCodecParams) apply(buf *audio.Buffer, _ int64) (*audio.Buffer, error) {
	binary := p.FFmpegBinary
	if binary == "" {
		binary = "ffmpeg"
	}
	format := p.Format
	if format == "" {
		format = "mp3"
	}
	bitrate := p.BitrateKbps
	if bitrate <= 0 {
		bitrate = 64
	}

	dir, err := os.MkdirTemp("", "realcodec-")
	if err != nil {
		return nil, fmt.Errorf("real codec: failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	srcPath := filepath.Join(dir, "src.wav")
	encPath := filepath.Join(dir, "enc."+format)
	decPath := filepath.Join(dir, "dec.wav")

	wav, err := audio.EncodeWAV(buf.Samples, buf.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("real codec: failed to encode source WAV: %w", err)
	}
	if err := os.WriteFile(srcPath, wav, 0o644); err != nil {
		return nil, fmt.Errorf("real codec: failed to write source WAV: %w", err)
	}

	encodeArgs := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", srcPath,
		"-b:a", fmt.Sprintf("%dk", bitrate),
		encPath,
	}
	if err := runFFmpeg(binary, encodeArgs); err != nil {
		return nil, fmt.Errorf("real codec encode: %w", err)
	}

	decodeArgs := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", encPath,
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", buf.SampleRate),
		"-c:a", "pcm_s16le",
		// Keeps ffmpeg from writing a LIST metadata chunk the WAV reader
		// does not expect.
		"-bitexact",
		decPath,
	}
	if err := runFFmpeg(binary, decodeArgs); err != nil {
		return nil, fmt.Errorf("real codec decode: %w", err)
	}

	data, err := os.ReadFile(decPath)
	if err != nil {
		return nil, fmt.Errorf("real codec: failed to read decoded WAV: %w", err)
	}

	interleaved, channels, _, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("real codec: failed to decode round-trip WAV: %w", err)
	}

	mono, err := audio.Downmix(interleaved, channels)
	if err != nil {
		return nil, fmt.Errorf("real codec: failed to downmix round-trip WAV: %w", err)
	}

	// Codecs add priming/padding samples; pin back to the nominal length.
	return &audio.Buffer{
		Samples:    fitLength(mono, len(buf.Samples)),
		SampleRate: buf.SampleRate,
	}, nil
}

func runFFmpeg(binary string, args []string) error {
	cmd := exec.Command(binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", binary, err, strings.TrimSpace(string(output)))
	}
	return nil
}
