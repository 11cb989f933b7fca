// Package batch orchestrates segment evaluation: perturbation fan-out,
// indicator extraction, decision folding and the serial/parallel run modes.
package batch
