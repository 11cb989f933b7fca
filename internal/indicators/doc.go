// Package indicators computes the spectral and temporal acoustic indicators
// whose movement under perturbation the fragility policy scores.
package indicators
