// Package policy folds a segment's per-variant indicator vectors into a
// single rules-based deferral decision.
package policy
