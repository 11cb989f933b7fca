// Package perturb implements the deterministic perturbation registry: a
// closed set of seeded, same-length audio transforms used to stress segments.
package perturb
