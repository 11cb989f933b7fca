// Package metrics defines the Prometheus instrumentation for the harness:
// segment evaluations, perturbation outcomes and run-level consistency.
package metrics
