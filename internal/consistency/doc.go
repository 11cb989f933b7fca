// Package consistency checks whether baseline indicators drift abnormally
// across consecutive segments of one run.
package consistency
