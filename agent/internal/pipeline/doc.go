// Package pipeline runs one collection cycle: fetch every source
// concurrently, map the successful ones to samples, encode the batch and
// push it.
//
// An Orchestrator moves through Idle → Collecting → Mapping → Pushing →
// Done and always ends with a Report whose Outcome is Success,
// PartialSuccess or Failure. Source failures are isolated: each fetch
// writes only its own SourceResult, and the cycle continues with the
// sources that succeeded. When every source fails nothing is pushed.
//
// The whole cycle runs under cfg.CycleTimeout. If it expires, in-flight
// fetches and the push are cancelled and whatever was collected is
// discarded, so a pushed batch always describes a single point in time.
package pipeline
