// Package types defines the Go types shared by every stage of a collection
// cycle: the source-specific domain records produced by the source clients
// and the uniform Sample handed to the encoder.
//
// Records are created fresh each cycle and never persisted. The metric name
// set is closed; see MetricNames.
package types
