// Package sinks stores downloaded input files. LocalSink writes them to a
// directory; S3Sink uploads them to a bucket and returns a time-limited
// link.
package sinks
