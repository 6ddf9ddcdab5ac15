// Package coalescer batches record writes behind short debounce
// windows so that bursts of mutations to the same word collapse into a
// single flush. Two independent windows run over one dirty-key
// mechanism: a local window driving durable store writes and a cloud
// window driving outbound sync marks.
//
// Marking a key (re)arms its deadline; a recurring ticker per window
// flushes every key whose deadline has passed. Flush handlers receive
// only the key and are expected to read the record's current state, so
// the last mutation before the flush wins and intermediate states are
// never written. Keys are sharded to a small pool of workers by FNV
// hash, which serializes flushes of the same key while letting
// distinct keys flush concurrently.
package coalescer
