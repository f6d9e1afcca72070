// Package relay provides an unbounded single-producer/single-consumer queue.
//
// The relay decouples producer timing from consumer timing: pushes never
// block, and backlog queues rather than drops when the consumer falls behind.
// It backs the engine message pump (tick production is decoupled from tick
// consumption) and per-frame delivery (handler completions are marshaled onto
// the goroutine that owns the script context).
//
// A channel is not a drop-in replacement here: channels are bounded, and a
// full channel would block the producer on the host's scheduling path.
package relay
