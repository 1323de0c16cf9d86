// Package queue implements bounded wait-free ring buffers used as the
// message-passing spine between worker threads.
//
// Two shapes are provided: SPSC (one producer, one consumer) and MPSC
// (many producers, one consumer). Both require a power-of-two capacity,
// never allocate after construction, and keep the producer and consumer
// indexes on separate cache lines so the two sides do not false-share.
//
// Size and Empty race with concurrent operations and are advisory only.
package queue
