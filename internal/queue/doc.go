// Package queue defines the task queue abstraction used to hand work
// between the producer tier and the background workers, along with the
// wire payload types for each task kind. Delivery is at-least-once:
// duplicate deliveries are possible after a crash and consumers must
// tolerate them.
package queue
