// Package store defines persistence interfaces and shared error types
// for the data access layer. Concrete implementations live under
// internal/platform.
package store
