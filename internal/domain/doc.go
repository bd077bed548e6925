// Package domain contains the core entities of the audio-note
// pipeline and the rules that govern them, independent of storage,
// transport, or external services.
package domain
