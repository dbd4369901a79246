// Package todo keeps the per-category to-do lists in sync with the backend.
//
// A Coordinator fetches lists, resets the daily default tasks once per
// morning and applies user mutations optimistically. A Store holds what the
// lists look like right now; a Listener feeds it push snapshots and a Trigger
// re-runs the sync periodically. A Session wires those together for one
// long-lived view and tears them down again.
package todo
