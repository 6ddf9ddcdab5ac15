// Package engine is the embeddable heart of wordvault. One Engine owns
// every piece of learner state: lookup history, flashcard progress, the
// immersive review queue, the blacklist and the sync session. Callers
// mutate through its operations and observe through copies; the engine
// handles durability, backup and cloud sync behind the scenes.
//
// Mutations land in memory first and reach the local store through a
// write coalescer, so a burst of lookups costs one write. Cloud sync
// runs on its own goroutine, debounced behind local persistence and
// optionally on a fixed schedule. Nothing the caller invokes blocks on
// the network.
package engine
