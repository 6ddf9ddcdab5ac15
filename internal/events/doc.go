// Package events carries engine notifications to interested UI
// collaborators without coupling the engine to them.
//
// The engine emits events (a word crossed its second lookup, a sync
// pass made progress) through an Emitter; consumers register Handlers
// and react. Payloads travel as JSON so the event type stays a single
// struct and consumers decode only the events they care about.
package events
