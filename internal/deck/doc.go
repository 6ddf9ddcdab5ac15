// Package deck assembles practice decks from the learner's word pool.
// A deck mixes words that have never been practiced with words whose
// review is due, in a configurable ratio, drawn without replacement.
package deck
