package domain

import "time"

// Session is the device's authenticated link to the sync server: the
// account email, the bearer token, and the token's expiry parsed from
// the token itself. DeviceID is generated once per installation and
// accompanies uploads so the server can tell devices apart.
type Session struct {
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	DeviceID  string    `json:"device_id"`
	ExpiresAt time.Time `json:"expires_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// RefreshToken lets the device obtain a fresh access token without
	// re-entering credentials. Empty when the server issued none.
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Expired reports whether the session's token is unusable at the given
// instant. A zero ExpiresAt means the token carried no expiry claim and
// is trusted until the server rejects it.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// DeckSession is a practice deck in progress: the drawn words in order
// and how far the learner has gotten. Persisting it lets a half-finished
// deck resume after a restart instead of being reshuffled away.
type DeckSession struct {
	Words     []string  `json:"words"`
	Position  int       `json:"position"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Remaining returns the words not yet studied in this session.
func (d *DeckSession) Remaining() []string {
	if d.Position >= len(d.Words) {
		return nil
	}
	return d.Words[d.Position:]
}

// Done reports whether every word in the deck has been studied.
func (d *DeckSession) Done() bool {
	return d.Position >= len(d.Words)
}

// BlacklistEntry marks a word the learner never wants tracked: lookups
// are not recorded and decks never contain it.
type BlacklistEntry struct {
	Word    string    `json:"word"`
	AddedAt time.Time `json:"added_at"`
}
