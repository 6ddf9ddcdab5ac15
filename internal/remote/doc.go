// Package remote is the device's gateway to the sync server. It
// defines the wire record shape and the Gateway interface the sync
// coordinator talks to, an HTTP implementation of both the sync and
// auth endpoints, and a session holder that tracks the current login.
//
// Every sync call requires a session; calls without one fail fast with
// ErrNotAuthenticated before any network traffic. Token expiry is read
// from the JWT itself (unverified client-side; the server remains the
// authority), so authentication state is known without a round trip.
package remote
