package shared

// ContextKey is the key type for values this package stores in request
// contexts. A named type keeps our keys from colliding with other
// packages' string keys.
type ContextKey string

// UserIDContextKey is the context key under which the authentication
// middleware stores the verified user ID.
const UserIDContextKey ContextKey = "userID"
