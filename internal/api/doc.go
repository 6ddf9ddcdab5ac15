// Package api implements the sync server's HTTP layer.
//
// The surface is deliberately small: three public account endpoints
// that issue token pairs, and four authenticated endpoints per record
// collection (fetch, batch upload, delete, count). Handlers validate
// and translate; all merge and persistence rules live in the store
// implementations.
package api
