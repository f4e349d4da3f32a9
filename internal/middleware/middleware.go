// Package middleware holds the echo middleware wrapped around the cart API.
package middleware

// contextKey is a private type for context keys to avoid collisions
type contextKey string
