// package auth implements the Spotify authorization-code-with-PKCE login flow:
// verifier/challenge generation, authorization URL construction, code exchange
// against the trusted backend, and durable session persistence.
//
// The raw verifier is never sent to the provider directly; only its SHA-256
// challenge appears in the authorization request, and the verifier itself goes
// to the trusted exchange backend exactly once.
package auth
