// package player wraps a provider playback client behind the [Client]
// capability contract and reconciles its event stream into a single coherent
// playback session.
//
// The event stream is the only source of truth for transport state; HTTP
// control calls report pass/fail for the operation but never mutate the
// session directly.
package player
