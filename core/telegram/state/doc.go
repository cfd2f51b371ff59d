// Package state provides a lightweight per-user session table for Telegram bots.
// It is intentionally domain-agnostic so it can be reused across bots: the
// session type is a type parameter and mutations of one user's session are
// serialized without blocking other users.
package state
