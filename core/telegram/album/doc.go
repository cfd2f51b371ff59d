// Package album coalesces Telegram media groups into a single delivery.
// Telegram sends every item of an album as its own update tagged with the same
// media_group_id; the engine lets the first arrival wait for a short debounce
// window, collects followers and hands the whole bundle downstream exactly once.
package album
