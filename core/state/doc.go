// Package state provides the per-user session store used by conversations.
// It is transport-agnostic: sessions hold a stack of conversation frames and
// a bag of temporary values, keyed by user ID.
package state
