// Package snapshot persists and restores run state between processes.
//
// A snapshot is a single gob file holding the clearing organizer's phase
// and quote set, resting continuous-auction orders, and the publisher
// sequence. Writes are atomic via rename; loading a missing file yields a
// fresh run rather than an error.
package snapshot
