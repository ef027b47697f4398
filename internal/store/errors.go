package store

import "errors"

// ErrNotFound is returned when a lookup by id finds no row in scope for the
// operating tenant.
var ErrNotFound = errors.New("store: not found")

// ErrTerminalStatus is returned when a status transition would move a
// message out of a terminal status.
var ErrTerminalStatus = errors.New("store: message is already in a terminal status")
