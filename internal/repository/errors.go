// Package repository provides SQL data access for the POS schema.
// Repositories are thin structs over *sql.DB (or *sql.Tx for the
// transactional paths); they own the SQL text and the row scanning, and
// nothing else. Sentinel errors defined here let callers branch without
// string matching.
package repository

import "errors"

// ErrUsernameExists is returned when creating a user with a username
// that is already taken.
var ErrUsernameExists = errors.New("username already exists")

// ErrItemNotFound is returned when a referenced item does not exist or
// is inactive.
var ErrItemNotFound = errors.New("item not found")
