package database

import "github.com/shelfmark/shelfmark/internal/errors"

// errMissingContext is returned when a repository is used without an open database.
var errMissingContext = errors.Internal("user status repository: missing database context")
