package crawl

import "errors"

// ErrNotFound indicates the session does not exist for this user.
var ErrNotFound = errors.New("session not found")
