package documents

import "errors"

// ErrNotFound indicates the document, analysis, or favorite does not exist.
var ErrNotFound = errors.New("document not found")

// ErrDuplicateFavorite indicates the user already favorited the document.
var ErrDuplicateFavorite = errors.New("document already favorited")
