package sqlite

import "errors"

// ErrClosed is returned by operations on a closed CookieJar.
var ErrClosed = errors.New("cookie jar is closed")
