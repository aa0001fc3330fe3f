package usage

import "errors"

// ErrLimitReached indicates the user exceeded their generation limit.
var ErrLimitReached = errors.New("limit reached")
