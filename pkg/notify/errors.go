package notify

import "errors"

// ErrNotConnected indicates the NATS connection has not been established.
var ErrNotConnected = errors.New("notify: not connected")
