// Package async runs documents through a bounded worker pool.
package async

import "errors"

var ErrQueueClosed = errors.New("queue is shutting down")
