package io

import (
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sys/unix"
)

const (
	retryAttempts = 3
	retryDelay    = 50 * time.Millisecond
)

// retryTransient retries a mutating operation on interrupted system calls and
// on resources that are momentarily busy. Any other error is returned as it
// is, with the first attempt.
func retryTransient(op func() error) error {
	return retry.Do(
		op,
		retry.Attempts(retryAttempts),
		retry.Delay(retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
	)
}

func isTransient(err error) bool {
	return errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EBUSY)
}
