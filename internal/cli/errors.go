package cli

import "errors"

// ErrUsage matches every error caused by how the CLI was invoked: bad flags,
// bad config files, or inputs that cannot be used.
var ErrUsage = errors.New("cli usage error")

type usageError struct {
	msg   string
	cause error
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

// newUsageErrorFrom keeps cause reachable through errors.Is and errors.As.
func newUsageErrorFrom(cause error, msg string) error {
	return usageError{msg: msg, cause: cause}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}

func (e usageError) Unwrap() error {
	return e.cause
}
