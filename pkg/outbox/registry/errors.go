package registry

import "errors"

// NonRetryableError marks a publish failure that must go straight to the
// dead-letter table.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

// NonRetryable wraps err. A nil err stays nil.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return NonRetryableError{Err: err}
}

// IsNonRetryable reports whether err has a NonRetryableError in its chain.
func IsNonRetryable(err error) bool {
	var target NonRetryableError
	return errors.As(err, &target)
}
