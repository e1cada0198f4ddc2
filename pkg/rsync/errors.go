package rsync

import "github.com/pkg/errors"

// errorf is a convenience for constructing a terminal Error result with a
// formatted message, used at job-construction time for parameter
// validation.
func errorf(code Code, format string, args ...interface{}) error {
	return &jobError{code: code, err: errors.Errorf(format, args...)}
}

// jobError lets job constructors return a plain error (satisfying the usual
// Go constructor signature) while still carrying the Code a caller driving
// the job through Iter would have seen, so callers that only have the
// construction-time error can still inspect it with errors.As.
type jobError struct {
	code Code
	err  error
}

func (e *jobError) Error() string { return e.err.Error() }
func (e *jobError) Unwrap() error { return e.err }
func (e *jobError) Code() Code    { return e.code }

// codeCarrier is implemented by any error that can report the Code a job
// failed with, including jobError and whatever wraps it.
type codeCarrier interface {
	Code() Code
}

// ErrorCode extracts the Code a job-returning function's error carries, if
// any. It returns false for errors that didn't originate from this package
// (for instance an os.Open failure in cmd/rdiff before a job was ever
// constructed).
func ErrorCode(err error) (Code, bool) {
	var carrier codeCarrier
	if errors.As(err, &carrier) {
		return carrier.Code(), true
	}
	return 0, false
}
