package wrapper

import "errors"

// ErrEmptyResult is carried by the zero Result.
var ErrEmptyResult = errors.New("empty result")

// Result is the outcome of one collaborator call: either a value or an error,
// optionally with warnings for partial failures that were not rolled back.
// The value is only reachable through Unwrap or Match so the error branch
// cannot be skipped silently.
type Result[T any] struct {
	value    T
	err      error
	warnings []string
	set      bool
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v, set: true}
}

// Fail wraps a failure. A nil err is replaced by ErrEmptyResult.
func Fail[T any](err error) Result[T] {
	if err == nil {
		err = ErrEmptyResult
	}
	return Result[T]{err: err, set: true}
}

// From builds a Result from a conventional (value, error) pair.
func From[T any](v T, err error) Result[T] {
	if err != nil {
		return Fail[T](err)
	}
	return Ok(v)
}

// WithWarning returns a copy of r carrying an extra warning.
func (r Result[T]) WithWarning(msg string) Result[T] {
	r.warnings = append(append([]string(nil), r.warnings...), msg)
	return r
}

// Unwrap returns the value and the error together.
func (r Result[T]) Unwrap() (T, error) {
	if !r.set {
		var zero T
		return zero, ErrEmptyResult
	}
	return r.value, r.err
}

// Match invokes exactly one of the two branches.
func (r Result[T]) Match(onOk func(T), onErr func(error)) {
	v, err := r.Unwrap()
	if err != nil {
		if onErr != nil {
			onErr(err)
		}
		return
	}
	if onOk != nil {
		onOk(v)
	}
}

func (r Result[T]) IsOK() bool {
	_, err := r.Unwrap()
	return err == nil
}

func (r Result[T]) Err() error {
	_, err := r.Unwrap()
	return err
}

func (r Result[T]) Warnings() []string {
	return append([]string(nil), r.warnings...)
}

// Map transforms the value of a successful result and keeps warnings.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	v, err := r.Unwrap()
	var out Result[U]
	if err != nil {
		out = Fail[U](err)
	} else {
		out = Ok(fn(v))
	}
	out.warnings = r.Warnings()
	return out
}

// ToJSON converts a Result into the HTTP envelope. failCode is used when the
// result carries an error.
func ToJSON[T any](r Result[T], okCode, failCode int) JSONResult {
	v, err := r.Unwrap()
	if err != nil {
		res := ResponseFailed(failCode, err.Error(), nil)
		res.Warnings = r.Warnings()
		return res
	}
	res := ResponseSuccess(okCode, v)
	res.Warnings = r.Warnings()
	return res
}
