package errors

// ResultKind distinguishes a normal value from an expected absence and from a fault
type ResultKind int

const (
	KindFound ResultKind = iota
	KindNotFound
	KindTransientError
)

func (k ResultKind) String() string {
	switch k {
	case KindFound:
		return "found"
	case KindNotFound:
		return "not_found"
	case KindTransientError:
		return "transient_error"
	default:
		return "unknown"
	}
}

// Result carries either a value, a not-found reason, or a transient error.
// Callers switch on Kind rather than inspecting a nil value.
type Result[T any] struct {
	Kind   ResultKind
	Value  T
	Reason string
	Err    error
}

// Found wraps a successfully produced value
func Found[T any](v T) Result[T] {
	return Result[T]{Kind: KindFound, Value: v}
}

// Missing reports that the target confirmed the value does not exist
func Missing[T any](reason string) Result[T] {
	return Result[T]{Kind: KindNotFound, Reason: reason}
}

// Transient reports a failure that may succeed on another attempt
func Transient[T any](err error) Result[T] {
	return Result[T]{Kind: KindTransientError, Err: err}
}

func (r Result[T]) IsFound() bool    { return r.Kind == KindFound }
func (r Result[T]) IsNotFound() bool { return r.Kind == KindNotFound }

// Unwrap converts the result into the conventional value/error pair
func (r Result[T]) Unwrap() (T, error) {
	switch r.Kind {
	case KindFound:
		return r.Value, nil
	case KindNotFound:
		var zero T
		return zero, NewNotFound(r.Reason)
	default:
		var zero T
		return zero, r.Err
	}
}
