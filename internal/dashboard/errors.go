package dashboard

import "fmt"

// ErrorKind tags a failed persistence operation
type ErrorKind string

const (
	ErrSaveCards  ErrorKind = "SAVE_CARDS_ERROR"
	ErrLoadCards  ErrorKind = "LOAD_CARDS_ERROR"
	ErrCreateCard ErrorKind = "CREATE_CARD_ERROR"
	ErrUpdateCard ErrorKind = "UPDATE_CARD_ERROR"
	ErrDeleteCard ErrorKind = "DELETE_CARD_ERROR"
)

// OpError wraps a persistence failure with its operation kind and severity.
// Local state is never rolled back when one of these is returned; the remote
// mirror is eventually consistent at best.
type OpError struct {
	Kind     ErrorKind
	Severity string
	Cause    error
}

func newOpError(kind ErrorKind, cause error) *OpError {
	return &OpError{Kind: kind, Severity: "medium", Cause: cause}
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *OpError) Unwrap() error {
	return e.Cause
}
