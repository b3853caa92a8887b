package reorder

import "fmt"

// StructuralError reports a move that cannot be applied to the live document.
// Nothing is mutated when one is returned.
type StructuralError struct {
	Code    string
	Message string
}

func (e *StructuralError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any StructuralError with the same code.
func (e *StructuralError) Is(target error) bool {
	t, ok := target.(*StructuralError)
	return ok && e != nil && t.Code == e.Code
}

func structuralError(sentinel *StructuralError, format string, args ...any) *StructuralError {
	return &StructuralError{Code: sentinel.Code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrDepthMismatch    = &StructuralError{Code: "DEPTH_MISMATCH"}
	ErrParentMismatch   = &StructuralError{Code: "PARENT_MISMATCH"}
	ErrStaleSource      = &StructuralError{Code: "STALE_SOURCE"}
	ErrStaleTarget      = &StructuralError{Code: "STALE_TARGET"}
	ErrSingleItemList   = &StructuralError{Code: "SINGLE_ITEM_LIST"}
	ErrNotContainer     = &StructuralError{Code: "NOT_CONTAINER"}
	ErrUnsupportedDepth = &StructuralError{Code: "UNSUPPORTED_DEPTH"}
	ErrMutationFailed   = &StructuralError{Code: "MUTATION_FAILED"}
)
