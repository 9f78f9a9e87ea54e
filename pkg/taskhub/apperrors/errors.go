package apperrors

import "fmt"

// NotFoundError signals a missing resource. A resource owned by someone else
// produces the same error, so callers cannot probe for existence.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// PermissionError signals a tag mutation attempted without qualifying
// ownership (no owned task bears the tag).
type PermissionError struct {
	Action string
}

func (e *PermissionError) Error() string {
	return "no permission to " + e.Action
}

// ConflictError signals a duplicate canonical tag name. Name holds the
// attempted (trimmed, pre-canonicalization) input for the error message.
type ConflictError struct {
	Name string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("tag %q already exists", e.Name)
}

// InUseError signals a tag deletion blocked by live references anywhere in
// the system, not just the requester's tasks.
type InUseError struct {
	Name  string
	Count int64
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("tag %q is still used by %d task(s)", e.Name, e.Count)
}

// EmptyNameError signals a tag name that is empty after trimming.
type EmptyNameError struct{}

func (e *EmptyNameError) Error() string {
	return "tag name must not be empty"
}

// ValidationError signals malformed input, with per-field detail.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	msg := "validation failed"
	for field, detail := range e.Fields {
		msg += "; " + field + ": " + detail
	}
	return msg
}
