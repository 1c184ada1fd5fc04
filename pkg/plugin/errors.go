package plugin

import (
	"errors"
	"fmt"
)

// ErrUnknownType is returned when no plugin type is registered for a
// manifest id.
var ErrUnknownType = errors.New("unknown plugin type")

// ErrNotFound is returned when no live instance has the requested id.
var ErrNotFound = errors.New("instance not found")

// ErrNoRenderObject is returned by Render for instances without a render
// object.
var ErrNoRenderObject = errors.New("instance has no render object")

// MissingParentError is returned when an operation needs an owner the
// instance does not have (or that is no longer in the directory).
type MissingParentError struct {
	ID       string
	ParentID string
}

func (e *MissingParentError) Error() string {
	if e.ParentID == "" {
		return fmt.Sprintf("instance %s is detached: no parent", e.ID)
	}
	return fmt.Sprintf("instance %s is detached: parent %s not found", e.ID, e.ParentID)
}

// DuplicateIDError is returned when an instance id is already present in
// the directory. The existing entry is left untouched.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("instance id %s already in use", e.ID)
}
