package toolserver

import (
	"errors"
	"fmt"

	"github.com/kimjune01/cord/internal/store"
)

// ErrAuthorityDenied is raised by the Tool Server itself (never by the
// Store) whenever a caller's target lies outside its authority.
var ErrAuthorityDenied = errors.New("authority_denied")

// toWireError translates a Store sentinel (or an authority-denied error
// raised locally) into the structured wire error taxonomy. Every
// Store-level error is translated; none are swallowed.
func toWireError(err error) *WireError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &WireError{Kind: "not_found", Message: err.Error()}
	case errors.Is(err, store.ErrAlreadyExists):
		return &WireError{Kind: "already_exists", Message: err.Error()}
	case errors.Is(err, store.ErrInvalidStatus):
		return &WireError{Kind: "invalid_status", Message: err.Error()}
	case errors.Is(err, store.ErrInvalidNeeds):
		return &WireError{Kind: "invalid_needs", Message: err.Error()}
	case errors.Is(err, store.ErrConflict):
		return &WireError{Kind: "conflict", Message: err.Error()}
	case errors.Is(err, ErrAuthorityDenied):
		return &WireError{Kind: "authority_denied", Message: err.Error()}
	default:
		return &WireError{Kind: "internal", Message: fmt.Sprintf("unexpected error: %v", err)}
	}
}
