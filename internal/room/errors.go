// internal/room/errors.go
package room

import "errors"

// Sentinel errors for the room lifecycle. Handlers map these onto HTTP
// statuses; callers match with errors.Is.
var (
	// Validation failures: malformed input, rejected before any state is read.
	ErrInvalidCode       = errors.New("room code must be exactly 6 digits")
	ErrInvalidChoice     = errors.New("choice must be between 1 and 4")
	ErrInvalidConfidence = errors.New("confidence must be between 1 and 5")

	// Not-found failures.
	ErrNotFound = errors.New("room not found")

	// State conflicts: the operation is valid but the room's current state
	// rejects it. The caller may retry after the state changes.
	ErrRoomInactive         = errors.New("room is inactive")
	ErrAlreadyStarted       = errors.New("game already started")
	ErrRoomFull             = errors.New("room is full")
	ErrDuplicateParticipant = errors.New("already joined this room")
	ErrNotParticipant       = errors.New("not a participant of this room")
	ErrCodeConflict         = errors.New("room code already in use")
	ErrCodeExhausted        = errors.New("could not generate a unique room code")
	ErrConsensusLocked      = errors.New("consensus recorded, round choices are frozen")
	ErrChoiceRequired       = errors.New("a choice must be submitted first")
	ErrNotHost              = errors.New("only the host may do this")
	ErrIncompleteChoices    = errors.New("every participant must submit a round choice first")
	ErrInvalidState         = errors.New("room is not in a valid state for this operation")
)

// IsValidation reports whether err is a malformed-input rejection.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidCode) ||
		errors.Is(err, ErrInvalidChoice) ||
		errors.Is(err, ErrInvalidConfidence)
}

// IsConflict reports whether err is a state conflict (room full, started,
// locked round, and so on) rather than a validation or lookup failure.
func IsConflict(err error) bool {
	for _, target := range []error{
		ErrRoomInactive, ErrAlreadyStarted, ErrRoomFull,
		ErrDuplicateParticipant, ErrNotParticipant, ErrCodeConflict,
		ErrCodeExhausted, ErrConsensusLocked, ErrChoiceRequired,
		ErrNotHost, ErrIncompleteChoices, ErrInvalidState,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
