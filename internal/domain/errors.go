package domain

import "errors"

var (
	// ErrNotFound indicates resource not found
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidRequest indicates invalid request
	ErrInvalidRequest = errors.New("invalid request")
	// ErrStorage indicates the persistence layer rejected a read or write
	ErrStorage = errors.New("storage failure")
	// ErrVersionConflict indicates the stored canvas moved past the expected version
	ErrVersionConflict = errors.New("version conflict")
	// ErrUnknownSection indicates a section id the catalog does not define
	ErrUnknownSection = errors.New("unknown section")
	// ErrInvalidPhaseTransition indicates a phase jump of more than one step
	ErrInvalidPhaseTransition = errors.New("invalid phase transition")
	// ErrPhaseBlocked indicates the canvas cannot advance to the next phase
	ErrPhaseBlocked = errors.New("phase advancement blocked")
	// ErrSaveInFlight indicates an autosave is already running for the canvas
	ErrSaveInFlight = errors.New("save already in flight")
	// ErrSessionClosed indicates the editing session has ended
	ErrSessionClosed = errors.New("editing session closed")
)
