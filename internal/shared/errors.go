package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrCorruptState       = fmt.Errorf("corrupt state file")
	ErrLedger             = fmt.Errorf("ledger unavailable")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Input errors
	ErrMalformedCSV    = fmt.Errorf("malformed CSV export")
	ErrUnsupportedMode = fmt.Errorf("unsupported import mode")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")

	// Per-event errors. None of these abort a sync run; the pipeline records them in the error ledger.
	ErrResolution           = fmt.Errorf("resolution failed")
	ErrPrecondition         = fmt.Errorf("event is not resolved")
	ErrAlreadyResolved      = fmt.Errorf("event already resolved")
	ErrUnsupportedEventKind = fmt.Errorf("unsupported event kind")
	ErrUnknownSourceKind    = fmt.Errorf("unknown source reference")
	ErrRemoteMutation       = fmt.Errorf("remote mutation rejected")
	ErrRatingOutOfRange     = fmt.Errorf("rating out of range")
	ErrTransport            = fmt.Errorf("transport failure")
)
