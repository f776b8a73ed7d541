package chapters

import "errors"

var (
	// ErrNoUsableTranscript means there is too little transcript to ground
	// chapters in. The oracle is not consulted; callers use a rule-based fallback.
	ErrNoUsableTranscript = errors.New("no usable transcript")

	// ErrOracleUnavailable means the oracle is not ready and could not be initialized.
	ErrOracleUnavailable = errors.New("oracle unavailable")
)
