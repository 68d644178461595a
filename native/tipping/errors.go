package tipping

import "errors"

var (
	ErrNilState           = errors.New("tipping: state not configured")
	ErrNilTransferer      = errors.New("tipping: transferer not configured")
	ErrNotInitialized     = errors.New("tipping: platform not initialized")
	ErrAlreadyInitialized = errors.New("tipping: platform already initialized")
	ErrContractPaused     = errors.New("tipping: platform is paused")
	ErrFeeTooHigh         = errors.New("tipping: platform fee exceeds 1000 bps")
	ErrInvalidAmount      = errors.New("tipping: amount must be a non-negative integer")
	ErrAmountOverflow     = errors.New("tipping: amount exceeds 256 bits")
	ErrAmountTooSmall     = errors.New("tipping: tip amount below minimum")
	ErrMessageTooLong     = errors.New("tipping: message exceeds 280 bytes")
	ErrInvalidHandle      = errors.New("tipping: handle must be 1-20 bytes of NFKC-normal text")
	ErrInvalidDisplayName = errors.New("tipping: display name must be 1-50 bytes")
	ErrInvalidAvatar      = errors.New("tipping: avatar uri exceeds 200 bytes")
	ErrInvalidAgentName   = errors.New("tipping: agent name must be 1-30 bytes")
	ErrInvalidAgentType   = errors.New("tipping: agent type exceeds 20 bytes")
	ErrInvalidOrigin      = errors.New("tipping: tip origin required")
	ErrHandleTaken        = errors.New("tipping: handle already registered")
	ErrAgentExists        = errors.New("tipping: agent already registered for owner")
	ErrCreatorNotFound    = errors.New("tipping: creator not found")
	ErrAgentNotFound      = errors.New("tipping: agent not found")
	ErrAgentOwnerMismatch = errors.New("tipping: agent not owned by tipper")
	ErrAgentInactive      = errors.New("tipping: agent is inactive")
	ErrUnauthorized       = errors.New("tipping: caller not authorized")
)

// IsValidationError reports whether err is a caller input error that should
// be corrected and resubmitted.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrFeeTooHigh, ErrInvalidAmount, ErrAmountOverflow, ErrAmountTooSmall,
		ErrMessageTooLong, ErrInvalidHandle, ErrInvalidDisplayName, ErrInvalidAvatar,
		ErrInvalidAgentName, ErrInvalidAgentType, ErrInvalidOrigin,
		ErrAgentOwnerMismatch, ErrAgentInactive,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
