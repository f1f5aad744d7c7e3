package player

import "github.com/PizzaHomicide/anistream/internal/domain"

// RecoveryAction is what the engine does about a fatal adaptive client error
type RecoveryAction int

const (
	// ActionRetryNetwork restarts loading
	ActionRetryNetwork RecoveryAction = iota
	// ActionRecoverMedia re-attaches the stream to the element
	ActionRecoverMedia
	// ActionFatal tears the session down
	ActionFatal
)

func (a RecoveryAction) String() string {
	switch a {
	case ActionRetryNetwork:
		return "retry_network"
	case ActionRecoverMedia:
		return "recover_media"
	default:
		return "fatal"
	}
}

// RecoveryLimits are the number of automatic attempts allowed per session for each error class
type RecoveryLimits struct {
	Network int
	Media   int
}

// DefaultRecoveryLimits returns the ceilings used when none are configured
func DefaultRecoveryLimits() RecoveryLimits {
	return RecoveryLimits{Network: 3, Media: 2}
}

// Classify maps an error class to the action that would handle it if attempts were unlimited
func Classify(class domain.PlaybackErrorClass) RecoveryAction {
	switch class {
	case domain.PlaybackErrorNetwork:
		return ActionRetryNetwork
	case domain.PlaybackErrorMedia:
		return ActionRecoverMedia
	default:
		return ActionFatal
	}
}

// Recovery counts recovery attempts for one playback session.  It is not safe for concurrent use.
type Recovery struct {
	limits          RecoveryLimits
	networkAttempts int
	mediaAttempts   int
}

// NewRecovery creates a recovery tracker for a new session
func NewRecovery(limits RecoveryLimits) *Recovery {
	return &Recovery{limits: limits}
}

// Next classifies a fatal error and counts the attempt.  Once the ceiling of a class is reached every further error
// of that class is ActionFatal.
func (r *Recovery) Next(class domain.PlaybackErrorClass) RecoveryAction {
	switch Classify(class) {
	case ActionRetryNetwork:
		if r.networkAttempts >= r.limits.Network {
			return ActionFatal
		}
		r.networkAttempts++
		return ActionRetryNetwork
	case ActionRecoverMedia:
		if r.mediaAttempts >= r.limits.Media {
			return ActionFatal
		}
		r.mediaAttempts++
		return ActionRecoverMedia
	default:
		return ActionFatal
	}
}

// Attempts returns the number of network and media attempts made so far
func (r *Recovery) Attempts() (network, media int) {
	return r.networkAttempts, r.mediaAttempts
}
