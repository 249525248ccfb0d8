package session

import (
	"math"

	"github.com/watchroom/server/internal/service/room"
)

// DefaultDriftThreshold is the drift, in seconds, above which a viewer is
// hard-corrected with a seek. Sub-threshold drift is left alone: correcting
// every network jitter makes the player judder. Tunable, not a guarantee of
// anything tighter than "eventually within the threshold".
const DefaultDriftThreshold = 0.5

type ActionKind int

const (
	ActionSeekTo ActionKind = iota
	ActionResume
	ActionPause
)

type Action struct {
	Kind ActionKind
	// Position is set for ActionSeekTo only.
	Position float64
}

// Reconcile converts an authoritative playback state into the corrections a
// local player needs. Position and play-state corrections are independent and
// may both appear in one pass. Pure function: no clock, no I/O.
func Reconcile(localPosition float64, localPlaying bool, authoritative room.PlaybackState, driftThreshold float64) []Action {
	var actions []Action

	drift := math.Abs(localPosition - authoritative.Position)
	if drift > driftThreshold {
		actions = append(actions, Action{Kind: ActionSeekTo, Position: authoritative.Position})
	}

	if authoritative.IsPlaying && !localPlaying {
		actions = append(actions, Action{Kind: ActionResume})
	} else if !authoritative.IsPlaying && localPlaying {
		actions = append(actions, Action{Kind: ActionPause})
	}

	return actions
}
