package session

import (
	"time"

	"github.com/ayusman/podium/internal/emotion"
	"github.com/ayusman/podium/internal/gesture"
	"github.com/ayusman/podium/internal/presentation"
)

// Result describes what happened on one frame.
type Result struct {
	SessionID string    `json:"session_id"`
	Frame     int       `json:"frame"`
	Time      time.Time `json:"time"`
	Phase     Phase     `json:"phase"`

	Authenticated bool `json:"authenticated"`
	// Forced is set once the attempt budget ran out without a match.
	Forced       bool `json:"forced"`
	AuthAttempts int  `json:"auth_attempts"`

	HandPresent bool                `json:"hand_present"`
	Gesture     gesture.Label       `json:"gesture"`
	Diagnostics gesture.Diagnostics `json:"diagnostics"`
	Emotion     emotion.Label       `json:"emotion"`

	Previous presentation.State    `json:"previous"`
	State    presentation.State    `json:"state"`
	Command  *presentation.Command `json:"-"`
	Paused   bool                  `json:"paused"`

	// Spoken lists the phrases queued for speech, in order.
	Spoken []string `json:"spoken,omitempty"`
}

// Display renders the display command, or "" when there was none.
func (r Result) Display() string {
	if r.Command == nil {
		return ""
	}
	return r.Command.String()
}
