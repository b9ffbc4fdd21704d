// Package gesture maps hand landmark geometry to presentation navigation gestures.
package gesture

import (
	"fmt"
	"math"
	"strings"

	"github.com/ayusman/podium/internal/detector"
)

// Label is a navigation command recognized from a hand pose.
type Label string

const (
	// None means the pose matched no navigation gesture.
	None Label = "None"
	// Start is a peace sign: index and middle extended, ring and pinky curled.
	Start Label = "Start"
	// Previous is a thumbs up with all fingers curled.
	Previous Label = "Previous"
	// Next is a thumbs down with all fingers curled.
	Next Label = "Next"
	// End is an open palm with spread fingers.
	End Label = "End"
)

// Classification thresholds in normalized image units.
const (
	// SpreadThreshold is the minimum index/middle tip distance for End.
	SpreadThreshold = 0.03
	// ThumbThreshold is the minimum thumb-to-wrist vertical offset for Previous and Next.
	ThumbThreshold = 0.05
)

// Finger identifies one of the four non-thumb fingers.
type Finger int

// Fingers in the order they are reported in Diagnostics.
const (
	Index Finger = iota
	Middle
	Ring
	Pinky
)

var fingerNames = [...]string{"Index", "Middle", "Ring", "Pinky"}

// String returns the finger name.
func (f Finger) String() string {
	if f < Index || f > Pinky {
		return fmt.Sprintf("Finger(%d)", int(f))
	}
	return fingerNames[f]
}

// MarshalText encodes the finger by name.
func (f Finger) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// fingerJoints holds the (knuckle, tip) landmark indices per finger.
var fingerJoints = [4][2]int{
	Index:  {detector.IndexMCP, detector.IndexTip},
	Middle: {detector.MiddleMCP, detector.MiddleTip},
	Ring:   {detector.RingMCP, detector.RingTip},
	Pinky:  {detector.PinkyMCP, detector.PinkyTip},
}

// FingerState is the extended/curled state of one finger.
type FingerState struct {
	Finger   Finger `json:"finger"`
	Extended bool   `json:"extended"`
}

// Diagnostics are the measurements behind a classification. They are shown
// on screen and never feed back into control flow.
type Diagnostics struct {
	ExtendedCount int            `json:"extended_count"`
	Spread        float64        `json:"spread"`
	ThumbOffset   float64        `json:"thumb_offset"`
	Fingers       [4]FingerState `json:"fingers"`
}

// FingerStates formats the per-finger states, e.g. "Index: Extended, Middle: Curled, ...".
func (d Diagnostics) FingerStates() string {
	parts := make([]string, len(d.Fingers))
	for i, f := range d.Fingers {
		state := "Curled"
		if f.Extended {
			state = "Extended"
		}
		parts[i] = fmt.Sprintf("%s: %s", f.Finger, state)
	}
	return strings.Join(parts, ", ")
}

// Classify evaluates the gesture rules against a single hand. Rules are
// checked in a fixed order and the first match wins:
//
//	End:      3+ fingers extended and index/middle spread > SpreadThreshold
//	Start:    exactly index and middle extended
//	Previous: no finger extended, thumb tip above the wrist by > ThumbThreshold
//	Next:     no finger extended, thumb tip below the wrist by > ThumbThreshold
//
// Image Y grows downward, so "extended" means the tip is above its knuckle.
func Classify(hand detector.HandLandmarks) (Label, Diagnostics) {
	var diag Diagnostics
	p := hand.Points

	for f := Index; f <= Pinky; f++ {
		mcp, tip := fingerJoints[f][0], fingerJoints[f][1]
		ext := p[tip].Y < p[mcp].Y
		diag.Fingers[f] = FingerState{Finger: f, Extended: ext}
		if ext {
			diag.ExtendedCount++
		}
	}

	if diag.ExtendedCount >= 1 {
		diag.Spread = math.Abs(p[detector.IndexTip].X - p[detector.MiddleTip].X)
	}
	diag.ThumbOffset = p[detector.ThumbTip].Y - p[detector.Wrist].Y

	return evaluate(diag), diag
}

func evaluate(d Diagnostics) Label {
	ext := func(f Finger) bool { return d.Fingers[f].Extended }

	switch {
	case d.ExtendedCount >= 3 && d.Spread > SpreadThreshold:
		return End
	case d.ExtendedCount == 2 && ext(Index) && ext(Middle) && !ext(Ring) && !ext(Pinky):
		return Start
	case d.ThumbOffset < -ThumbThreshold && d.ExtendedCount == 0:
		return Previous
	case d.ThumbOffset > ThumbThreshold && d.ExtendedCount == 0:
		return Next
	default:
		return None
	}
}

// Announcement is the spoken feedback for a classified gesture.
func (l Label) Announcement() string {
	switch l {
	case Start:
		return "Presentation started"
	case End:
		return "Presentation ended"
	case Previous:
		return "Previous slide activated"
	case Next:
		return "Next slide activated"
	default:
		return "No gesture detected"
	}
}

// Pose is the hand pose a user makes for the gesture.
func (l Label) Pose() string {
	switch l {
	case Start:
		return "Peace"
	case End:
		return "Stop"
	case Previous:
		return "Like"
	case Next:
		return "Dislike"
	default:
		return ""
	}
}

// Instructions lists the on-screen help lines, one per gesture.
var Instructions = []string{
	"Previous: Thumbs up (like)",
	"Next: Thumbs down (dislike)",
	"Start: Peace sign (index & middle extended)",
	"End: Open palm facing webcam (stop)",
}
