// Package presentation holds the slideshow state machine and the slide deck.
package presentation

import (
	"fmt"

	"github.com/ayusman/podium/internal/emotion"
	"github.com/ayusman/podium/internal/gesture"
)

// State is the slideshow position. The zero value is the inactive state.
//
// Slide is always in [0, slideCount]; Active is true only while Slide is in
// [1, slideCount].
type State struct {
	Slide  int  `json:"slide"`
	Active bool `json:"active"`
}

// Inactive is the initial state: no slide shown.
var Inactive = State{}

// ActiveAt returns the state showing slide n.
func ActiveAt(n int) State {
	return State{Slide: n, Active: true}
}

// String renders the state for logs, e.g. "Active(3)".
func (s State) String() string {
	if !s.Active {
		return "Inactive"
	}
	return fmt.Sprintf("Active(%d)", s.Slide)
}

// CommandKind is the display side effect requested by a transition.
type CommandKind int

const (
	// Show displays a slide.
	Show CommandKind = iota + 1
	// Clear closes the slideshow display.
	Clear
)

// Command is a request to the slideshow display.
type Command struct {
	Kind  CommandKind
	Slide int // 1-based, set for Show
}

// String renders the command, e.g. "Show(2)" or "Clear".
func (c Command) String() string {
	switch c.Kind {
	case Show:
		return fmt.Sprintf("Show(%d)", c.Slide)
	case Clear:
		return "Clear"
	default:
		return fmt.Sprintf("Command(%d)", int(c.Kind))
	}
}

func showCmd(n int) *Command { return &Command{Kind: Show, Slide: n} }

func clearCmd() *Command { return &Command{Kind: Clear} }

// Transition applies a gesture to a state. A nil command means nothing changed.
//
//	Start    any        -> Active(1), Show(1)
//	Previous Active(n>1) -> Active(n-1), Show(n-1)
//	Next     Active(n<N) -> Active(n+1), Show(n+1)
//	End      any        -> Inactive, Clear
//
// Every other combination is a no-op.
func Transition(s State, g gesture.Label, slideCount int) (State, *Command) {
	switch g {
	case gesture.Start:
		if slideCount < 1 {
			return s, nil
		}
		return ActiveAt(1), showCmd(1)

	case gesture.Previous:
		if s.Active && s.Slide > 1 {
			return ActiveAt(s.Slide - 1), showCmd(s.Slide - 1)
		}

	case gesture.Next:
		if s.Active && s.Slide < slideCount {
			return ActiveAt(s.Slide + 1), showCmd(s.Slide + 1)
		}

	case gesture.End:
		return Inactive, clearCmd()
	}

	return s, nil
}

// Outcome is the result of one frame of state processing.
type Outcome struct {
	State   State
	Command *Command
	// Paused is set when a negative emotion stopped an active slideshow.
	Paused bool
}

// Step processes one frame: a Sad emotion forces the slideshow closed and
// suppresses the gesture for that frame; otherwise the gesture is applied
// with Transition. Resuming after a pause takes a fresh Start gesture.
func Step(s State, g gesture.Label, e emotion.Label, slideCount int) Outcome {
	if e == emotion.Sad {
		return Outcome{
			State:   Inactive,
			Command: clearCmd(),
			Paused:  s.Active,
		}
	}

	next, cmd := Transition(s, g, slideCount)
	return Outcome{State: next, Command: cmd}
}
