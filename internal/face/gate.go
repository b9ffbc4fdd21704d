package face

import (
	"context"
	"log"

	"gocv.io/x/gocv"
)

// DefaultMaxAttempts is the number of frames spent on verification before the
// gate opens anyway.
const DefaultMaxAttempts = 10

// Gate runs one verification per frame until the presenter is verified or the
// attempt budget runs out. When the budget is exhausted the gate fails open.
type Gate struct {
	verifier    Verifier
	presenter   string
	maxAttempts int
	attempts    int
	open        bool
	forced      bool
}

// NewGate creates a gate. maxAttempts <= 0 selects DefaultMaxAttempts.
func NewGate(v Verifier, presenter string, maxAttempts int) *Gate {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Gate{
		verifier:    v,
		presenter:   presenter,
		maxAttempts: maxAttempts,
	}
}

// Open reports whether the presenter is authenticated. Once open the gate
// stays open for the rest of the session.
func (g *Gate) Open() bool {
	return g.open
}

// Forced reports whether the gate opened because the budget ran out.
func (g *Gate) Forced() bool {
	return g.forced
}

// Attempts returns the number of verifications performed.
func (g *Gate) Attempts() int {
	return g.attempts
}

// Presenter returns the display name of the presenter.
func (g *Gate) Presenter() string {
	return g.presenter
}

// Attempt verifies frame and returns whether this attempt matched. Verifier
// errors count as a failed attempt. Calling Attempt on an open gate is a no-op.
func (g *Gate) Attempt(ctx context.Context, frame *gocv.Mat) bool {
	if g.open {
		return false
	}

	verified := false
	if g.verifier != nil {
		ok, err := g.verifier.Verify(ctx, frame)
		if err != nil {
			log.Printf("Authentication error: %v", err)
		}
		verified = ok && err == nil
	}
	g.attempts++

	if verified {
		g.open = true
		log.Printf("Presenter %s authenticated successfully.", g.presenter)
		return true
	}

	log.Printf("Presenter %s authentication failed (attempt %d/%d).", g.presenter, g.attempts, g.maxAttempts)
	if g.attempts >= g.maxAttempts {
		g.open = true
		g.forced = true
		log.Println("Max authentication attempts reached. Proceeding without authentication.")
	}
	return false
}

// Mock is a Verifier returning scripted results, one per call. After the
// script is exhausted it keeps returning the last entry (false if empty).
type Mock struct {
	Results []bool
	Err     error
	calls   int
}

// Verify returns the next scripted result.
func (m *Mock) Verify(ctx context.Context, frame *gocv.Mat) (bool, error) {
	m.calls++
	if m.Err != nil {
		return false, m.Err
	}
	if len(m.Results) == 0 {
		return false, nil
	}
	idx := m.calls - 1
	if idx >= len(m.Results) {
		idx = len(m.Results) - 1
	}
	return m.Results[idx], nil
}

// Calls returns the number of Verify calls.
func (m *Mock) Calls() int {
	return m.calls
}

// Close is a no-op.
func (m *Mock) Close() error {
	return nil
}
