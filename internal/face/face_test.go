package face

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCheckReference(t *testing.T) {
	dir := t.TempDir()
	ref := filepath.Join(dir, "reference.jpg")
	if err := os.WriteFile(ref, []byte("jpeg"), 0644); err != nil {
		t.Fatalf("write reference: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"existing file", ref, false},
		{"missing file", filepath.Join(dir, "missing.jpg"), true},
		{"directory", dir, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckReference(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrReferenceMissing) {
					t.Errorf("CheckReference() error = %v, want ErrReferenceMissing", err)
				}
				return
			}
			if err != nil {
				t.Errorf("CheckReference() error = %v", err)
			}
		})
	}
}

func TestNewDeepFaceVerifier_MissingReference(t *testing.T) {
	_, err := NewDeepFaceVerifier("", filepath.Join(t.TempDir(), "reference.jpg"))
	if !errors.Is(err, ErrReferenceMissing) {
		t.Fatalf("NewDeepFaceVerifier() error = %v, want ErrReferenceMissing", err)
	}
}

func TestGate_VerifiesOnFirstMatch(t *testing.T) {
	mock := &Mock{Results: []bool{false, false, true}}
	gate := NewGate(mock, "Presenter", 10)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if gate.Attempt(ctx, nil) {
			t.Fatalf("attempt %d should fail", i+1)
		}
		if gate.Open() {
			t.Fatalf("gate should stay closed after attempt %d", i+1)
		}
	}

	if !gate.Attempt(ctx, nil) {
		t.Fatal("third attempt should verify")
	}
	if !gate.Open() || gate.Forced() {
		t.Errorf("Open() = %v, Forced() = %v; want true, false", gate.Open(), gate.Forced())
	}
	if gate.Attempts() != 3 {
		t.Errorf("Attempts() = %d, want 3", gate.Attempts())
	}

	// Further attempts do not reach the verifier.
	gate.Attempt(ctx, nil)
	if mock.Calls() != 3 {
		t.Errorf("verifier called %d times, want 3", mock.Calls())
	}
}

func TestGate_FailsOpenAfterBudget(t *testing.T) {
	mock := &Mock{Results: []bool{false}}
	gate := NewGate(mock, "Presenter", 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		gate.Attempt(ctx, nil)
	}

	if !gate.Open() {
		t.Fatal("gate should fail open once the budget is spent")
	}
	if !gate.Forced() {
		t.Error("Forced() should be true")
	}
	if gate.Attempts() != 3 {
		t.Errorf("Attempts() = %d, want 3", gate.Attempts())
	}
}

func TestGate_ErrorsCountAsFailures(t *testing.T) {
	mock := &Mock{Results: []bool{true}, Err: errors.New("deepface crashed")}
	gate := NewGate(mock, "Presenter", 2)
	ctx := context.Background()

	if gate.Attempt(ctx, nil) {
		t.Fatal("errored attempt should not verify")
	}
	gate.Attempt(ctx, nil)

	if !gate.Forced() {
		t.Error("gate should be forced open after erroring through the budget")
	}
}

func TestGate_DefaultBudget(t *testing.T) {
	gate := NewGate(nil, "Presenter", 0)
	ctx := context.Background()

	for i := 0; i < DefaultMaxAttempts-1; i++ {
		gate.Attempt(ctx, nil)
	}
	if gate.Open() {
		t.Fatal("gate opened before the default budget was spent")
	}

	gate.Attempt(ctx, nil)
	if !gate.Open() || !gate.Forced() {
		t.Error("gate should be forced open at the default budget")
	}
}
