package emotion

import (
	"context"
	"errors"
	"testing"
)

func TestCollapse(t *testing.T) {
	tests := []struct {
		raw  string
		want Label
	}{
		{"happy", Happy},
		{"surprise", Happy},
		{"neutral", Happy},
		{"disgust", Happy},
		{"", Happy},
		{"sad", Sad},
		{"angry", Sad},
		{"fear", Sad},
		{"Sad", Sad},
		{" ANGRY ", Sad},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := Collapse(tt.raw); got != tt.want {
				t.Errorf("Collapse(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	ctx := context.Background()

	t.Run("nil classifier defaults to happy", func(t *testing.T) {
		if got := Detect(ctx, nil, nil); got != Happy {
			t.Errorf("Detect() = %s, want happy", got)
		}
	})

	t.Run("error defaults to happy", func(t *testing.T) {
		c := &Static{Raw: "sad", Err: errors.New("model crashed")}
		if got := Detect(ctx, c, nil); got != Happy {
			t.Errorf("Detect() = %s, want happy", got)
		}
	})

	t.Run("negative emotion is sad", func(t *testing.T) {
		c := &Static{Raw: "fear"}
		if got := Detect(ctx, c, nil); got != Sad {
			t.Errorf("Detect() = %s, want sad", got)
		}
	})

	t.Run("implements Classifier", func(t *testing.T) {
		var _ Classifier = (*Static)(nil)
		var _ Classifier = (*DeepFaceClassifier)(nil)
	})
}

func TestNewDeepFaceClassifier_MissingScript(t *testing.T) {
	if _, err := NewDeepFaceClassifier("no_such_emotion_service.py"); err == nil {
		t.Error("expected error for missing script")
	}
}
