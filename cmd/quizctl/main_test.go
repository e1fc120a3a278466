package main

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/weighting"
)

func TestDefaultPolicyName(t *testing.T) {
	t.Setenv("WEIGHT_POLICY", "")
	if got := defaultPolicyName(); got != weighting.PolicyLinear {
		t.Errorf("default policy = %q, want %q", got, weighting.PolicyLinear)
	}

	t.Setenv("WEIGHT_POLICY", weighting.PolicyExponential)
	if got := defaultPolicyName(); got != weighting.PolicyExponential {
		t.Errorf("policy with env set = %q, want %q", got, weighting.PolicyExponential)
	}
}

func TestOpenService_RejectsUnknownPolicy(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if _, _, err := openService(filepath.Join(t.TempDir(), "quiz.db"), "quadratic", logger); err == nil {
		t.Fatal("expected an error for an unknown policy name")
	}

	_, st, err := openService(filepath.Join(t.TempDir(), "quiz.db"), weighting.PolicyExponential, logger)
	if err != nil {
		t.Fatalf("open service: %v", err)
	}
	st.Close()
}
