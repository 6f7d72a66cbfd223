package services_test

import (
	"errors"
	"strings"
	"testing"

	"fieldframe/internal/services"
)

func TestWrapTagsMarkerAndDetail(t *testing.T) {
	cause := errors.New("connection refused")
	err := services.Wrap(services.ErrExternalTool, "publishing", "create folder", "Remote folder creation failed", cause)

	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to survive wrapping: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to survive wrapping: %v", err)
	}
	for _, fragment := range []string{"publishing", "create folder", "Remote folder creation failed"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in message, got %q", fragment, err.Error())
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "extracting", "probe video", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected nil marker to default to transient, got %v", err)
	}
}

func TestRetryEligibility(t *testing.T) {
	authErr := services.Wrap(services.ErrNotAuthenticated, "publishing", "session", "Sign in required", nil)
	if !services.IsRetryEligible(authErr) {
		t.Fatal("missing authentication should be retry eligible")
	}
	if services.IsRetryEligible(services.Wrap(services.ErrTransient, "publishing", "upload", "", nil)) {
		t.Fatal("transient failures consume attempts and are not holds")
	}
}

func TestTerminalClassification(t *testing.T) {
	if !services.IsTerminal(services.Wrap(services.ErrValidation, "extracting", "probe", "Invalid video", nil)) {
		t.Fatal("validation errors are terminal")
	}
	if services.IsTerminal(services.Wrap(services.ErrExternalTool, "extracting", "decode", "", nil)) {
		t.Fatal("external tool errors are retryable")
	}
}
