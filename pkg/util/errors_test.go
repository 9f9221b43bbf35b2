package util

import (
	"errors"
	"strings"
	"testing"
)

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("platform is required")
		if !strings.Contains(err.Error(), "platform is required") {
			t.Errorf("Error message should contain the error: %s", err.Error())
		}
		if !errors.Is(err, ErrValidationFailed) {
			t.Error("ValidationError should unwrap to ErrValidationFailed")
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("bad prefix", "bad route target")
		msg := err.Error()
		if !strings.Contains(msg, "bad prefix") || !strings.Contains(msg, "bad route target") {
			t.Errorf("Error message should contain all errors: %s", msg)
		}
	})
}

func TestValidationBuilder(t *testing.T) {
	t.Run("no errors", func(t *testing.T) {
		v := &ValidationBuilder{}
		v.Add(true, "should not appear")
		if v.HasErrors() {
			t.Error("should not have errors when condition is true")
		}
		if err := v.Build(); err != nil {
			t.Errorf("Build() should return nil: %v", err)
		}
	})

	t.Run("accumulates", func(t *testing.T) {
		v := &ValidationBuilder{}
		v.Add(false, "first")
		v.AddError("second")
		v.AddErrorf("third %d", 3)
		err := v.Build()
		if err == nil {
			t.Fatal("Build() should return an error")
		}
		msg := err.Error()
		for _, want := range []string{"first", "second", "third 3"} {
			if !strings.Contains(msg, want) {
				t.Errorf("missing %q in %s", want, msg)
			}
		}
	})
}

func TestUpstreamError(t *testing.T) {
	t.Run("unwraps to its kind", func(t *testing.T) {
		err := &UpstreamError{Endpoint: "graph path query", Status: 404, Message: "node not found", Kind: ErrUnknownNode}
		if !errors.Is(err, ErrUnknownNode) {
			t.Error("should unwrap to ErrUnknownNode")
		}
		if errors.Is(err, ErrGraphNotFound) {
			t.Error("should not match a different sentinel")
		}
		if !strings.Contains(err.Error(), "404") {
			t.Errorf("message should carry the status: %s", err.Error())
		}
	})

	t.Run("transport failure has no status", func(t *testing.T) {
		err := &UpstreamError{Endpoint: "l3vpn prefix query", Message: "connection refused", Kind: ErrUpstreamUnavailable}
		if strings.Contains(err.Error(), "status") {
			t.Errorf("transport errors should not mention a status: %s", err.Error())
		}
		if !errors.Is(err, ErrUpstreamUnavailable) {
			t.Error("should unwrap to ErrUpstreamUnavailable")
		}
	})
}

func TestBackendError(t *testing.T) {
	err := &BackendError{Platform: "vpp", Operation: "add", Prefix: "10.107.1.0/24", Table: 0, Err: errors.New("policy rejected")}
	if !errors.Is(err, ErrBackendFailed) {
		t.Error("BackendError should unwrap to ErrBackendFailed")
	}
	msg := err.Error()
	for _, want := range []string{"vpp", "add", "10.107.1.0/24", "policy rejected"} {
		if !strings.Contains(msg, want) {
			t.Errorf("missing %q in %s", want, msg)
		}
	}
}
