package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "snapbridge.yaml").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		file, exists := err.Context().GetString("file")
		if !exists || file != "snapbridge.yaml" {
			t.Errorf("expected context file=snapbridge.yaml, got %v", file)
		}
	})

	t.Run("Category survives fmt wrapping", func(t *testing.T) {
		base := MethodNotFoundError("Method not found.").Build()
		wrapped := fmt.Errorf("invoke: %w", base)

		if !IsClassified(wrapped) {
			t.Fatal("expected wrapped error to be classified")
		}
		if !HasCategory(wrapped, CategoryMethodNotFound) {
			t.Error("expected method_not_found category through wrap")
		}
		if !errors.Is(wrapped, MethodNotFoundError("Method not found.").Build()) {
			t.Error("expected errors.Is to match a rebuilt sentinel")
		}
	})

	t.Run("HasCategory walks classified causes", func(t *testing.T) {
		inner := MethodNotFoundError("Method not found.").Build()
		outer := InterPluginError("call failed").WithCause(inner).Build()

		if !HasCategory(outer, CategoryInterPlugin) {
			t.Error("expected outer category")
		}
		if !HasCategory(outer, CategoryMethodNotFound) {
			t.Error("expected inner category")
		}
		if HasCategory(outer, CategoryConnect) {
			t.Error("unexpected connect category")
		}
	})
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name     string
		builder  *ErrorBuilder
		category ErrorCategory
		severity ErrorSeverity
		retry    RetryStrategy
	}{
		{"MethodNotFound", MethodNotFoundError("x"), CategoryMethodNotFound, SeverityError, RetryNever},
		{"Discovery", DiscoveryError("x"), CategoryDiscovery, SeverityWarning, RetryUserAction},
		{"Connect", ConnectError("x"), CategoryConnect, SeverityError, RetryUserAction},
		{"InterPlugin", InterPluginError("x"), CategoryInterPlugin, SeverityError, RetryUserAction},
		{"Config", ConfigError("x"), CategoryConfig, SeverityFatal, RetryNever},
		{"Storage", StorageError("x"), CategoryStorage, SeverityError, RetryBackoff},
		{"Internal", InternalError("x"), CategoryInternal, SeverityFatal, RetryNever},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.builder.Build()
			if err.Category() != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, err.Category())
			}
			if err.Severity() != tt.severity {
				t.Errorf("expected severity %s, got %s", tt.severity, err.Severity())
			}
			if err.RetryStrategy() != tt.retry {
				t.Errorf("expected retry strategy %s, got %s", tt.retry, err.RetryStrategy())
			}
		})
	}
}

func TestRPCErrorAdapter(t *testing.T) {
	adapter := NewRPCErrorAdapter()

	t.Run("codes", func(t *testing.T) {
		cases := []struct {
			err  error
			code int64
		}{
			{MethodNotFoundError("Method not found.").Build(), CodeMethodNotFound},
			{InvalidParamsError("bad").Build(), CodeInvalidParams},
			{UserRejectedError("no").Build(), CodeUserRejected},
			{PermissionError("denied").Build(), CodeUnauthorized},
			{InterPluginError("down").Build(), CodeInternalError},
			{errors.New("plain"), CodeInternalError},
		}
		for _, c := range cases {
			if got := adapter.CodeFor(c.err); got != c.code {
				t.Errorf("%v: expected code %d, got %d", c.err, c.code, got)
			}
		}
	})

	t.Run("round trip keeps category", func(t *testing.T) {
		src := InterPluginError("state snap call failed").
			WithCause(MethodNotFoundError("Method not found.").Build()).
			Build()
		obj := adapter.ToRPC(src)
		if obj.Message != "state snap call failed: Method not found." {
			t.Errorf("unexpected message %q", obj.Message)
		}
		back := adapter.FromRPC(obj)
		if back.Category() != CategoryInterPlugin {
			t.Errorf("expected inter_plugin, got %s", back.Category())
		}
		if back.RetryStrategy() != RetryUserAction {
			t.Errorf("expected retry strategy to survive, got %s", back.RetryStrategy())
		}
	})

	t.Run("code only", func(t *testing.T) {
		back := adapter.FromRPC(RPCErrorObject{Code: CodeMethodNotFound, Message: "Method not found."})
		if !back.IsCategory(CategoryMethodNotFound) {
			t.Errorf("expected method_not_found, got %s", back.Category())
		}
	})
}

func TestHTTPErrorAdapter_StatusCodeFor(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.Default())
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, http.StatusOK},
		{"validation", ValidationError("bad").Build(), http.StatusBadRequest},
		{"not found", NotFoundError("missing").Build(), http.StatusNotFound},
		{"storage", StorageError("db down").Build(), http.StatusServiceUnavailable},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.StatusCodeFor(tt.err); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())
	if got := adapter.ExitCodeFor(nil); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if got := adapter.ExitCodeFor(ConnectError("rejected").Build()); got != 8 {
		t.Errorf("expected 8, got %d", got)
	}
	if got := adapter.ExitCodeFor(errors.New("plain")); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	if got := adapter.FormatError(ConnectError("rejected").Build()); got != "Error: rejected" {
		t.Errorf("unexpected format %q", got)
	}
}
