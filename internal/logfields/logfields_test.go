package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"SnapID", KeySnapID, "local:http://localhost:9090", SnapID("local:http://localhost:9090")},
		{"Version", KeyVersion, "0.1.0", Version("0.1.0")},
		{"Method", KeyMethod, "setState", Method("setState")},
		{"Origin", KeyOrigin, "http://localhost:8000", Origin("http://localhost:8000")},
		{"RequestID", KeyRequestID, "rid", RequestID("rid")},
		{"Outcome", KeyOutcome, "success", Outcome("success")},
		{"Backend", KeyBackend, "sqlite", Backend("sqlite")},
		{"Path", KeyPath, "/healthz", Path("/healthz")},
		{"Action", KeyAction, "SetError", Action("SetError")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

// TestNumericHelpers verifies keys for numeric & float helpers.
func TestNumericHelpers(t *testing.T) {
	if v := Status(200); v.Key != KeyStatus {
		t.Fatalf("Status key mismatch: %s", v.Key)
	}
	if v := DurationMS(12.5); v.Key != KeyDurationMS {
		t.Fatalf("DurationMS key mismatch: %s", v.Key)
	}
}

// TestErrorHelper ensures Error() handles nil and non-nil errors predictably.
func TestErrorHelper(t *testing.T) {
	if attr := Error(nil); attr.Value.String() != "" {
		t.Fatalf("Expected empty error string, got %s", attr.Value.String())
	}
	if attr := Error(errors.New("boom")); attr.Value.String() != "boom" {
		t.Fatalf("Expected boom, got %s", attr.Value.String())
	}
}
