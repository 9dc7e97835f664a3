package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeySnapID     = "snap_id"
	KeyVersion    = "version"
	KeyMethod     = "method"
	KeyOrigin     = "origin"
	KeyRequestID  = "request_id"
	KeyOutcome    = "outcome"
	KeyDurationMS = "duration_ms"
	KeyBackend    = "backend"
	KeyPath       = "path"
	KeyStatus     = "status"
	KeyAddr       = "addr"
	KeyRemoteAddr = "remote_addr"
	KeyUserAgent  = "user_agent"
	KeyAction     = "action"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func SnapID(id string) slog.Attr      { return slog.String(KeySnapID, id) }
func Version(v string) slog.Attr      { return slog.String(KeyVersion, v) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Origin(o string) slog.Attr       { return slog.String(KeyOrigin, o) }
func RequestID(id string) slog.Attr   { return slog.String(KeyRequestID, id) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Backend(b string) slog.Attr      { return slog.String(KeyBackend, b) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func Addr(a string) slog.Attr         { return slog.String(KeyAddr, a) }
func RemoteAddr(a string) slog.Attr   { return slog.String(KeyRemoteAddr, a) }
func UserAgent(ua string) slog.Attr   { return slog.String(KeyUserAgent, ua) }
func Action(a string) slog.Attr       { return slog.String(KeyAction, a) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
