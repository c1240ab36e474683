package app

// StopReason records why the process is shutting down. It is logged once by
// Stop so post-mortems can tell a deploy from a crash.
type StopReason string

const (
	StopUnknown      StopReason = "unknown"
	StopSIGINT       StopReason = "sigint"
	StopSIGTERM      StopReason = "sigterm"
	StopFatalError   StopReason = "fatal_error"
)
