package ir

// Version constants recorded with persisted traces.
const (
	// FormatVersion is the compiled table layout version.
	FormatVersion = "1"

	// EngineVersion is the tima runtime version.
	EngineVersion = "0.1.0"
)
