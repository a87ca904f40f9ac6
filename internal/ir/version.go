package ir

// Version constants for the value model and engine.
const (
	// IRVersion is the value model version. Bump when canonical encoding changes.
	IRVersion = "1"

	// EngineVersion is the stepdoc engine version.
	EngineVersion = "0.1.0"
)
