package faas

// Test-only exports for internal functions.
var (
	LoadConfigWithEnv = loadConfig
	OutcomeOf         = outcomeOf
)
