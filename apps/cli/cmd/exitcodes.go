package cmd

// Exit codes for the restspec CLI
const (
	// ExitSuccess indicates the request was sent and all expectations held
	ExitSuccess = 0

	// ExitExpectationFailure indicates an expectation did not hold
	ExitExpectationFailure = 1

	// ExitTransportError indicates no response was received
	ExitTransportError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)
