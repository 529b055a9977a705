package source

import "fmt"

// LoadError reports a library file that could not be read, parsed or
// validated.
type LoadError struct {
	// FilePath is the file that failed to load
	FilePath string

	// Cause is the underlying parse or validation error
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load library file %q: %v", e.FilePath, e.Cause)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// RegistryError represents an error that occurred during registry operations.
type RegistryError struct {
	// Library is the name of the library involved in the error
	Library string

	// Operation is the operation that failed (e.g., "register", "lookup")
	Operation string

	// Message describes the registry error
	Message string
}

// Error implements the error interface.
func (e *RegistryError) Error() string {
	if e.Library != "" {
		return fmt.Sprintf("registry error for library %q during %s: %s", e.Library, e.Operation, e.Message)
	}
	return fmt.Sprintf("registry error during %s: %s", e.Operation, e.Message)
}
