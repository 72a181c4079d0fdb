package main

import (
	"errors"
	"os"

	billdocs "github.com/alnah/go-billdocs"
)

// Exit codes for billdocs CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // All documents generated
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or workbook structure
	ExitIO      = 3 // File not found, permission denied
	ExitBrowser = 4 // Browser/Chrome errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 4)
	if errors.Is(err, billdocs.ErrBrowserConnect) ||
		errors.Is(err, billdocs.ErrPageCreate) ||
		errors.Is(err, billdocs.ErrPageLoad) ||
		errors.Is(err, billdocs.ErrPDFGeneration) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadWorkbook) ||
		errors.Is(err, ErrWritePDF) ||
		errors.Is(err, ErrNoInput) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	var missing *billdocs.MissingSheetError
	if errors.As(err, &missing) {
		return ExitUsage
	}
	if errors.Is(err, ErrConfigNotFound) ||
		errors.Is(err, ErrConfigParse) ||
		errors.Is(err, ErrEmptyConfigName) ||
		errors.Is(err, billdocs.ErrEmptyWorkbook) ||
		errors.Is(err, billdocs.ErrUnknownDocument) ||
		errors.Is(err, ErrInvalidWorkbook) {
		return ExitUsage
	}

	return ExitGeneral
}
