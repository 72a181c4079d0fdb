package main

import (
	"errors"
	"fmt"
	"os"
	"testing"

	billdocs "github.com/alnah/go-billdocs"
)

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"generic error", errors.New("boom"), ExitGeneral},
		{"browser connect", billdocs.ErrBrowserConnect, ExitBrowser},
		{"pdf generation", billdocs.ErrPDFGeneration, ExitBrowser},
		{"wrapped browser error", fmt.Errorf("converting: %w", billdocs.ErrPageLoad), ExitBrowser},
		{"file not found", os.ErrNotExist, ExitIO},
		{"read workbook", ErrReadWorkbook, ExitIO},
		{"write pdf", fmt.Errorf("saving: %w", ErrWritePDF), ExitIO},
		{"no input", ErrNoInput, ExitIO},
		{"missing sheet", &billdocs.MissingSheetError{Sheet: "Work Order"}, ExitUsage},
		{"wrapped missing sheet", fmt.Errorf("normalizing: %w", &billdocs.MissingSheetError{Sheet: "Work Order"}), ExitUsage},
		{"config not found", ErrConfigNotFound, ExitUsage},
		{"config parse", fmt.Errorf("loading: %w", ErrConfigParse), ExitUsage},
		{"empty workbook", billdocs.ErrEmptyWorkbook, ExitUsage},
		{"invalid workbook", ErrInvalidWorkbook, ExitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
