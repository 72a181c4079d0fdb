package billdocs

import (
	"errors"
	"fmt"
)

// Sentinel errors for library operations.
var (
	ErrEmptyWorkbook    = errors.New("workbook contains no sheets")
	ErrEmptyDocumentSet = errors.New("document set cannot be empty")
	ErrEmptyHTML        = errors.New("html content cannot be empty")
	ErrEmptyPDF         = errors.New("pdf content cannot be empty")
	ErrPDFGeneration    = errors.New("PDF generation failed")
	ErrBrowserConnect   = errors.New("failed to connect to browser")
	ErrPageCreate       = errors.New("failed to create browser page")
	ErrPageLoad         = errors.New("failed to load page")
	ErrEngineTimeout    = errors.New("engine timed out")
	ErrNoEngines        = errors.New("no conversion engines available")
	ErrNoMergeBackend   = errors.New("no PDF merge backend available")
	ErrNothingToMerge   = errors.New("no documents to merge")
	ErrTemplateRender   = errors.New("document template rendering failed")
	ErrUnknownDocument  = errors.New("unknown document name")
)

// MissingSheetError reports a required worksheet absent from the input
// workbook. Use errors.As to recover the sheet name.
type MissingSheetError struct {
	Sheet string
}

func (e *MissingSheetError) Error() string {
	return fmt.Sprintf("required sheet %q not found in workbook", e.Sheet)
}

// missingSheet is a convenience constructor used by the normalizer.
func missingSheet(name string) error {
	return &MissingSheetError{Sheet: name}
}
