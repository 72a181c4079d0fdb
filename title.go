package billdocs

import (
	"strings"

	"github.com/xuri/excelize/v2"
)

// Additional keys carried by the full default map used when the Title
// sheet is absent entirely.
const (
	KeyMeasurementBook  = "Measurement Book No"
	KeyDateMeasurement  = "Date of Measurement"
	KeyDateCommencement = "Date of Commencement"
	KeyDateCompletion   = "Date of Completion"
)

// Defaults for the measurement/date keys.
const (
	DefaultMeasurementBook  = "MB001"
	DefaultDateMeasurement  = "01/01/2025"
	DefaultDateCommencement = "01/01/2025"
	DefaultDateCompletion   = "31/12/2025"
)

// readTitle scans the Title sheet into metadata. Two per-row strategies
// apply, in order:
//
//  1. a row with at least two non-empty cells contributes cell 0 as key
//     and cell 1 as value;
//  2. a row whose single non-empty cell contains a colon is split on the
//     first colon into key and value.
//
// Rows matching neither strategy are skipped. Canonical keys are
// backfilled afterwards. An absent sheet yields the full default map
// without scanning.
func (n *Normalizer) readTitle(f *excelize.File) (*TitleMetadata, error) {
	rows, ok, err := sheetRows(f, SheetTitle)
	if err != nil {
		return nil, err
	}
	if !ok {
		n.log.Warn("title sheet missing, using defaults", "sheet", SheetTitle)
		return defaultTitleMetadata(), nil
	}

	title := NewTitleMetadata()
	for _, row := range rows {
		if key, value, ok := titleRowPair(row); ok {
			title.Set(key, value)
		}
	}

	title.backfill(KeyWorkName, DefaultWorkName)
	title.backfill(KeyContractor, DefaultContractor)
	title.backfill(KeyBillNumber, DefaultBillNumber)
	title.backfill(KeyTenderPremium, DefaultTenderPremium)
	return title, nil
}

// titleRowPair extracts a key/value pair from one Title-sheet row.
func titleRowPair(row []string) (key, value string, ok bool) {
	var nonEmpty []string
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			nonEmpty = append(nonEmpty, strings.TrimSpace(cell))
		}
	}

	// Strategy A: two-cell key/value row.
	if len(nonEmpty) >= 2 {
		return nonEmpty[0], nonEmpty[1], true
	}

	// Strategy B: single cell with an embedded colon.
	if len(nonEmpty) == 1 {
		if k, v, found := strings.Cut(nonEmpty[0], ":"); found {
			return strings.TrimSpace(k), strings.TrimSpace(v), true
		}
	}

	return "", "", false
}

// defaultTitleMetadata is the full default map: the four canonical keys
// plus measurement and date defaults.
func defaultTitleMetadata() *TitleMetadata {
	t := NewTitleMetadata()
	t.Set(KeyWorkName, DefaultWorkName)
	t.Set(KeyContractor, DefaultContractor)
	t.Set(KeyBillNumber, DefaultBillNumber)
	t.Set(KeyTenderPremium, DefaultTenderPremium)
	t.Set(KeyMeasurementBook, DefaultMeasurementBook)
	t.Set(KeyDateMeasurement, DefaultDateMeasurement)
	t.Set(KeyDateCommencement, DefaultDateCommencement)
	t.Set(KeyDateCompletion, DefaultDateCompletion)
	return t
}
