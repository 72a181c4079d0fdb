package billdocs

import "fmt"

// Report is the outcome of a non-fatal validation pass over a normalized
// bundle. Errors invalidate the bundle; warnings do not.
type Report struct {
	Valid    bool
	Warnings []string
	Errors   []string
}

// ValidateBundle checks a bundle for conditions that make document
// generation impossible or degraded. It never fails: structural problems
// are reported, not raised.
//
// Errors: empty work-order table, or a work-order table missing any of the
// Description, Quantity or Rate columns. Warnings: title metadata with only
// backfilled defaults, and a missing or empty bill-quantity table.
func ValidateBundle(b *WorkbookBundle) Report {
	r := Report{Valid: true}

	if b == nil {
		r.Errors = append(r.Errors, "bundle is nil")
		r.Valid = false
		return r
	}

	if len(b.WorkOrder) == 0 {
		r.Errors = append(r.Errors, "work order data is missing or empty")
	} else {
		for _, col := range []struct {
			name    string
			present bool
		}{
			{"Description", b.workOrderCols.Description},
			{"Quantity", b.workOrderCols.Quantity},
			{"Rate", b.workOrderCols.Rate},
		} {
			if !col.present {
				r.Errors = append(r.Errors, fmt.Sprintf("work order is missing the %s column", col.name))
			}
		}
	}

	if b.Title == nil || b.Title.Len() == 0 {
		r.Warnings = append(r.Warnings, "title metadata is missing")
	}

	if len(b.BillQuantity) == 0 {
		r.Warnings = append(r.Warnings, "bill quantity data is missing or empty")
	}

	r.Valid = len(r.Errors) == 0
	return r
}
