package billdocs

// Sheet names recognized in input workbooks. Layout within each sheet is
// not fixed; the normalizer's header heuristics exist because this boundary
// is unreliable.
const (
	SheetTitle        = "Title"
	SheetWorkOrder    = "Work Order"
	SheetBillQuantity = "Bill Quantity"
	SheetExtraItems   = "Extra Items"
)

// Canonical title metadata keys guaranteed present after normalization.
const (
	KeyWorkName      = "Name of Work"
	KeyContractor    = "Name of Contractor"
	KeyBillNumber    = "Bill Number"
	KeyTenderPremium = "TENDER PREMIUM %"
)

// Default values backfilled for canonical keys missing from the Title sheet.
const (
	DefaultWorkName      = "Construction Work"
	DefaultContractor    = "Unknown Contractor"
	DefaultBillNumber    = "BILL001"
	DefaultTenderPremium = "0"
)

// TitleMetadata holds free-text key/value pairs discovered on the Title
// sheet. Keys are not fixed; the four canonical keys above are always
// present, backfilled with defaults when absent. Insertion order is
// preserved for rendering.
type TitleMetadata struct {
	keys   []string
	values map[string]string
}

// NewTitleMetadata returns an empty metadata map.
func NewTitleMetadata() *TitleMetadata {
	return &TitleMetadata{values: make(map[string]string)}
}

// Set stores a key/value pair, preserving first-insertion order.
func (t *TitleMetadata) Set(key, value string) {
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = value
}

// Get returns the value for key and whether it was present.
func (t *TitleMetadata) Get(key string) (string, bool) {
	v, ok := t.values[key]
	return v, ok
}

// Value returns the value for key, or the empty string if absent.
func (t *TitleMetadata) Value(key string) string {
	return t.values[key]
}

// Keys returns the keys in insertion order.
func (t *TitleMetadata) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Len returns the number of stored keys.
func (t *TitleMetadata) Len() int {
	return len(t.keys)
}

// backfill stores a default value for key only when key is absent.
func (t *TitleMetadata) backfill(key, value string) {
	if _, ok := t.values[key]; !ok {
		t.Set(key, value)
	}
}

// LineItem is one normalized row of a work-order, bill-quantity or
// extra-items table. Amount is recomputed as Quantity*Rate whenever both
// source columns exist, overriding any stored amount, to guarantee
// internal consistency.
type LineItem struct {
	ItemNo      string
	Description string
	Unit        string
	Quantity    float64
	Rate        float64
	Amount      float64
	Remark      string
}

// columnSet records which canonical columns the source sheet actually
// carried. Validation distinguishes a zero-valued column from an absent one.
type columnSet struct {
	Description bool
	Quantity    bool
	Rate        bool
	Amount      bool
}

// WorkbookBundle is the normalized output for one input workbook: title
// metadata plus the three line-item tables. BillQuantity defaults to a copy
// of WorkOrder when the sheet is absent and the caller permits it;
// ExtraItems defaults to an empty table.
type WorkbookBundle struct {
	Title        *TitleMetadata
	WorkOrder    []LineItem
	BillQuantity []LineItem
	ExtraItems   []LineItem

	workOrderCols    columnSet
	billQuantityCols columnSet
}

// copyItems returns an independent copy of a line-item slice.
func copyItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
