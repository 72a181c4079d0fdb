package billdocs

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Header discovery tuning constants.
const (
	// minTableColumns is the minimum column count for a header candidate
	// to be accepted without keyword scanning.
	minTableColumns = 5

	// headerScanLimit bounds the keyword scan over leading rows.
	headerScanLimit = 25
)

// headerCandidateRows are the fixed header-row indices tried first for the
// Work Order and Bill Quantity sheets. Row 0 covers clean exports; rows 20
// and 21 cover exports that carry a letterhead block above the table.
var headerCandidateRows = []int{0, 20, 21}

// extraHeaderRetryRows are the header-row indices retried for the Extra
// Items sheet when row 0 looks unlabeled.
var extraHeaderRetryRows = []int{1, 2, 3, 5, 6}

// headerKeywords identify a header row during the keyword scan.
var headerKeywords = []string{"description", "item", "quantity", "rate"}

// NormalizeOptions controls workbook normalization.
type NormalizeOptions struct {
	// AllowMissingBillQuantity substitutes a copy of the Work Order table
	// when the Bill Quantity sheet is absent, instead of failing.
	AllowMissingBillQuantity bool
}

// Normalizer converts a loosely-structured workbook into a WorkbookBundle.
// The zero value is not usable; create one with NewNormalizer.
type Normalizer struct {
	log *slog.Logger
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithNormalizerLogger sets the logger used for degraded-input warnings.
func WithNormalizerLogger(l *slog.Logger) NormalizerOption {
	return func(n *Normalizer) {
		n.log = l
	}
}

// NewNormalizer creates a Normalizer with default configuration.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{log: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize parses the workbook and produces the four normalized tables.
// It is a pure transform: identical input bytes yield an identical bundle.
//
// The Work Order sheet is always required. The Bill Quantity sheet is
// required unless opts.AllowMissingBillQuantity is set, in which case the
// bill-quantity table becomes a copy of the work-order table. A missing
// required sheet surfaces as *MissingSheetError; all other degraded input
// is repaired with documented defaults and logged as warnings.
func (n *Normalizer) Normalize(r io.Reader, opts NormalizeOptions) (*WorkbookBundle, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	if len(f.GetSheetList()) == 0 {
		return nil, ErrEmptyWorkbook
	}

	bundle := &WorkbookBundle{}

	title, err := n.readTitle(f)
	if err != nil {
		return nil, err
	}
	bundle.Title = title

	workRows, ok, err := sheetRows(f, SheetWorkOrder)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, missingSheet(SheetWorkOrder)
	}
	bundle.WorkOrder, bundle.workOrderCols = n.normalizeItemSheet(SheetWorkOrder, workRows, workOrderLayout)

	billRows, ok, err := sheetRows(f, SheetBillQuantity)
	if err != nil {
		return nil, err
	}
	switch {
	case ok:
		bundle.BillQuantity, bundle.billQuantityCols = n.normalizeItemSheet(SheetBillQuantity, billRows, workOrderLayout)
	case opts.AllowMissingBillQuantity:
		n.log.Warn("bill quantity sheet missing, copying work order", "sheet", SheetBillQuantity)
		bundle.BillQuantity = copyItems(bundle.WorkOrder)
		bundle.billQuantityCols = bundle.workOrderCols
	default:
		return nil, missingSheet(SheetBillQuantity)
	}

	extraRows, ok, err := sheetRows(f, SheetExtraItems)
	if err != nil {
		return nil, err
	}
	if ok {
		bundle.ExtraItems = n.normalizeExtraSheet(extraRows)
	} else {
		bundle.ExtraItems = []LineItem{}
	}

	return bundle, nil
}

// sheetRows returns the raw cell grid for a sheet and whether it exists.
func sheetRows(f *excelize.File, name string) ([][]string, bool, error) {
	idx, err := f.GetSheetIndex(name)
	if err != nil || idx < 0 {
		return nil, false, nil
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, false, fmt.Errorf("reading sheet %q: %w", name, err)
	}
	return rows, true, nil
}

// ---------------------------------------------------------------------------
// Header discovery
// ---------------------------------------------------------------------------

// rawTable is a sheet sliced at a discovered header row.
type rawTable struct {
	headerRow int
	width     int
	rows      [][]string // data rows only
}

// tableAt slices the grid at the given header row. It reports false when
// the slice does not look like a table: fewer than minTableColumns columns
// or a fully empty first data row.
//
// Strategies are pure and independently testable; discovery tries an
// ordered list and the first success wins.
func tableAt(grid [][]string, headerRow int) (rawTable, bool) {
	if headerRow >= len(grid) {
		return rawTable{}, false
	}
	header := trimTrailingEmpty(grid[headerRow])
	data := grid[headerRow+1:]
	if len(header) < minTableColumns {
		return rawTable{}, false
	}
	if len(data) == 0 || rowEmpty(data[0]) {
		return rawTable{}, false
	}
	return rawTable{headerRow: headerRow, width: tableWidth(header, data), rows: data}, true
}

// tableByKeywords scans the first headerScanLimit rows for one containing a
// header keyword and slices the grid there.
func tableByKeywords(grid [][]string) (rawTable, bool) {
	limit := min(len(grid), headerScanLimit)
	for i := 0; i < limit; i++ {
		for _, cell := range grid[i] {
			lower := strings.ToLower(strings.TrimSpace(cell))
			if lower == "" {
				continue
			}
			for _, kw := range headerKeywords {
				if strings.Contains(lower, kw) {
					header := trimTrailingEmpty(grid[i])
					data := grid[i+1:]
					return rawTable{headerRow: i, width: tableWidth(header, data), rows: data}, true
				}
			}
		}
	}
	return rawTable{}, false
}

// tableVerbatim treats the whole grid as data with no header row.
func tableVerbatim(grid [][]string) rawTable {
	return rawTable{headerRow: -1, width: tableWidth(nil, grid), rows: grid}
}

// discoverTable runs the ordered discovery strategies for the Work Order
// and Bill Quantity sheets.
func (n *Normalizer) discoverTable(sheet string, grid [][]string) rawTable {
	for _, row := range headerCandidateRows {
		if t, ok := tableAt(grid, row); ok {
			return t
		}
	}
	if t, ok := tableByKeywords(grid); ok {
		n.log.Warn("header row inferred by keyword scan", "sheet", sheet, "row", t.headerRow)
		return t
	}
	n.log.Warn("no header row found, reading sheet verbatim", "sheet", sheet)
	return tableVerbatim(grid)
}

// tableWidth is the widest trimmed row across header and data.
func tableWidth(header []string, data [][]string) int {
	w := len(trimTrailingEmpty(header))
	for _, row := range data {
		if rw := len(trimTrailingEmpty(row)); rw > w {
			w = rw
		}
	}
	return w
}

// ---------------------------------------------------------------------------
// Positional column layouts
// ---------------------------------------------------------------------------

// columnLayout maps a cell index to its canonical meaning for a given
// table width. A negative index means the column is absent from the sheet.
type columnLayout struct {
	itemNo, description, unit, quantity, rate, amount, remark int
}

// workOrderLayout resolves the positional layout for Work Order and Bill
// Quantity tables. Seven or more columns carry the full canonical set; six
// drop Remark; five drop Remark and Amount (Amount is then computed).
// Fewer than five columns cannot form line items.
func workOrderLayout(width int) (columnLayout, bool) {
	switch {
	case width >= 7:
		return columnLayout{0, 1, 2, 3, 4, 5, 6}, true
	case width == 6:
		return columnLayout{0, 1, 2, 3, 4, 5, -1}, true
	case width == 5:
		return columnLayout{0, 1, 2, 3, 4, -1, -1}, true
	default:
		return columnLayout{}, false
	}
}

// extraItemsLayout resolves the positional layout for the Extra Items
// sheet: [ItemNo, Remark, Description, Quantity, Unit, Rate] at six or more
// columns. Amount is never read from the sheet; it is always computed.
// Five columns degrade to the work-order layout.
func extraItemsLayout(width int) (columnLayout, bool) {
	switch {
	case width >= 6:
		return columnLayout{itemNo: 0, remark: 1, description: 2, quantity: 3, unit: 4, rate: 5, amount: -1}, true
	case width == 5:
		return workOrderLayout(width)
	default:
		return columnLayout{}, false
	}
}

// ---------------------------------------------------------------------------
// Row normalization
// ---------------------------------------------------------------------------

// normalizeItemSheet discovers the table in a Work Order / Bill Quantity
// grid and converts it to line items.
func (n *Normalizer) normalizeItemSheet(sheet string, grid [][]string, layoutFor func(int) (columnLayout, bool)) ([]LineItem, columnSet) {
	t := n.discoverTable(sheet, grid)
	layout, ok := layoutFor(t.width)
	if !ok {
		n.log.Warn("sheet too narrow for line items", "sheet", sheet, "columns", t.width)
		return []LineItem{}, columnSet{}
	}
	return buildItems(t.rows, layout), layoutColumns(layout)
}

// normalizeExtraSheet applies the Extra Items discovery rules: header at
// row 0 unless it looks unlabeled, in which case a fixed list of later
// rows is retried.
func (n *Normalizer) normalizeExtraSheet(grid [][]string) []LineItem {
	if len(grid) == 0 {
		return []LineItem{}
	}

	header := trimTrailingEmpty(grid[0])
	data := grid[1:]
	if headerUnlabeled(header) {
		for _, row := range extraHeaderRetryRows {
			if row >= len(grid) {
				break
			}
			candidate := trimTrailingEmpty(grid[row])
			if !headerUnlabeled(candidate) {
				n.log.Warn("extra items header row inferred", "row", row)
				header = candidate
				data = grid[row+1:]
				break
			}
		}
	}

	layout, ok := extraItemsLayout(tableWidth(header, data))
	if !ok {
		return []LineItem{}
	}
	return buildItems(data, layout)
}

// headerUnlabeled reports whether a header row looks machine-generated:
// an empty leading cell or fewer than three labeled columns.
func headerUnlabeled(header []string) bool {
	if len(header) == 0 || strings.TrimSpace(header[0]) == "" {
		return true
	}
	labeled := 0
	for _, cell := range header {
		if strings.TrimSpace(cell) != "" {
			labeled++
		}
	}
	return labeled < 3
}

// buildItems converts data rows to line items under the given layout.
// Rows with an empty Description are discarded: rows carrying only an item
// number or numeric noise are structural artifacts, not billable lines.
// Quantity, Rate and Amount coerce unparseable cells to zero, and Amount
// is recomputed as Quantity*Rate whenever both source columns exist.
func buildItems(rows [][]string, layout columnLayout) []LineItem {
	items := make([]LineItem, 0, len(rows))
	for _, row := range rows {
		desc := strings.TrimSpace(cellAt(row, layout.description))
		if desc == "" {
			continue
		}
		item := LineItem{
			ItemNo:      strings.TrimSpace(cellAt(row, layout.itemNo)),
			Description: desc,
			Unit:        strings.TrimSpace(cellAt(row, layout.unit)),
			Quantity:    coerceFloat(cellAt(row, layout.quantity)),
			Rate:        coerceFloat(cellAt(row, layout.rate)),
			Remark:      strings.TrimSpace(cellAt(row, layout.remark)),
		}
		if layout.amount >= 0 {
			item.Amount = coerceFloat(cellAt(row, layout.amount))
		}
		if layout.quantity >= 0 && layout.rate >= 0 {
			item.Amount = item.Quantity * item.Rate
		}
		items = append(items, item)
	}
	return items
}

// layoutColumns records which canonical columns the layout resolved.
func layoutColumns(layout columnLayout) columnSet {
	return columnSet{
		Description: layout.description >= 0,
		Quantity:    layout.quantity >= 0,
		Rate:        layout.rate >= 0,
		Amount:      layout.amount >= 0,
	}
}

// cellAt returns the cell at index i, or "" when the index is absent.
func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// coerceFloat parses a numeric cell, tolerating thousands separators and
// surrounding whitespace. Unparseable values coerce to zero.
func coerceFloat(cell string) float64 {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// trimTrailingEmpty drops trailing empty cells from a row.
func trimTrailingEmpty(row []string) []string {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}
	return row[:end]
}

// rowEmpty reports whether every cell in the row is blank.
func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
