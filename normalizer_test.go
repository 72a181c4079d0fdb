package billdocs

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// sheetFixture is one worksheet of a test workbook. Row indices in rows
// are zero-based; empty rows may be nil.
type sheetFixture struct {
	name string
	rows [][]string
}

// workbookBytes builds an xlsx workbook in memory from the given sheets.
func workbookBytes(t *testing.T, sheets []sheetFixture) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.name); err != nil {
				t.Fatalf("renaming sheet: %v", err)
			}
		} else {
			if _, err := f.NewSheet(sheet.name); err != nil {
				t.Fatalf("creating sheet %q: %v", sheet.name, err)
			}
		}
		for ri, row := range sheet.rows {
			if len(row) == 0 {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(1, ri+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			values := make([]interface{}, len(row))
			for ci, v := range row {
				values[ci] = v
			}
			if err := f.SetSheetRow(sheet.name, cell, &values); err != nil {
				t.Fatalf("writing row: %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("serializing workbook: %v", err)
	}
	return buf.Bytes()
}

// standardHeader is the full seven-column header used across fixtures.
var standardHeader = []string{"Item No.", "Description", "Unit", "Quantity", "Rate", "Amount", "Remark"}

func itemRows() [][]string {
	return [][]string{
		standardHeader,
		{"1", "Earthwork in excavation", "cum", "100", "50", "999", "ok"},
		{"2", "Cement concrete 1:2:4", "cum", "20", "4500", "0", ""},
	}
}

func normalizeFixture(t *testing.T, sheets []sheetFixture, opts NormalizeOptions) (*WorkbookBundle, error) {
	t.Helper()
	data := workbookBytes(t, sheets)
	return NewNormalizer().Normalize(bytes.NewReader(data), opts)
}

func TestNormalize_HeaderAtRowZero(t *testing.T) {
	t.Parallel()

	bundle, err := normalizeFixture(t, []sheetFixture{
		{name: SheetWorkOrder, rows: itemRows()},
		{name: SheetBillQuantity, rows: itemRows()},
	}, NormalizeOptions{})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if got := len(bundle.WorkOrder); got != 2 {
		t.Fatalf("WorkOrder items = %d, want 2", got)
	}

	first := bundle.WorkOrder[0]
	if first.ItemNo != "1" || first.Description != "Earthwork in excavation" || first.Unit != "cum" {
		t.Errorf("unexpected first item: %+v", first)
	}
	if first.Quantity != 100 || first.Rate != 50 {
		t.Errorf("Quantity/Rate = %v/%v, want 100/50", first.Quantity, first.Rate)
	}
	// Stored amount 999 is overridden by Quantity*Rate.
	if first.Amount != 5000 {
		t.Errorf("Amount = %v, want 5000 (computed, not stored)", first.Amount)
	}
	if first.Remark != "ok" {
		t.Errorf("Remark = %q, want %q", first.Remark, "ok")
	}

	if bundle.ExtraItems == nil || len(bundle.ExtraItems) != 0 {
		t.Errorf("ExtraItems = %v, want empty non-nil slice", bundle.ExtraItems)
	}
}

func TestNormalize_TitleDefaultsWhenSheetAbsent(t *testing.T) {
	t.Parallel()

	bundle, err := normalizeFixture(t, []sheetFixture{
		{name: SheetWorkOrder, rows: itemRows()},
		{name: SheetBillQuantity, rows: itemRows()},
	}, NormalizeOptions{})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	wantDefaults := map[string]string{
		KeyWorkName:        DefaultWorkName,
		KeyContractor:      DefaultContractor,
		KeyBillNumber:      DefaultBillNumber,
		KeyTenderPremium:   DefaultTenderPremium,
		KeyMeasurementBook: DefaultMeasurementBook,
		KeyDateCompletion:  DefaultDateCompletion,
	}
	for key, want := range wantDefaults {
		if got := bundle.Title.Value(key); got != want {
			t.Errorf("Title[%q] = %q, want %q", key, got, want)
		}
	}
}

func TestNormalize_HeaderBelowLetterhead(t *testing.T) {
	t.Parallel()

	// 21 rows of letterhead, header at row index 21, data after.
	rows := make([][]string, 0, 24)
	rows = append(rows, []string{"Office of the Executive Engineer"})
	for i := 1; i < 21; i++ {
		rows = append(rows, nil)
	}
	rows = append(rows, standardHeader)
	rows = append(rows, []string{"1", "Brick masonry", "cum", "10", "300", "", ""})

	bundle, err := normalizeFixture(t, []sheetFixture{
		{name: SheetWorkOrder, rows: rows},
		{name: SheetBillQuantity, rows: itemRows()},
	}, NormalizeOptions{})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if got := len(bundle.WorkOrder); got != 1 {
		t.Fatalf("WorkOrder items = %d, want 1", got)
	}
	if bundle.WorkOrder[0].Description != "Brick masonry" {
		t.Errorf("Description = %q, want %q", bundle.WorkOrder[0].Description, "Brick masonry")
	}
	if bundle.WorkOrder[0].Amount != 3000 {
		t.Errorf("Amount = %v, want 3000", bundle.WorkOrder[0].Amount)
	}
}

func TestNormalize_HeaderByKeywordScan(t *testing.T) {
	t.Parallel()

	rows := [][]string{
		{"Office of the Executive Engineer"},
		{"Public Works Division"},
		nil,
		standardHeader[:5],
		{"1", "Steel reinforcement", "kg", "500", "65"},
	}

	bundle, err := normalizeFixture(t, []sheetFixture{
		{name: SheetWorkOrder, rows: rows},
		{name: SheetBillQuantity, rows: itemRows()},
	}, NormalizeOptions{})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if got := len(bundle.WorkOrder); got != 1 {
		t.Fatalf("WorkOrder items = %d, want 1", got)
	}
	item := bundle.WorkOrder[0]
	if item.Description != "Steel reinforcement" || item.Amount != 32500 {
		t.Errorf("unexpected item: %+v", item)
	}
	// Five-column layout: Remark column absent.
	if item.Remark != "" {
		t.Errorf("Remark = %q, want empty", item.Remark)
	}
}

func TestNormalize_DropsRowsWithoutDescription(t *testing.T) {
	t.Parallel()

	rows := [][]string{
		standardHeader,
		{"1", "Earthwork in excavation", "cum", "100", "50", "", ""},
		{"2", "", "cum", "5", "10", "", ""},
		{"", "   ", "", "0", "0", "", ""},
		{"3", "Plastering", "sqm", "200", "25", "", ""},
	}

	bundle, err := normalizeFixture(t, []sheetFixture{
		{name: SheetWorkOrder, rows: rows},
		{name: SheetBillQuantity, rows: itemRows()},
	}, NormalizeOptions{})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if got := len(bundle.WorkOrder); got != 2 {
		t.Fatalf("WorkOrder items = %d, want 2 (blank descriptions dropped)", got)
	}
	if bundle.WorkOrder[1].Description != "Plastering" {
		t.Errorf("second item = %q, want %q", bundle.WorkOrder[1].Description, "Plastering")
	}
}

func TestNormalize_MissingWorkOrderSheet(t *testing.T) {
	t.Parallel()

	_, err := normalizeFixture(t, []sheetFixture{
		{name: SheetBillQuantity, rows: itemRows()},
	}, NormalizeOptions{})

	var missing *MissingSheetError
	if !errors.As(err, &missing) {
		t.Fatalf("Normalize() error = %v, want *MissingSheetError", err)
	}
	if missing.Sheet != SheetWorkOrder {
		t.Errorf("Sheet = %q, want %q", missing.Sheet, SheetWorkOrder)
	}
}

func TestNormalize_MissingBillQuantitySheet(t *testing.T) {
	t.Parallel()

	sheets := []sheetFixture{
		{name: SheetWorkOrder, rows: itemRows()},
	}

	t.Run("strict", func(t *testing.T) {
		t.Parallel()
		_, err := normalizeFixture(t, sheets, NormalizeOptions{})
		var missing *MissingSheetError
		if !errors.As(err, &missing) {
			t.Fatalf("Normalize() error = %v, want *MissingSheetError", err)
		}
		if missing.Sheet != SheetBillQuantity {
			t.Errorf("Sheet = %q, want %q", missing.Sheet, SheetBillQuantity)
		}
	})

	t.Run("substituted", func(t *testing.T) {
		t.Parallel()
		bundle, err := normalizeFixture(t, sheets, NormalizeOptions{AllowMissingBillQuantity: true})
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if !reflect.DeepEqual(bundle.BillQuantity, bundle.WorkOrder) {
			t.Errorf("BillQuantity should mirror WorkOrder:\n got %+v\nwant %+v", bundle.BillQuantity, bundle.WorkOrder)
		}
		// The copy must be independent.
		bundle.BillQuantity[0].Quantity = 9999
		if bundle.WorkOrder[0].Quantity == 9999 {
			t.Error("mutating BillQuantity changed WorkOrder; copy is shared")
		}
	})
}

func TestNormalize_ExtraItemsLayout(t *testing.T) {
	t.Parallel()

	extraRows := [][]string{
		{"Item No.", "Remark", "Description", "Quantity", "Unit", "Rate"},
		{"E1", "approved", "Additional concrete work", "10", "cum", "200"},
	}

	bundle, err := normalizeFixture(t, []sheetFixture{
		{name: SheetWorkOrder, rows: itemRows()},
		{name: SheetBillQuantity, rows: itemRows()},
		{name: SheetExtraItems, rows: extraRows},
	}, NormalizeOptions{})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if got := len(bundle.ExtraItems); got != 1 {
		t.Fatalf("ExtraItems = %d, want 1", got)
	}
	item := bundle.ExtraItems[0]
	if item.ItemNo != "E1" || item.Remark != "approved" || item.Description != "Additional concrete work" {
		t.Errorf("unexpected extra item: %+v", item)
	}
	if item.Unit != "cum" || item.Quantity != 10 || item.Rate != 200 {
		t.Errorf("Unit/Quantity/Rate = %q/%v/%v, want cum/10/200", item.Unit, item.Quantity, item.Rate)
	}
	if item.Amount != 2000 {
		t.Errorf("Amount = %v, want 2000 (always computed)", item.Amount)
	}
}

func TestNormalize_ExtraItemsUnlabeledHeaderRetry(t *testing.T) {
	t.Parallel()

	extraRows := [][]string{
		{"", "", "", ""},
		nil,
		{"Item No.", "Remark", "Description", "Quantity", "Unit", "Rate"},
		{"E1", "", "Extra painting", "5", "sqm", "40"},
	}

	bundle, err := normalizeFixture(t, []sheetFixture{
		{name: SheetWorkOrder, rows: itemRows()},
		{name: SheetBillQuantity, rows: itemRows()},
		{name: SheetExtraItems, rows: extraRows},
	}, NormalizeOptions{})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if got := len(bundle.ExtraItems); got != 1 {
		t.Fatalf("ExtraItems = %d, want 1", got)
	}
	if bundle.ExtraItems[0].Description != "Extra painting" || bundle.ExtraItems[0].Amount != 200 {
		t.Errorf("unexpected extra item: %+v", bundle.ExtraItems[0])
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	t.Parallel()

	data := workbookBytes(t, []sheetFixture{
		{name: SheetTitle, rows: [][]string{{"Name of Work", "Road Construction"}}},
		{name: SheetWorkOrder, rows: itemRows()},
		{name: SheetBillQuantity, rows: itemRows()},
	})

	n := NewNormalizer()
	first, err := n.Normalize(bytes.NewReader(data), NormalizeOptions{})
	if err != nil {
		t.Fatalf("first Normalize() error = %v", err)
	}
	second, err := n.Normalize(bytes.NewReader(data), NormalizeOptions{})
	if err != nil {
		t.Fatalf("second Normalize() error = %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("identical input bytes produced different bundles")
	}
}

func TestNormalize_InvalidInput(t *testing.T) {
	t.Parallel()

	var r io.Reader = strings.NewReader("not a spreadsheet")
	if _, err := NewNormalizer().Normalize(r, NormalizeOptions{}); err == nil {
		t.Error("Normalize() on garbage input: expected error, got nil")
	}
}

func TestWorkOrderLayout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		width      int
		ok         bool
		hasAmount  bool
		hasRemark  bool
	}{
		{width: 8, ok: true, hasAmount: true, hasRemark: true},
		{width: 7, ok: true, hasAmount: true, hasRemark: true},
		{width: 6, ok: true, hasAmount: true, hasRemark: false},
		{width: 5, ok: true, hasAmount: false, hasRemark: false},
		{width: 4, ok: false},
		{width: 0, ok: false},
	}

	for _, tt := range tests {
		layout, ok := workOrderLayout(tt.width)
		if ok != tt.ok {
			t.Errorf("workOrderLayout(%d) ok = %v, want %v", tt.width, ok, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		if got := layout.amount >= 0; got != tt.hasAmount {
			t.Errorf("workOrderLayout(%d) amount present = %v, want %v", tt.width, got, tt.hasAmount)
		}
		if got := layout.remark >= 0; got != tt.hasRemark {
			t.Errorf("workOrderLayout(%d) remark present = %v, want %v", tt.width, got, tt.hasRemark)
		}
	}
}

func TestExtraItemsLayout(t *testing.T) {
	t.Parallel()

	layout, ok := extraItemsLayout(6)
	if !ok {
		t.Fatal("extraItemsLayout(6) not ok")
	}
	want := columnLayout{itemNo: 0, remark: 1, description: 2, quantity: 3, unit: 4, rate: 5, amount: -1}
	if layout != want {
		t.Errorf("extraItemsLayout(6) = %+v, want %+v", layout, want)
	}

	// Five columns degrade to the positional work-order layout.
	layout5, ok := extraItemsLayout(5)
	if !ok {
		t.Fatal("extraItemsLayout(5) not ok")
	}
	wo5, _ := workOrderLayout(5)
	if layout5 != wo5 {
		t.Errorf("extraItemsLayout(5) = %+v, want work-order layout %+v", layout5, wo5)
	}

	if _, ok := extraItemsLayout(3); ok {
		t.Error("extraItemsLayout(3) ok = true, want false")
	}
}

func TestHeaderUnlabeled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header []string
		want   bool
	}{
		{"empty row", nil, true},
		{"empty first cell", []string{"", "Description", "Quantity", "Rate"}, true},
		{"two labeled cells", []string{"Item", "Description"}, true},
		{"three labeled cells", []string{"Item", "Description", "Rate"}, false},
		{"full header", standardHeader, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := headerUnlabeled(tt.header); got != tt.want {
				t.Errorf("headerUnlabeled(%v) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}

func TestCoerceFloat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"  ", 0},
		{"100", 100},
		{"1,234.5", 1234.5},
		{" 42.75 ", 42.75},
		{"abc", 0},
		{"12abc", 0},
		{"-7.5", -7.5},
	}

	for _, tt := range tests {
		if got := coerceFloat(tt.in); got != tt.want {
			t.Errorf("coerceFloat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTrimTrailingEmpty(t *testing.T) {
	t.Parallel()

	got := trimTrailingEmpty([]string{"a", "b", "", "  ", ""})
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("trimTrailingEmpty = %v, want [a b]", got)
	}
	if got := trimTrailingEmpty(nil); len(got) != 0 {
		t.Errorf("trimTrailingEmpty(nil) = %v, want empty", got)
	}
}

func TestTableAt(t *testing.T) {
	t.Parallel()

	grid := [][]string{
		standardHeader,
		{"1", "Earthwork", "cum", "10", "50", "", ""},
	}

	tbl, ok := tableAt(grid, 0)
	if !ok {
		t.Fatal("tableAt(grid, 0) not ok")
	}
	if tbl.width != 7 || len(tbl.rows) != 1 {
		t.Errorf("table = width %d rows %d, want width 7 rows 1", tbl.width, len(tbl.rows))
	}

	if _, ok := tableAt(grid, 5); ok {
		t.Error("tableAt past grid end: ok = true, want false")
	}

	narrow := [][]string{{"a", "b"}, {"1", "2"}}
	if _, ok := tableAt(narrow, 0); ok {
		t.Error("tableAt on narrow grid: ok = true, want false")
	}

	blankData := [][]string{standardHeader, {"", "", ""}}
	if _, ok := tableAt(blankData, 0); ok {
		t.Error("tableAt with empty first data row: ok = true, want false")
	}
}

func TestTableByKeywords(t *testing.T) {
	t.Parallel()

	grid := [][]string{
		{"Letterhead text"},
		{"More letterhead"},
		{"Sl.", "Description of work", "Unit", "Qty", "Rate"},
		{"1", "Earthwork", "cum", "10", "50"},
	}

	tbl, ok := tableByKeywords(grid)
	if !ok {
		t.Fatal("tableByKeywords not ok")
	}
	if tbl.headerRow != 2 {
		t.Errorf("headerRow = %d, want 2", tbl.headerRow)
	}

	noKeywords := [][]string{{"alpha"}, {"beta"}}
	if _, ok := tableByKeywords(noKeywords); ok {
		t.Error("tableByKeywords without keywords: ok = true, want false")
	}
}
