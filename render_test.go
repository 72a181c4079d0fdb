package billdocs

import (
	"errors"
	"strings"
	"testing"
)

func renderBundle() *WorkbookBundle {
	title := NewTitleMetadata()
	title.Set(KeyWorkName, "Road Construction")
	title.Set(KeyContractor, "M/s Sharma Builders")
	title.Set(KeyBillNumber, "3rd Running Bill")
	title.Set(KeyTenderPremium, "10")

	workOrder := []LineItem{
		{ItemNo: "1", Description: "Earthwork in excavation", Unit: "cum", Quantity: 100, Rate: 50, Amount: 5000},
		{ItemNo: "2", Description: "Cement concrete", Unit: "cum", Quantity: 20, Rate: 4500, Amount: 90000},
	}
	billQuantity := []LineItem{
		{ItemNo: "1", Description: "Earthwork in excavation", Unit: "cum", Quantity: 110, Rate: 50, Amount: 5500},
		{ItemNo: "2", Description: "Cement concrete", Unit: "cum", Quantity: 18, Rate: 4500, Amount: 81000},
	}
	extras := []LineItem{
		{ItemNo: "E1", Description: "Extra painting", Unit: "sqm", Quantity: 10, Rate: 40, Amount: 400},
	}

	return &WorkbookBundle{
		Title:        title,
		WorkOrder:    workOrder,
		BillQuantity: billQuantity,
		ExtraItems:   extras,
	}
}

func TestRenderDocuments_AllEightInOrder(t *testing.T) {
	t.Parallel()

	docs, err := NewRenderer().RenderDocuments(renderBundle())
	if err != nil {
		t.Fatalf("RenderDocuments() error = %v", err)
	}

	if len(docs) != len(DocumentNames) {
		t.Fatalf("rendered %d documents, want %d", len(docs), len(DocumentNames))
	}
	for i, name := range DocumentNames {
		if docs[i].Name != name {
			t.Errorf("docs[%d].Name = %q, want %q", i, docs[i].Name, name)
		}
		if docs[i].HTML == "" {
			t.Errorf("document %q rendered empty", name)
		}
	}
}

func TestRenderDocuments_CarriesTitleMetadata(t *testing.T) {
	t.Parallel()

	docs, err := NewRenderer().RenderDocuments(renderBundle())
	if err != nil {
		t.Fatalf("RenderDocuments() error = %v", err)
	}

	html, _ := docs.Get(DocFirstPageSummary)
	for _, want := range []string{"Road Construction", "M/s Sharma Builders", "3rd Running Bill"} {
		if !strings.Contains(html, want) {
			t.Errorf("first page summary missing %q", want)
		}
	}
}

func TestRenderDocuments_DeviationStatementIsLandscape(t *testing.T) {
	t.Parallel()

	docs, err := NewRenderer().RenderDocuments(renderBundle())
	if err != nil {
		t.Fatalf("RenderDocuments() error = %v", err)
	}

	html, ok := docs.Get(DocDeviationStmt)
	if !ok {
		t.Fatal("deviation statement missing from set")
	}
	if !strings.Contains(html, "landscape") {
		t.Error("deviation statement should declare landscape page orientation")
	}
}

func TestRenderDocument_UnknownName(t *testing.T) {
	t.Parallel()

	_, err := NewRenderer().RenderDocument("Imaginary Form", renderBundle())
	if !errors.Is(err, ErrUnknownDocument) {
		t.Errorf("err = %v, want ErrUnknownDocument", err)
	}
}

func TestRenderDocuments_NilBundle(t *testing.T) {
	t.Parallel()

	if _, err := NewRenderer().RenderDocuments(nil); !errors.Is(err, ErrTemplateRender) {
		t.Errorf("err = %v, want ErrTemplateRender", err)
	}
}

func TestBuildContext_Totals(t *testing.T) {
	t.Parallel()

	ctx, err := NewRenderer().buildContext(renderBundle())
	if err != nil {
		t.Fatalf("buildContext() error = %v", err)
	}

	if ctx.WorkOrderTotal != 95000 {
		t.Errorf("WorkOrderTotal = %v, want 95000", ctx.WorkOrderTotal)
	}
	if ctx.BillTotal != 86500 {
		t.Errorf("BillTotal = %v, want 86500", ctx.BillTotal)
	}
	if ctx.ExtraTotal != 400 {
		t.Errorf("ExtraTotal = %v, want 400", ctx.ExtraTotal)
	}
	if ctx.PremiumPercent != 10 {
		t.Errorf("PremiumPercent = %v, want 10", ctx.PremiumPercent)
	}
	if ctx.PremiumAmount != 8650 {
		t.Errorf("PremiumAmount = %v, want 8650", ctx.PremiumAmount)
	}
	if ctx.Payable != 86500+8650+400 {
		t.Errorf("Payable = %v, want %v", ctx.Payable, 86500+8650+400)
	}
}

func TestDeviations(t *testing.T) {
	t.Parallel()

	workOrder := []LineItem{
		{ItemNo: "1", Description: "Earthwork", Quantity: 100, Rate: 50},
		{ItemNo: "2", Description: "Concrete", Quantity: 20, Rate: 4500},
	}
	billQuantity := []LineItem{
		{ItemNo: "2", Description: "Concrete", Quantity: 18},
		{ItemNo: "1", Description: "Earthwork", Quantity: 110},
	}

	rows, total := deviations(workOrder, billQuantity)
	if len(rows) != 2 {
		t.Fatalf("deviation rows = %d, want 2", len(rows))
	}

	// Matched by item number despite different slice order.
	if rows[0].ExecutedQty != 110 || rows[0].Delta != 10 || rows[0].AmountDelta != 500 {
		t.Errorf("row 1 = %+v, want executed 110 delta 10 amount 500", rows[0])
	}
	if rows[1].ExecutedQty != 18 || rows[1].Delta != -2 || rows[1].AmountDelta != -9000 {
		t.Errorf("row 2 = %+v, want executed 18 delta -2 amount -9000", rows[1])
	}
	if total != 500-9000 {
		t.Errorf("total = %v, want %v", total, 500-9000)
	}
}

func TestDeviations_PositionalFallback(t *testing.T) {
	t.Parallel()

	workOrder := []LineItem{{Description: "Earthwork", Quantity: 100, Rate: 50}}
	billQuantity := []LineItem{{Description: "Earthwork", Quantity: 90}}

	rows, _ := deviations(workOrder, billQuantity)
	if rows[0].ExecutedQty != 90 {
		t.Errorf("ExecutedQty = %v, want 90 (positional match)", rows[0].ExecutedQty)
	}
}

func TestRenderDocuments_CustomNotes(t *testing.T) {
	t.Parallel()

	docs, err := NewRenderer(WithNotes("## Custom Note\n\nHand-written body.")).RenderDocuments(renderBundle())
	if err != nil {
		t.Fatalf("RenderDocuments() error = %v", err)
	}

	html, _ := docs.Get(DocNoteSheet)
	if !strings.Contains(html, "<h2>Custom Note</h2>") {
		t.Error("note sheet missing rendered custom markdown heading")
	}
	if !strings.Contains(html, "Hand-written body.") {
		t.Error("note sheet missing custom body text")
	}
}

func TestRenderDocuments_DefaultNotes(t *testing.T) {
	t.Parallel()

	docs, err := NewRenderer().RenderDocuments(renderBundle())
	if err != nil {
		t.Fatalf("RenderDocuments() error = %v", err)
	}

	html, _ := docs.Get(DocNoteSheet)
	if !strings.Contains(html, "86500.00") {
		t.Error("default notes missing the bill total")
	}
	if !strings.Contains(html, "8650.00") {
		t.Error("default notes missing the premium amount")
	}
}

func TestTemplateFuncs(t *testing.T) {
	t.Parallel()

	money := templateFuncs["money"].(func(float64) string)
	qty := templateFuncs["qty"].(func(float64) string)

	if got := money(1234.5); got != "1234.50" {
		t.Errorf("money(1234.5) = %q, want 1234.50", got)
	}
	tests := []struct {
		in   float64
		want string
	}{
		{100, "100"},
		{10.5, "10.5"},
		{10.25, "10.25"},
		{0, "0"},
	}
	for _, tt := range tests {
		if got := qty(tt.in); got != tt.want {
			t.Errorf("qty(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderDocuments_ExtraItemsEmpty(t *testing.T) {
	t.Parallel()

	bundle := renderBundle()
	bundle.ExtraItems = nil

	docs, err := NewRenderer().RenderDocuments(bundle)
	if err != nil {
		t.Fatalf("RenderDocuments() error = %v", err)
	}
	if _, ok := docs.Get(DocExtraItems); !ok {
		t.Error("extra items document must render even when the table is empty")
	}
}
