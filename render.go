package billdocs

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/alnah/go-billdocs/internal/assets"
)

// documentTemplates maps each document name to its embedded template.
var documentTemplates = map[string]string{
	DocFirstPageSummary: "first_page_summary",
	DocBillSummary:      "bill_summary",
	DocWorkOrderDetails: "work_order_details",
	DocDeviationStmt:    "deviation_statement",
	DocExtraItems:       "extra_items",
	DocCertificateII:    "certificate_ii",
	DocCertificateIII:   "certificate_iii",
	DocNoteSheet:        "note_sheet",
}

// templateFuncs are the formatting helpers available to all templates.
var templateFuncs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"qty": func(v float64) string {
		s := strconv.FormatFloat(v, 'f', 2, 64)
		s = strings.TrimRight(s, "0")
		return strings.TrimRight(s, ".")
	},
}

// DeviationRow compares one work-order item against its executed
// quantity. Items are matched positionally against the bill-quantity
// table, which mirrors how the deviation statement is drawn up on paper.
type DeviationRow struct {
	ItemNo      string
	Description string
	Unit        string
	OrderedQty  float64
	ExecutedQty float64
	Delta       float64
	Rate        float64
	AmountDelta float64
}

// renderContext is the data handed to every document template.
type renderContext struct {
	CSS            template.CSS
	Title          *TitleMetadata
	WorkOrder      []LineItem
	BillQuantity   []LineItem
	ExtraItems     []LineItem
	WorkOrderTotal float64
	BillTotal      float64
	ExtraTotal     float64
	PremiumPercent float64
	PremiumAmount  float64
	Payable        float64
	Deviations     []DeviationRow
	DeviationTotal float64
	NoteHTML       template.HTML
}

// Renderer turns a normalized bundle into the fixed set of statutory HTML
// documents.
type Renderer struct {
	notes string
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithNotes sets the Markdown source of the Note Sheet body. When unset,
// a summary note is generated from the bundle.
func WithNotes(markdown string) RendererOption {
	return func(r *Renderer) {
		r.notes = markdown
	}
}

// NewRenderer creates a Renderer.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RenderDocuments renders all eight statutory documents in their fixed
// order. The output order is the page order of the final merged bill.
func (r *Renderer) RenderDocuments(b *WorkbookBundle) (DocumentSet, error) {
	ctx, err := r.buildContext(b)
	if err != nil {
		return nil, err
	}

	set := make(DocumentSet, 0, len(DocumentNames))
	for _, name := range DocumentNames {
		html, err := renderDocument(name, ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTemplateRender, name, err)
		}
		set = append(set, Document{Name: name, HTML: html})
	}
	return set, nil
}

// RenderDocument renders a single named document.
func (r *Renderer) RenderDocument(name string, b *WorkbookBundle) (string, error) {
	if _, ok := documentTemplates[name]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDocument, name)
	}
	ctx, err := r.buildContext(b)
	if err != nil {
		return "", err
	}
	return renderDocument(name, ctx)
}

// buildContext computes totals, deviations and the note body once per
// bundle.
func (r *Renderer) buildContext(b *WorkbookBundle) (*renderContext, error) {
	if b == nil || b.Title == nil {
		return nil, fmt.Errorf("%w: bundle missing title metadata", ErrTemplateRender)
	}

	css, err := assets.LoadStyle("bill")
	if err != nil {
		return nil, err
	}

	ctx := &renderContext{
		CSS:          template.CSS(css),
		Title:        b.Title,
		WorkOrder:    b.WorkOrder,
		BillQuantity: b.BillQuantity,
		ExtraItems:   b.ExtraItems,
	}

	ctx.WorkOrderTotal = itemTotal(b.WorkOrder)
	ctx.BillTotal = itemTotal(b.BillQuantity)
	ctx.ExtraTotal = itemTotal(b.ExtraItems)
	ctx.PremiumPercent = coerceFloat(b.Title.Value(KeyTenderPremium))
	ctx.PremiumAmount = ctx.BillTotal * ctx.PremiumPercent / 100
	ctx.Payable = ctx.BillTotal + ctx.PremiumAmount + ctx.ExtraTotal
	ctx.Deviations, ctx.DeviationTotal = deviations(b.WorkOrder, b.BillQuantity)

	notes := r.notes
	if notes == "" {
		notes = defaultNotes(ctx)
	}
	noteHTML, err := markdownToHTML(notes)
	if err != nil {
		return nil, fmt.Errorf("%w: note sheet: %v", ErrTemplateRender, err)
	}
	ctx.NoteHTML = template.HTML(noteHTML) // #nosec G203 -- generated from our own markdown rendering

	return ctx, nil
}

// renderDocument executes one embedded template against the context.
func renderDocument(name string, ctx *renderContext) (string, error) {
	tmplName := documentTemplates[name]
	source, err := assets.LoadTemplate(tmplName)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(tmplName).Funcs(templateFuncs).Parse(source)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// itemTotal sums line-item amounts.
func itemTotal(items []LineItem) float64 {
	total := 0.0
	for _, item := range items {
		total += item.Amount
	}
	return total
}

// deviations pairs work-order items with executed quantities by item
// number, falling back to position when numbers are absent.
func deviations(workOrder, billQuantity []LineItem) ([]DeviationRow, float64) {
	executed := make(map[string]LineItem, len(billQuantity))
	for _, item := range billQuantity {
		if item.ItemNo != "" {
			executed[item.ItemNo] = item
		}
	}

	rows := make([]DeviationRow, 0, len(workOrder))
	total := 0.0
	for i, wo := range workOrder {
		bq, ok := executed[wo.ItemNo]
		if !ok && i < len(billQuantity) {
			bq = billQuantity[i]
		}
		delta := bq.Quantity - wo.Quantity
		row := DeviationRow{
			ItemNo:      wo.ItemNo,
			Description: wo.Description,
			Unit:        wo.Unit,
			OrderedQty:  wo.Quantity,
			ExecutedQty: bq.Quantity,
			Delta:       delta,
			Rate:        wo.Rate,
			AmountDelta: delta * wo.Rate,
		}
		rows = append(rows, row)
		total += row.AmountDelta
	}
	return rows, total
}

// defaultNotes generates the Note Sheet body when the caller supplies
// none.
func defaultNotes(ctx *renderContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Notes\n\n")
	fmt.Fprintf(&b, "- Value of work done: **%.2f**\n", ctx.BillTotal)
	fmt.Fprintf(&b, "- Tender premium @ %s%%: **%.2f**\n",
		ctx.Title.Value(KeyTenderPremium), ctx.PremiumAmount)
	if len(ctx.ExtraItems) > 0 {
		fmt.Fprintf(&b, "- Extra items executed: **%d** totalling **%.2f**\n",
			len(ctx.ExtraItems), ctx.ExtraTotal)
	}
	fmt.Fprintf(&b, "- Net amount payable: **%.2f**\n", ctx.Payable)
	return b.String()
}

// markdownToHTML converts Markdown note text with goldmark.
func markdownToHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
