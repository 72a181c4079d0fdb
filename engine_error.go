package billdocs

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// errorHint is the fixed remediation line on synthetic error pages.
const errorHint = "Re-run document generation or check the input workbook for this document's data."

// syntheticErrorPDF produces the degraded output for a document whose
// conversion failed on every engine: a single page with the document name,
// the captured error, and a remediation hint. Emitting a page instead of
// dropping the key keeps the merged bill complete and the failure visible.
//
// Rendering here must not fail; if the PDF library itself errors, a
// minimal hand-built PDF is substituted so the completeness guarantee
// holds unconditionally.
func syntheticErrorPDF(name string, cause error) PDFDocument {
	message := "unknown conversion failure"
	if cause != nil {
		message = cause.Error()
	}

	m := maroto.New(config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(15).
		WithTopMargin(20).
		WithRightMargin(15).
		Build())

	m.AddRows(
		row.New(12).Add(
			col.New(12).Add(
				text.New(name, props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Center}),
			),
		),
		row.New(10).Add(
			col.New(12).Add(
				text.New("Conversion failed: "+message, props.Text{Size: 10, Align: align.Left}),
			),
		),
		row.New(10).Add(
			col.New(12).Add(
				text.New(errorHint, props.Text{Size: 10, Align: align.Left}),
			),
		),
	)

	data, err := func() (d []byte, genErr error) {
		defer func() {
			if r := recover(); r != nil {
				d, genErr = nil, ErrPDFGeneration
			}
		}()
		generated, genErr := m.Generate()
		if genErr != nil {
			return nil, genErr
		}
		return generated.GetBytes(), nil
	}()
	if err != nil || len(data) == 0 {
		data = minimalPDF(name)
	}

	return PDFDocument{Name: name + ".pdf", Data: data, Engine: "error", Err: cause}
}

// minimalPDF is the absolute floor: a syntactically valid one-page PDF
// showing only the document name.
func minimalPDF(name string) []byte {
	escaped := ""
	for _, r := range name {
		switch r {
		case '(', ')', '\\':
			escaped += "\\" + string(r)
		default:
			escaped += string(r)
		}
	}
	content := "BT /F1 12 Tf 72 720 Td (" + escaped + ") Tj ET"
	return buildSinglePagePDF(content)
}

// buildSinglePagePDF assembles a one-page PDF around a content stream.
func buildSinglePagePDF(stream string) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		"", // placeholder, stream object built below
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var b []byte
	b = append(b, "%PDF-1.4\n"...)
	offsets := make([]int, len(objects)+1)
	for i, obj := range objects {
		offsets[i+1] = len(b)
		if i == 3 {
			body := fmt.Sprintf("4 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(stream), stream)
			b = append(b, body...)
			continue
		}
		b = append(b, fmt.Sprintf("%d 0 obj\n%s\nendobj\n", i+1, obj)...)
	}

	xrefStart := len(b)
	b = append(b, fmt.Sprintf("xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)...)
	for i := 1; i <= len(objects); i++ {
		b = append(b, fmt.Sprintf("%010d 00000 n \n", offsets[i])...)
	}
	b = append(b, fmt.Sprintf("trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefStart)...)
	return b
}
