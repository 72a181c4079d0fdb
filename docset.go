package billdocs

// Fixed document-name enumeration produced by the renderer and consumed by
// the conversion engine.
const (
	DocFirstPageSummary  = "First Page Summary"
	DocBillSummary       = "Bill Summary"
	DocWorkOrderDetails  = "Work Order Details"
	DocDeviationStmt     = "Deviation Statement"
	DocExtraItems        = "Extra Items"
	DocCertificateII     = "Certificate II"
	DocCertificateIII    = "Certificate III"
	DocNoteSheet         = "Note Sheet"
)

// DocumentNames lists all documents in their statutory order, which is
// also the page order of the merged output.
var DocumentNames = []string{
	DocFirstPageSummary,
	DocBillSummary,
	DocWorkOrderDetails,
	DocDeviationStmt,
	DocExtraItems,
	DocCertificateII,
	DocCertificateIII,
	DocNoteSheet,
}

// Document is one named HTML document awaiting conversion.
type Document struct {
	Name string
	HTML string
}

// DocumentSet is an ordered collection of rendered HTML documents. A slice
// rather than a map: iteration order is part of the conversion contract
// and carries through to merged page order.
type DocumentSet []Document

// Get returns the HTML for name and whether it is present.
func (s DocumentSet) Get(name string) (string, bool) {
	for _, d := range s {
		if d.Name == name {
			return d.HTML, true
		}
	}
	return "", false
}

// Names returns document names in set order.
func (s DocumentSet) Names() []string {
	out := make([]string, len(s))
	for i, d := range s {
		out[i] = d.Name
	}
	return out
}

// PDFDocument is one converted document. Name carries the ".pdf" suffix.
type PDFDocument struct {
	Name string
	Data []byte

	// Engine records which engine produced the output, for diagnostics.
	Engine string

	// Err holds the last conversion error when the synthetic error PDF
	// was produced. Nil for successful conversions.
	Err error
}

// PDFSet is an ordered collection of converted documents. The conversion
// engine guarantees exactly one entry per input document, in input order.
type PDFSet []PDFDocument

// Get returns the PDF bytes for name and whether it is present.
func (s PDFSet) Get(name string) ([]byte, bool) {
	for _, d := range s {
		if d.Name == name {
			return d.Data, true
		}
	}
	return nil, false
}

// Names returns document names in set order.
func (s PDFSet) Names() []string {
	out := make([]string, len(s))
	for i, d := range s {
		out[i] = d.Name
	}
	return out
}
