// Package pdftext extracts plain text from PDF content streams.
//
// The extraction is deliberately modest: it decodes page content streams
// and collects the arguments of text-showing operators (Tj, TJ, ', ").
// Fonts with simple byte encodings (the native table renderer, most
// office exports) extract faithfully; heavily subsetted embedded fonts
// may not. That is sufficient for word-set fidelity scoring, which is the
// package's only consumer.
package pdftext

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ExtractPages returns the text of every page, one string per page.
func ExtractPages(pdf []byte) ([]string, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(pdf), conf)
	if err != nil {
		return nil, fmt.Errorf("pdftext: reading pdf: %w", err)
	}

	pages := make([]string, 0, ctx.PageCount)
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
		if err != nil || r == nil {
			pages = append(pages, "")
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, parseContent(content))
	}
	return pages, nil
}

// ExtractText returns the concatenated text of all pages.
func ExtractText(pdf []byte) (string, error) {
	pages, err := ExtractPages(pdf)
	if err != nil {
		return "", err
	}
	var b bytes.Buffer
	for i, p := range pages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(p)
	}
	return b.String(), nil
}

// parseContent scans a decoded content stream for text-showing operators
// and joins their string arguments with spaces.
func parseContent(stream []byte) string {
	var out bytes.Buffer
	i := 0
	write := func(s []byte) {
		if len(s) == 0 {
			return
		}
		if out.Len() > 0 {
			out.WriteByte(' ')
		}
		out.Write(s)
	}

	for i < len(stream) {
		switch stream[i] {
		case '(':
			s, next := readLiteralString(stream, i)
			write(s)
			i = next
		case '<':
			// Dictionaries open with "<<"; hex strings with a single "<".
			if i+1 < len(stream) && stream[i+1] == '<' {
				i += 2
				continue
			}
			s, next := readHexString(stream, i)
			write(s)
			i = next
		case '%':
			// Comment runs to end of line.
			for i < len(stream) && stream[i] != '\n' {
				i++
			}
		default:
			i++
		}
	}
	return out.String()
}

// readLiteralString decodes a PDF literal string starting at the opening
// parenthesis. Returns the decoded bytes and the index after the closing
// parenthesis.
func readLiteralString(stream []byte, start int) ([]byte, int) {
	var out []byte
	depth := 0
	i := start
	for i < len(stream) {
		c := stream[i]
		switch c {
		case '\\':
			if i+1 < len(stream) {
				out = append(out, unescape(stream[i+1]))
				i += 2
				continue
			}
			i++
		case '(':
			depth++
			if depth > 1 {
				out = append(out, c)
			}
			i++
		case ')':
			depth--
			if depth == 0 {
				return out, i + 1
			}
			out = append(out, c)
			i++
		default:
			out = append(out, c)
			i++
		}
	}
	return out, i
}

// unescape maps a PDF string escape to its byte value. Octal escapes are
// not decoded; their digits pass through, which is harmless for word-set
// comparison.
func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	default:
		return c
	}
}

// readHexString decodes a PDF hex string starting at '<'. Returns the
// decoded bytes and the index after the closing '>'.
func readHexString(stream []byte, start int) ([]byte, int) {
	var out []byte
	var hi byte
	haveHi := false
	i := start + 1
	for i < len(stream) {
		c := stream[i]
		if c == '>' {
			if haveHi {
				out = append(out, hi<<4)
			}
			return out, i + 1
		}
		if v, ok := hexVal(c); ok {
			if haveHi {
				out = append(out, hi<<4|v)
				haveHi = false
			} else {
				hi = v
				haveHi = true
			}
		}
		i++
	}
	return out, i
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
