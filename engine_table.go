package billdocs

import (
	"context"
	"fmt"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// Grid layout constants for the reconstruction renderer. Maroto lays
// columns on a 12-unit grid.
const (
	gridUnits     = 12
	maxGridCells  = 12
	tableRowH     = 6
	tableTextSize = 7
)

// tableEngine is the last real engine in the chain: it rebuilds the
// document natively instead of rendering HTML. Every <table> is extracted
// as a plain-text grid and drawn as a bordered table; a document without
// tables degrades to a paragraph-per-line dump of its visible text. Layout
// fidelity is sacrificed, text content is not.
type tableEngine struct{}

func newTableEngine() *tableEngine {
	return &tableEngine{}
}

func (e *tableEngine) Name() string { return engineTable }

// Convert rebuilds the document with maroto. Deviation statements are
// wider than tall and get landscape orientation; everything else is
// portrait.
func (e *tableEngine) Convert(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	builder := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).
		WithTopMargin(10).
		WithRightMargin(10)
	if strings.Contains(strings.ToLower(doc.Name), "deviation") {
		builder = builder.WithOrientation(orientation.Horizontal)
	}
	m := maroto.New(builder.Build())

	addDocTitle(m, doc.Name)

	tables, err := ExtractTables(doc.HTML)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	if len(tables) > 0 {
		for i, grid := range tables {
			if i > 0 {
				m.AddRows(row.New(4))
			}
			addTableGrid(m, grid)
		}
	} else {
		lines, err := VisibleText(doc.HTML)
		if err != nil {
			return nil, fmt.Errorf("parsing html: %w", err)
		}
		addTextLines(m, lines)
	}

	generated, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	return generated.GetBytes(), nil
}

func (e *tableEngine) Close() error { return nil }

// addDocTitle draws the document name as a heading.
func addDocTitle(m core.Maroto, name string) {
	m.AddRows(
		row.New(10).Add(
			col.New(gridUnits).Add(
				text.New(name, props.Text{
					Size:  12,
					Style: fontstyle.Bold,
					Align: align.Center,
				}),
			),
		),
		row.New(2),
	)
}

// addTableGrid draws one extracted table as a bordered grid. Cell widths
// split the 12-unit grid evenly, with the remainder going to the second
// column, which holds descriptions in every statutory layout.
func addTableGrid(m core.Maroto, grid TableGrid) {
	width := 0
	for _, r := range grid {
		if len(r) > width {
			width = len(r)
		}
	}
	if width == 0 {
		return
	}
	if width > maxGridCells {
		width = maxGridCells
	}

	base := gridUnits / width
	extra := gridUnits - base*width
	cellStyle := &props.Cell{BorderType: border.Full}

	for rowIdx, cells := range grid {
		textProps := props.Text{Size: tableTextSize, Align: align.Left, Top: 1, Left: 1}
		if rowIdx == 0 {
			textProps.Style = fontstyle.Bold
		}

		cols := make([]core.Col, 0, width)
		for i := 0; i < width; i++ {
			span := base
			if i == 1 || (width == 1 && i == 0) {
				span += extra
			}
			content := ""
			if i < len(cells) {
				content = cells[i]
			}
			cols = append(cols, col.New(span).Add(text.New(content, textProps)).WithStyle(cellStyle))
		}
		m.AddRows(row.New(tableRowH).Add(cols...))
	}
}

// addTextLines dumps visible text one paragraph per line.
func addTextLines(m core.Maroto, lines []string) {
	for _, line := range lines {
		m.AddRows(
			row.New(5).Add(
				col.New(gridUnits).Add(
					text.New(line, props.Text{Size: 9, Align: align.Left}),
				),
			),
		)
	}
}
