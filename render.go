package xlreport

import (
	"fmt"
	"html/template"
	"io"
	"strings"
)

// Типы вывода Export.
const (
	OutputHTML      = "html"
	OutputExcel     = "excel"
	OutputXLSX      = "xlsx"
	OutputExcel2003 = "excel2003"
	OutputPDF       = "pdf"
)

// CheckOutput проверяет, что тип вывода поддерживается Export.
func CheckOutput(typ string) error {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", OutputHTML, OutputExcel, OutputXLSX:
		return nil
	case OutputExcel2003, OutputPDF:
		return fmt.Errorf("%w: %s", ErrOutputUnavailable, typ)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedOutput, typ)
	}
}

// Export выводит сформированный документ в w. Пустой тип означает html.
func (r *Report) Export(w io.Writer, typ string) error {
	if r.doc == nil {
		return ErrNoDocument
	}
	if err := CheckOutput(typ); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case OutputExcel, OutputXLSX:
		wt, ok := r.doc.(io.WriterTo)
		if !ok {
			return fmt.Errorf("%w: %s", ErrOutputUnavailable, typ)
		}
		_, err := wt.WriteTo(w)
		return err
	default:
		return renderHTML(w, r.doc)
	}
}

// ячейка таблицы; ячейки, покрытые объединением, не выводятся
type htmlCell struct {
	Text    string
	ColSpan int
	RowSpan int
}

var htmlTmpl = template.Must(template.New("report").Parse(`<table border="1" cellspacing="0" cellpadding="2">
{{- range .}}
<tr>{{range .}}<td{{if gt .ColSpan 1}} colspan="{{.ColSpan}}"{{end}}{{if gt .RowSpan 1}} rowspan="{{.RowSpan}}"{{end}}>{{.Text}}</td>{{end}}</tr>
{{- end}}
</table>
`))

// renderHTML строит таблицу по прямоугольнику документа; объединения превращаются в colspan/rowspan.
func renderHTML(w io.Writer, doc Document) error {
	rows, err := doc.Rows()
	if err != nil {
		return err
	}
	width, err := doc.HighestColumn()
	if err != nil {
		return err
	}
	merges, err := doc.MergedRegions()
	if err != nil {
		return err
	}
	anchors := make(map[Coord]Range, len(merges))
	covered := map[Coord]bool{}
	for _, m := range merges {
		anchors[m.From] = m
		for row := m.From.Row; row <= m.To.Row; row++ {
			for col := m.From.Col; col <= m.To.Col; col++ {
				if c := (Coord{Col: col, Row: row}); c != m.From {
					covered[c] = true
				}
			}
		}
	}

	table := make([][]htmlCell, 0, len(rows))
	for rIdx, row := range rows {
		line := make([]htmlCell, 0, width)
		for col := 1; col <= width; col++ {
			c := Coord{Col: col, Row: rIdx + 1}
			if covered[c] {
				continue
			}
			cell := htmlCell{ColSpan: 1, RowSpan: 1}
			if col <= len(row) {
				cell.Text = row[col-1]
			}
			if m, ok := anchors[c]; ok {
				cell.ColSpan, cell.RowSpan = m.Width(), m.Height()
			}
			line = append(line, cell)
		}
		table = append(table, line)
	}
	return htmlTmpl.Execute(w, table)
}
