package xlreport

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Document — изменяемая сетка ячеек, с которой работает движок отчёта.
// Идентификатор стиля ячейки одновременно является её индексом формата (XF).
type Document interface {
	Cell(c Coord) (string, error)
	SetCell(c Coord, v interface{}) error

	Style(c Coord) (int, error)
	SetStyle(r Range, styleID int) error
	// ApplyStyle накладывает описание стиля поверх текущего стиля каждой ячейки диапазона.
	ApplyStyle(r Range, s *excelize.Style) error

	ConditionalFormat(c Coord) ([]excelize.ConditionalFormatOptions, error)
	SetConditionalFormat(c Coord, rules []excelize.ConditionalFormatOptions) error

	MergeCells(r Range) error
	UnmergeCells(r Range) error
	MergedRegions() ([]Range, error)

	InsertRowsBefore(row, n int) error
	RemoveRows(row, n int) error
	SetRowHeight(row int, height float64) error
	SetColWidth(col int, width float64) error

	HighestRow() (int, error)
	HighestColumn() (int, error)
	// Rows возвращает сырые значения ячеек построчно в порядке документа.
	Rows() ([][]string, error)
}

// ExcelDocument реализует Document поверх листа excelize.
type ExcelDocument struct {
	f     *excelize.File
	sheet string
	// кэш наложенных стилей: (исходный стиль, описание) -> новый стиль
	overlays map[overlayKey]int
}

type overlayKey struct {
	base  int
	style *excelize.Style
}

var _ Document = (*ExcelDocument)(nil)

// NewExcelDocument оборачивает лист sheet; при пустом имени берётся активный лист книги.
func NewExcelDocument(f *excelize.File, sheet string) (*ExcelDocument, error) {
	if f == nil {
		return nil, ErrNoDocument
	}
	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		return nil, fmt.Errorf("лист %q не найден", sheet)
	}
	return &ExcelDocument{f: f, sheet: sheet, overlays: map[overlayKey]int{}}, nil
}

// File возвращает книгу excelize.
func (d *ExcelDocument) File() *excelize.File { return d.f }

// Sheet возвращает имя обрабатываемого листа.
func (d *ExcelDocument) Sheet() string { return d.sheet }

func (d *ExcelDocument) Cell(c Coord) (string, error) {
	return d.f.GetCellValue(d.sheet, c.String(), excelize.Options{RawCellValue: true})
}

func (d *ExcelDocument) SetCell(c Coord, v interface{}) error {
	return d.f.SetCellValue(d.sheet, c.String(), v)
}

func (d *ExcelDocument) Style(c Coord) (int, error) {
	return d.f.GetCellStyle(d.sheet, c.String())
}

func (d *ExcelDocument) SetStyle(r Range, styleID int) error {
	return d.f.SetCellStyle(d.sheet, r.From.String(), r.To.String(), styleID)
}

func (d *ExcelDocument) ApplyStyle(r Range, s *excelize.Style) error {
	if s == nil {
		return nil
	}
	for row := r.From.Row; row <= r.To.Row; row++ {
		for col := r.From.Col; col <= r.To.Col; col++ {
			c := Coord{Col: col, Row: row}
			base, err := d.Style(c)
			if err != nil {
				return err
			}
			id, err := d.overlay(base, s)
			if err != nil {
				return err
			}
			if err := d.f.SetCellStyle(d.sheet, c.String(), c.String(), id); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *ExcelDocument) overlay(base int, s *excelize.Style) (int, error) {
	key := overlayKey{base: base, style: s}
	if id, ok := d.overlays[key]; ok {
		return id, nil
	}
	merged := &excelize.Style{}
	if st, err := d.f.GetStyle(base); err == nil && st != nil {
		merged = st
	}
	mergeStyle(merged, s)
	id, err := d.f.NewStyle(merged)
	if err != nil {
		// исходный стиль не пересобрался, применяем описание как есть
		if id, err = d.f.NewStyle(s); err != nil {
			return 0, err
		}
	}
	d.overlays[key] = id
	return id, nil
}

// mergeStyle переносит заданные части src в dst.
func mergeStyle(dst, src *excelize.Style) {
	if src.Font != nil {
		if dst.Font == nil {
			dst.Font = &excelize.Font{}
		}
		if src.Font.Bold {
			dst.Font.Bold = true
		}
		if src.Font.Italic {
			dst.Font.Italic = true
		}
		if src.Font.Size > 0 {
			dst.Font.Size = src.Font.Size
		}
		if src.Font.Color != "" {
			dst.Font.Color = src.Font.Color
		}
	}
	if src.Fill.Type != "" {
		dst.Fill = src.Fill
	}
	if src.Alignment != nil {
		if dst.Alignment == nil {
			dst.Alignment = &excelize.Alignment{}
		}
		if src.Alignment.Horizontal != "" {
			dst.Alignment.Horizontal = src.Alignment.Horizontal
		}
		if src.Alignment.Vertical != "" {
			dst.Alignment.Vertical = src.Alignment.Vertical
		}
		if src.Alignment.WrapText {
			dst.Alignment.WrapText = true
		}
	}
	if len(src.Border) > 0 {
		dst.Border = append([]excelize.Border(nil), src.Border...)
	}
}

// ConditionalFormat собирает правила, чьи диапазоны покрывают ячейку c.
func (d *ExcelDocument) ConditionalFormat(c Coord) ([]excelize.ConditionalFormatOptions, error) {
	all, err := d.f.GetConditionalFormats(d.sheet)
	if err != nil {
		return nil, err
	}
	refs := make([]string, 0, len(all))
	for ref := range all {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	var out []excelize.ConditionalFormatOptions
	for _, sqref := range refs {
		for _, ref := range strings.Fields(sqref) {
			rng, err := ParseRange(ref)
			if err != nil {
				continue
			}
			if rng.Has(c) {
				out = append(out, all[sqref]...)
				break
			}
		}
	}
	return out, nil
}

func (d *ExcelDocument) SetConditionalFormat(c Coord, rules []excelize.ConditionalFormatOptions) error {
	if len(rules) == 0 {
		return nil
	}
	return d.f.SetConditionalFormat(d.sheet, c.String(), rules)
}

func (d *ExcelDocument) MergeCells(r Range) error {
	return d.f.MergeCell(d.sheet, r.From.String(), r.To.String())
}

func (d *ExcelDocument) UnmergeCells(r Range) error {
	return d.f.UnmergeCell(d.sheet, r.From.String(), r.To.String())
}

func (d *ExcelDocument) MergedRegions() ([]Range, error) {
	merges, err := d.f.GetMergeCells(d.sheet)
	if err != nil {
		return nil, err
	}
	out := make([]Range, 0, len(merges))
	for _, m := range merges {
		rng, err := ParseRange(m.GetStartAxis() + ":" + m.GetEndAxis())
		if err != nil {
			return nil, err
		}
		out = append(out, rng)
	}
	return out, nil
}

func (d *ExcelDocument) InsertRowsBefore(row, n int) error {
	if n <= 0 {
		return nil
	}
	return d.f.InsertRows(d.sheet, row, n)
}

// RemoveRows удаляет n строк начиная с row; удаляем снизу вверх.
func (d *ExcelDocument) RemoveRows(row, n int) error {
	for r := row + n - 1; r >= row; r-- {
		if err := d.f.RemoveRow(d.sheet, r); err != nil {
			return err
		}
	}
	return nil
}

func (d *ExcelDocument) SetRowHeight(row int, height float64) error {
	return d.f.SetRowHeight(d.sheet, row, height)
}

func (d *ExcelDocument) SetColWidth(col int, width float64) error {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return err
	}
	return d.f.SetColWidth(d.sheet, name, name, width)
}

func (d *ExcelDocument) HighestRow() (int, error) {
	rows, err := d.Rows()
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (d *ExcelDocument) HighestColumn() (int, error) {
	rows, err := d.Rows()
	if err != nil {
		return 0, err
	}
	maxCol := 0
	for _, row := range rows {
		if len(row) > maxCol {
			maxCol = len(row)
		}
	}
	if maxCol == 0 {
		maxCol = 1
	}
	return maxCol, nil
}

func (d *ExcelDocument) Rows() ([][]string, error) {
	return d.f.GetRows(d.sheet, excelize.Options{RawCellValue: true})
}

// WriteTo пишет книгу в формате xlsx.
func (d *ExcelDocument) WriteTo(w io.Writer) (int64, error) {
	return d.f.WriteTo(w)
}

// SaveAs сохраняет книгу в файл.
func (d *ExcelDocument) SaveAs(path string) error { return d.f.SaveAs(path) }
