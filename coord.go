package xlreport

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Coord задаёт адрес ячейки, индексы 1-based (как в Excel).
type Coord struct {
	Col int
	Row int
}

// Offset сдвигает адрес на rows строк.
func (c Coord) Offset(rows int) Coord { return Coord{Col: c.Col, Row: c.Row + rows} }

func (c Coord) String() string {
	s, err := excelize.CoordinatesToCellName(c.Col, c.Row)
	if err != nil {
		return fmt.Sprintf("R%dC%d", c.Row, c.Col)
	}
	return s
}

// ParseCoord разбирает адрес вида "B12".
func ParseCoord(s string) (Coord, error) {
	col, row, err := excelize.CellNameToCoordinates(strings.TrimSpace(s))
	if err != nil {
		return Coord{}, err
	}
	return Coord{Col: col, Row: row}, nil
}

// Range: прямоугольная область от левого верхнего угла From до правого нижнего To.
type Range struct {
	From Coord
	To   Coord
}

// Cells строит нормализованный диапазон по двум углам.
func Cells(a, b Coord) Range {
	r := Range{From: a, To: b}
	if r.From.Col > r.To.Col {
		r.From.Col, r.To.Col = r.To.Col, r.From.Col
	}
	if r.From.Row > r.To.Row {
		r.From.Row, r.To.Row = r.To.Row, r.From.Row
	}
	return r
}

// RowSpan возвращает диапазон одной строки от firstCol до lastCol.
func RowSpan(row, firstCol, lastCol int) Range {
	return Cells(Coord{Col: firstCol, Row: row}, Coord{Col: lastCol, Row: row})
}

// ParseRange разбирает "A1:C3" либо одиночный адрес "A1".
func ParseRange(s string) (Range, error) {
	from, to, found := strings.Cut(strings.TrimSpace(s), ":")
	a, err := ParseCoord(from)
	if err != nil {
		return Range{}, err
	}
	if !found {
		return Range{From: a, To: a}, nil
	}
	b, err := ParseCoord(to)
	if err != nil {
		return Range{}, err
	}
	return Cells(a, b), nil
}

func (r Range) Offset(rows int) Range {
	return Range{From: r.From.Offset(rows), To: r.To.Offset(rows)}
}

func (r Range) Width() int  { return r.To.Col - r.From.Col + 1 }
func (r Range) Height() int { return r.To.Row - r.From.Row + 1 }

// Contains: sub целиком лежит внутри r.
func (r Range) Contains(sub Range) bool {
	return sub.From.Col >= r.From.Col && sub.From.Row >= r.From.Row &&
		sub.To.Col <= r.To.Col && sub.To.Row <= r.To.Row
}

func (r Range) Has(c Coord) bool { return r.Contains(Range{From: c, To: c}) }

func (r Range) String() string {
	if r.From == r.To {
		return r.From.String()
	}
	return r.From.String() + ":" + r.To.String()
}
