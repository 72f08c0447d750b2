package xlreport

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Размножение шаблонного диапазона идёт в три фазы:
// снимок диапазона до изменений, запись копий со смещением, удаление исходных строк.

// снимок ячейки шаблонного диапазона
type templateCell struct {
	at    Coord
	raw   string
	style int
	cond  []excelize.ConditionalFormatOptions
}

type templateRange struct {
	rng    Range
	cells  []templateCell
	merges []Range
}

func (t *templateRange) rowsFound() int { return t.rng.Height() }

// snapshot, фаза 1: содержимое, стиль и условное форматирование каждой ячейки
// плюс объединения, целиком лежащие внутри диапазона.
func snapshot(doc Document, rng Range) (*templateRange, error) {
	t := &templateRange{rng: rng}
	for row := rng.From.Row; row <= rng.To.Row; row++ {
		for col := rng.From.Col; col <= rng.To.Col; col++ {
			c := Coord{Col: col, Row: row}
			raw, err := doc.Cell(c)
			if err != nil {
				return nil, fmt.Errorf("ячейка %s: %w", c, err)
			}
			style, err := doc.Style(c)
			if err != nil {
				return nil, fmt.Errorf("стиль %s: %w", c, err)
			}
			cond, err := doc.ConditionalFormat(c)
			if err != nil {
				return nil, fmt.Errorf("условное форматирование %s: %w", c, err)
			}
			t.cells = append(t.cells, templateCell{at: c, raw: raw, style: style, cond: cond})
		}
	}
	merges, err := doc.MergedRegions()
	if err != nil {
		return nil, err
	}
	for _, m := range merges {
		if rng.Contains(m) {
			t.merges = append(t.merges, m)
		}
	}
	return t, nil
}

// insertAfter вставляет n строк сразу за шаблонным диапазоном.
// Если диапазон заканчивается на последней заполненной строке, копии просто дописываются ниже.
func (r *Report) insertAfter(b *block, t *templateRange, n int) error {
	if n <= 0 {
		return nil
	}
	if b.IsLast {
		r.log.Debug("диапазон в конце документа, строки не вставляются", "block", b.ID, "rows", n)
		return nil
	}
	r.log.Debug("вставка строк", "block", b.ID, "before", t.rng.To.Row+1, "rows", n)
	return r.doc.InsertRowsBefore(t.rng.To.Row+1, n)
}

// writeCopy, фаза 2: пишет копию шаблона со смещением skip строк.
// counter равен номеру строки данных для тегов {id:#}, у итоговых строк 0.
func (r *Report) writeCopy(b *block, t *templateRange, data Row, counter, skip int) error {
	tc := &tagContext{row: data, counter: counter, step: b.Step, format: b.Format}
	stripe := r.stripRows && counter%2 == 1
	for _, cell := range t.cells {
		dst := cell.at.Offset(skip)
		if cell.raw != "" {
			var v interface{} = cell.raw
			if b.tags.match(cell.raw) {
				v = b.tags.resolve(cell.raw, tc)
			}
			if err := r.doc.SetCell(dst, v); err != nil {
				return err
			}
		}
		if cell.style != 0 {
			if err := r.doc.SetStyle(Range{From: dst, To: dst}, cell.style); err != nil {
				return err
			}
		}
		if err := r.doc.SetConditionalFormat(dst, cell.cond); err != nil {
			return err
		}
		if stripe {
			if err := r.doc.ApplyStyle(Range{From: dst, To: dst}, stripStyle); err != nil {
				return err
			}
		}
	}
	for _, m := range t.merges {
		if err := r.doc.MergeCells(m.Offset(skip)); err != nil {
			return fmt.Errorf("объединение %s: %w", m.Offset(skip), err)
		}
	}
	return nil
}

// expandRows размножает диапазон по всем строкам блока без группировки.
func (r *Report) expandRows(b *block, t *templateRange) error {
	rowsFound := t.rowsFound()
	if extra := len(b.Rows) - b.MinRows; extra > 0 {
		if err := r.insertAfter(b, t, extra*rowsFound); err != nil {
			return err
		}
	}
	for i, data := range b.Rows {
		counter := i + 1
		if err := r.writeCopy(b, t, data, counter, counter*rowsFound); err != nil {
			return fmt.Errorf("строка %d: %w", i, err)
		}
	}
	return nil
}

// removeTemplate, фаза 3: снимает объединения шаблона и удаляет его строки.
// При reapply правила условного форматирования, пропавшие вместе с удалёнными строками,
// возвращаются на те же адреса, которые теперь занимает первая копия.
func (r *Report) removeTemplate(t *templateRange, reapply bool) error {
	for _, m := range t.merges {
		if err := r.doc.UnmergeCells(m); err != nil {
			return err
		}
	}
	if err := r.doc.RemoveRows(t.rng.From.Row, t.rowsFound()); err != nil {
		return err
	}
	if !reapply {
		return nil
	}
	for _, cell := range t.cells {
		if len(cell.cond) == 0 {
			continue
		}
		cur, err := r.doc.ConditionalFormat(cell.at)
		if err != nil {
			return err
		}
		if len(cur) > 0 {
			continue
		}
		if err := r.doc.SetConditionalFormat(cell.at, cell.cond); err != nil {
			return err
		}
	}
	return nil
}

// noResultRow заменяет шаблон одной объединённой строкой с текстом об отсутствии данных.
func (r *Report) noResultRow(t *templateRange) error {
	row := t.rng.From.Row
	if err := r.doc.InsertRowsBefore(row, 1); err != nil {
		return err
	}
	span := RowSpan(row, t.rng.From.Col, t.rng.To.Col)
	if err := r.doc.SetCell(span.From, r.noResultText); err != nil {
		return err
	}
	if span.Width() > 1 {
		if err := r.doc.MergeCells(span); err != nil {
			return err
		}
	}
	return r.doc.ApplyStyle(span, noResultStyle)
}

// expandBlock находит диапазон блока и заменяет его данными.
func (r *Report) expandBlock(b *block) error {
	rng, ok, err := b.tags.locate(r.doc)
	if err != nil {
		return err
	}
	if !ok {
		r.log.Debug("теги блока не найдены, блок пропущен", "block", b.ID)
		return nil
	}
	highest, err := r.doc.HighestRow()
	if err != nil {
		return err
	}
	b.IsLast = rng.To.Row >= highest
	r.log.Debug("найден шаблонный диапазон", "block", b.ID, "range", rng.String(), "last", b.IsLast)

	t, err := snapshot(r.doc, rng)
	if err != nil {
		return err
	}

	if len(b.Rows) == 0 {
		if err := r.removeTemplate(t, false); err != nil {
			return err
		}
		return r.noResultRow(t)
	}

	if b.Group != nil {
		groups, err := b.resolveGroups()
		if err != nil {
			return err
		}
		if err := r.expandGroups(b, t, groups); err != nil {
			return err
		}
		return r.removeTemplate(t, false)
	}

	if err := r.expandRows(b, t); err != nil {
		return err
	}
	return r.removeTemplate(t, true)
}
