package xlreport

import "fmt"

// groupLayout считает, сколько строк займут группы блока после шаблона.
func groupLayout(groups []Group, summaries []Row, rowsFound int) int {
	total := len(groups)
	for i, g := range groups {
		total += rowsFound * len(g.Rows)
		if summaries[i] != nil {
			total += rowsFound
		}
	}
	return total
}

// expandGroups выводит группы подряд: заголовок, строки группы, итог.
// Курсор строк общий для всех групп, поэтому группы идут без разрывов.
func (r *Report) expandGroups(b *block, t *templateRange, groups []Group) error {
	summaries := make([]Row, len(groups))
	for i, g := range groups {
		s, err := b.summaryRow(g)
		if err != nil {
			return err
		}
		summaries[i] = s
	}

	rowsFound := t.rowsFound()
	if err := r.insertAfter(b, t, groupLayout(groups, summaries, rowsFound)); err != nil {
		return err
	}

	first := t.rng.From.Row
	cursor := t.rng.To.Row + 1
	counter := 0
	for gi, g := range groups {
		r.log.Debug("группа", "block", b.ID, "group", g.Name, "rows", len(g.Rows), "at", cursor)
		if err := r.captionRow(t, cursor, g.Caption); err != nil {
			return fmt.Errorf("заголовок группы %q: %w", g.Name, err)
		}
		cursor++

		for _, ri := range g.Rows {
			counter++
			if err := r.writeCopy(b, t, b.Rows[ri], counter, cursor-first); err != nil {
				return fmt.Errorf("группа %q, строка %d: %w", g.Name, ri, err)
			}
			cursor += rowsFound
		}

		if summaries[gi] == nil {
			continue
		}
		if err := r.writeCopy(b, t, summaries[gi], 0, cursor-first); err != nil {
			return fmt.Errorf("итог группы %q: %w", g.Name, err)
		}
		span := Cells(Coord{Col: t.rng.From.Col, Row: cursor}, Coord{Col: t.rng.To.Col, Row: cursor + rowsFound - 1})
		if err := r.doc.ApplyStyle(span, groupSummaryStyle); err != nil {
			return err
		}
		cursor += rowsFound
	}
	return nil
}

// captionRow пишет объединённую на всю ширину строку заголовка группы.
func (r *Report) captionRow(t *templateRange, row int, caption string) error {
	span := RowSpan(row, t.rng.From.Col, t.rng.To.Col)
	if err := r.doc.SetCell(span.From, caption); err != nil {
		return err
	}
	if span.Width() > 1 {
		if err := r.doc.MergeCells(span); err != nil {
			return err
		}
	}
	return r.doc.ApplyStyle(span, groupCaptionStyle)
}
