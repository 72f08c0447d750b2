package xlreport

import "github.com/xuri/excelize/v2"

// scaffold размечает пустой лист для отчёта без шаблона: для каждого блока
// строка шапки {HEADER_id:поле}, строка тегов {id:поле} и строка подвала {FOOTER_id:поле}.
// Блоки идут друг под другом через пустую строку.
func (r *Report) scaffold() error {
	for _, b := range r.blocks {
		sample := b.Values
		if len(b.Rows) > 0 {
			sample = b.Rows[0]
		}
		if sample == nil {
			sample = b.Header
		}
		fields := fieldsOf(b.Fields, sample)
		if len(fields) == 0 {
			r.log.Debug("нет полей для разметки, блок пропущен", "block", b.ID)
			continue
		}
		if b.Repeating() {
			b.Rows = NormalizeRows(b.Rows, fields)
		}

		row, err := r.doc.HighestRow()
		if err != nil {
			return err
		}
		if row > 0 {
			row++
		}
		row++

		if b.Header != nil {
			if err := r.tagRow(newTagPattern("HEADER_"+b.ID), row, fields, b.Header, b.Columns, headerStyle); err != nil {
				return err
			}
			row++
		}
		for i, f := range fields {
			if w := b.Columns[f].Width; w > 0 {
				if err := r.doc.SetColWidth(i+1, pixelsToWidth(w)); err != nil {
					return err
				}
			}
		}
		if err := r.tagRow(b.tags, row, fields, nil, b.Columns, nil); err != nil {
			return err
		}
		row++
		if b.Footer != nil {
			if err := r.tagRow(newTagPattern("FOOTER_"+b.ID), row, fields, b.Footer, b.Columns, footerStyle); err != nil {
				return err
			}
		}
		r.log.Debug("блок размечен", "block", b.ID, "fields", len(fields))
	}
	return nil
}

// tagRow пишет теги полей в строку row. Если задан only, теги ставятся только для его ключей,
// остальные ячейки строки получают лишь стиль.
func (r *Report) tagRow(p *tagPattern, row int, fields []string, only Row, cols map[string]Column, style *excelize.Style) error {
	for i, f := range fields {
		c := Coord{Col: i + 1, Row: row}
		if _, ok := only[f]; only == nil || ok {
			if err := r.doc.SetCell(c, p.tag(f)); err != nil {
				return err
			}
		}
		one := Range{From: c, To: c}
		if style != nil {
			if err := r.doc.ApplyStyle(one, style); err != nil {
				return err
			}
		}
		if a := cols[f].Align; a != "" {
			if err := r.doc.ApplyStyle(one, alignStyle(a)); err != nil {
				return err
			}
		}
	}
	return nil
}
