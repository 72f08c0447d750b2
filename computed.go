package xlreport

import (
	"fmt"

	expro "github.com/expr-lang/expr"
)

// applyComputed дописывает вычисляемые поля в копии строк блока.
// Выражения выполняются по порядку, следующее видит результаты предыдущих.
func (b *block) applyComputed() error {
	if len(b.computed) == 0 {
		return nil
	}
	rows := make([]Row, len(b.Rows))
	for i, src := range b.Rows {
		row, err := evalInto(b.computed, src)
		if err != nil {
			return blockErrorf(b.ID, b.index, "строка %d: %v", i, err)
		}
		rows[i] = row
	}
	b.Rows = rows
	if b.Values != nil {
		row, err := evalInto(b.computed, b.Values)
		if err != nil {
			return blockErrorf(b.ID, b.index, "values: %v", err)
		}
		b.Values = row
	}
	return nil
}

func evalInto(progs []program, src Row) (Row, error) {
	row := make(Row, len(src)+len(progs))
	for k, v := range src {
		row[k] = v
	}
	for _, p := range progs {
		v, err := expro.Run(p.prog, map[string]interface{}(row))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.field, err)
		}
		row[p.field] = v
	}
	return row, nil
}

// resolveGroups возвращает группы блока; при заданном By строит их по значению выражения.
func (b *block) resolveGroups() ([]Group, error) {
	if b.Group == nil {
		return nil, nil
	}
	if b.groupBy == nil {
		return b.Group.Groups, nil
	}
	var groups []Group
	pos := map[string]int{}
	for i, row := range b.Rows {
		v, err := expro.Run(b.groupBy, map[string]interface{}(row))
		if err != nil {
			return nil, blockErrorf(b.ID, b.index, "group.by, строка %d: %v", i, err)
		}
		key := cellText(v)
		gi, ok := pos[key]
		if !ok {
			gi = len(groups)
			pos[key] = gi
			groups = append(groups, Group{Name: key, Caption: key})
		}
		groups[gi].Rows = append(groups[gi].Rows, i)
	}
	return groups, nil
}

// summaryRow собирает итоговую строку группы: явный Summary и поверх него агрегаты.
func (b *block) summaryRow(g Group) (Row, error) {
	if g.Summary == nil && len(b.aggregates) == 0 {
		return nil, nil
	}
	row := make(Row, len(g.Summary)+len(b.aggregates))
	for k, v := range g.Summary {
		row[k] = v
	}
	if len(b.aggregates) == 0 {
		return row, nil
	}
	rows := make([]interface{}, 0, len(g.Rows))
	for _, ri := range g.Rows {
		rows = append(rows, map[string]interface{}(b.Rows[ri]))
	}
	env := map[string]interface{}{
		"rows":    rows,
		"count":   len(rows),
		"group":   g.Name,
		"caption": g.Caption,
	}
	for _, p := range b.aggregates {
		v, err := expro.Run(p.prog, env)
		if err != nil {
			return nil, blockErrorf(b.ID, b.index, "итог группы %q, %s: %v", g.Name, p.field, err)
		}
		row[p.field] = v
	}
	return row, nil
}
