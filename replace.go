package xlreport

import (
	"log/slog"
	"strings"
)

// substitutions накапливает пары тег -> значение нерепитящихся блоков
// и применяется к документу один раз после размножения всех блоков.
type substitutions struct {
	log   *slog.Logger
	order []string
	// values хранят итоговое значение тега; при повторной регистрации побеждает последняя
	values map[string]interface{}
}

func newSubstitutions(log *slog.Logger) *substitutions {
	return &substitutions{log: log, values: map[string]interface{}{}}
}

// add регистрирует теги {id:ключ} для всех полей values; format применяется к полям, где он задан.
func (s *substitutions) add(id string, values Row, format map[string]FormatChain) {
	p := newTagPattern(id)
	for _, k := range fieldsOf(nil, values) {
		v := values[k]
		if chain, ok := format[k]; ok && len(chain) > 0 {
			v = chain.Apply(v)
		}
		s.set(p.tag(k), v)
	}
}

func (s *substitutions) set(tag string, v interface{}) {
	if _, dup := s.values[tag]; dup {
		s.log.Warn("тег зарегистрирован повторно, используется последнее значение", "tag", tag)
	} else {
		s.order = append(s.order, tag)
	}
	s.values[tag] = v
}

func (s *substitutions) empty() bool { return len(s.order) == 0 }

// replacer строит однопроходную замену всех тегов.
func (s *substitutions) replacer() *strings.Replacer {
	pairs := make([]string, 0, 2*len(s.order))
	for _, tag := range s.order {
		pairs = append(pairs, tag, cellText(s.values[tag]))
	}
	return strings.NewReplacer(pairs...)
}

// apply проходит по всем ячейкам документа. Ячейка, состоящая ровно из одного тега
// с числовым значением, получает само число.
func (s *substitutions) apply(doc Document) error {
	if s.empty() {
		return nil
	}
	rows, err := doc.Rows()
	if err != nil {
		return err
	}
	rep := s.replacer()
	replaced := 0
	for rIdx, row := range rows {
		for cIdx, cell := range row {
			if !strings.Contains(cell, "{") {
				continue
			}
			var out interface{}
			if v, ok := s.values[strings.TrimSpace(cell)]; ok {
				if _, isNum := numeric(v); isNum {
					out = v
				}
			}
			if out == nil {
				next := rep.Replace(cell)
				if next == cell {
					continue
				}
				out = next
			}
			if err := doc.SetCell(Coord{Col: cIdx + 1, Row: rIdx + 1}, out); err != nil {
				return err
			}
			replaced++
		}
	}
	s.log.Debug("глобальная замена тегов", "tags", len(s.order), "cells", replaced)
	return nil
}
