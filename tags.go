package xlreport

import (
	"regexp"
	"strconv"
	"strings"
)

// -----------------------------
// Теги вида {id:поле}, {id:#}, {id:#+N}, {id:#-N}
// -----------------------------

type tagPattern struct {
	id string
	rx *regexp.Regexp
}

func newTagPattern(id string) *tagPattern {
	return &tagPattern{
		id: id,
		rx: regexp.MustCompile(`\{` + regexp.QuoteMeta(id) + `:(\w*|#\+?-?\d*)\}`),
	}
}

func (p *tagPattern) match(s string) bool { return p.rx.MatchString(s) }

func (p *tagPattern) tag(key string) string { return "{" + p.id + ":" + key + "}" }

// single: содержимое ячейки состоит ровно из одного тега.
func (p *tagPattern) single(s string) (key string, ok bool) {
	s = strings.TrimSpace(s)
	m := p.rx.FindStringSubmatchIndex(s)
	if m == nil || m[0] != 0 || m[1] != len(s) {
		return "", false
	}
	return s[m[2]:m[3]], true
}

// -----------------------------
// Поиск повторяющегося диапазона
// -----------------------------

// строки документа, в которых нашлись теги блока
type scanResult struct {
	found    bool
	firstRow int
	lastRow  int
	firstCol int
}

// scan просматривает весь документ: диапазон идёт от первой до последней строки с тегами,
// строки между ними без тегов входят в диапазон.
func (p *tagPattern) scan(rows [][]string) scanResult {
	var res scanResult
	for rIdx, row := range rows {
		for cIdx, cell := range row {
			if !p.match(strings.TrimSpace(cell)) {
				continue
			}
			rowNum, colNum := rIdx+1, cIdx+1
			if !res.found {
				res = scanResult{found: true, firstRow: rowNum, lastRow: rowNum, firstCol: colNum}
				continue
			}
			if rowNum > res.lastRow {
				res.lastRow = rowNum
			}
			if colNum < res.firstCol {
				res.firstCol = colNum
			}
		}
	}
	return res
}

// locate возвращает шаблонный диапазон блока: от первой колонки листа
// до текущей крайней колонки документа.
func (p *tagPattern) locate(doc Document) (Range, bool, error) {
	rows, err := doc.Rows()
	if err != nil {
		return Range{}, false, err
	}
	res := p.scan(rows)
	if !res.found {
		return Range{}, false, nil
	}
	lastCol, err := doc.HighestColumn()
	if err != nil {
		return Range{}, false, err
	}
	return Cells(Coord{Col: 1, Row: res.firstRow}, Coord{Col: lastCol, Row: res.lastRow}), true, nil
}

// -----------------------------
// Подстановка значений
// -----------------------------

// tagContext: данные для разрешения тегов одной строки.
type tagContext struct {
	row     Row
	counter int // 0 у строки без счётчика (итог группы)
	step    int
	format  map[string]FormatChain
}

// (counter-1)*step + 1 + offset
func counterValue(key string, counter, step int) int {
	rest := strings.TrimPrefix(strings.TrimPrefix(key, "#"), "+")
	offset := 0
	if rest != "" && rest != "-" {
		if n, err := strconv.Atoi(rest); err == nil {
			offset = n
		}
	}
	return (counter-1)*step + 1 + offset
}

// value разрешает ключ тега. Отсутствующее поле возвращает сам ключ.
// formatted=false: значение не проходило форматирование и может быть записано как есть.
func (tc *tagContext) value(key string) (v interface{}, formatted bool) {
	if strings.HasPrefix(key, "#") {
		if tc.counter <= 0 {
			return "", true
		}
		return counterValue(key, tc.counter, tc.step), false
	}
	raw, ok := tc.row[key]
	if !ok {
		return key, true
	}
	if chain, ok := tc.format[key]; ok && len(chain) > 0 {
		return chain.Apply(raw), true
	}
	return raw, false
}

// resolve заменяет все теги блока в содержимом ячейки за один проход.
// Если ячейка состоит ровно из одного тега с числовым значением, возвращается само число.
func (p *tagPattern) resolve(content string, tc *tagContext) interface{} {
	if key, ok := p.single(content); ok {
		v, formatted := tc.value(key)
		if _, isNum := numeric(v); isNum && !formatted {
			return v
		}
	}
	return p.rx.ReplaceAllStringFunc(content, func(tag string) string {
		key := tag[len(p.id)+2 : len(tag)-1]
		v, _ := tc.value(key)
		return cellText(v)
	})
}
