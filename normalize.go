package xlreport

import "encoding/json"

// NormalizeRows приводит строки к предсказуемой форме:
// - добавляет отсутствующие поля пустыми значениями
// - вложенные списки и объекты превращает в текст (списки строк через ", ", остальное в JSON)
// Исходные строки не изменяются.
func NormalizeRows(rows []Row, fields []string) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, normalizeOne(r, fields))
	}
	return out
}

func normalizeOne(r Row, fields []string) Row {
	n := make(Row, len(r)+len(fields))
	for k, v := range r {
		n[k] = deepNormalize(v)
	}
	for _, f := range fields {
		if _, ok := n[f]; !ok {
			n[f] = ""
		}
	}
	return n
}

func deepNormalize(v interface{}) interface{} {
	switch vv := v.(type) {
	case []interface{}, map[string]interface{}:
		return cellText(vv)
	case []string:
		items := make([]interface{}, len(vv))
		for i, s := range vv {
			items[i] = s
		}
		return cellText(items)
	case Row:
		b, err := json.Marshal(vv)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return vv
	}
}
