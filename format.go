package xlreport

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// FormatSpec задаёт формат значения поля: Datetime либо Number.
type FormatSpec interface {
	isFormatSpec()
}

// FormatChain применяется к значению по порядку.
type FormatChain []FormatSpec

// Datetime разбирает значение как дату/время и выводит по раскладке Go (например "02.01.2006").
type Datetime struct {
	Layout string
}

// Number выводит число с разделением разрядов и фиксированным числом знаков.
// Пустые разделители означают значения по умолчанию: "." и ",".
type Number struct {
	Prefix             string
	Decimals           int
	DecimalSeparator   string
	ThousandsSeparator string
	// NoGrouping отключает разделитель разрядов.
	NoGrouping bool
	Suffix     string
}

func (Datetime) isFormatSpec() {}
func (Number) isFormatSpec()   {}

// Apply прогоняет значение через цепочку форматов.
func (fc FormatChain) Apply(v interface{}) interface{} {
	for _, spec := range fc {
		v = formatValue(v, spec)
	}
	return v
}

func formatValue(v interface{}, spec FormatSpec) interface{} {
	switch f := spec.(type) {
	case Datetime:
		t, ok := toTime(v)
		if !ok || f.Layout == "" {
			return v
		}
		return t.Format(f.Layout)
	case Number:
		n, ok := toFloat(v)
		if !ok {
			return v
		}
		return f.Format(n)
	default:
		return v
	}
}

// предел знаков после запятой
const maxDecimals = 20

// граница точного целого в float64; за ней округление отдаётся FormatFloat
const exactInt = 1 << 53

// Format выводит число по настройкам. Половины округляются от нуля,
// пока v*10^dec представимо точно.
func (f Number) Format(v float64) string {
	dec := min(max(f.Decimals, 0), maxDecimals)
	if p := math.Pow10(dec); math.Abs(v*p) < exactInt {
		v = math.Round(v*p) / p
	}
	s := strconv.FormatFloat(math.Abs(v), 'f', dec, 64)
	intPart, frac, _ := strings.Cut(s, ".")

	thousands := f.ThousandsSeparator
	if thousands == "" {
		thousands = ","
	}
	if f.NoGrouping {
		thousands = ""
	}
	decPoint := f.DecimalSeparator
	if decPoint == "" {
		decPoint = "."
	}

	var b strings.Builder
	b.WriteString(f.Prefix)
	if v < 0 {
		b.WriteByte('-')
	}
	b.WriteString(groupDigits(intPart, thousands))
	if dec > 0 {
		b.WriteString(decPoint)
		b.WriteString(frac)
	}
	b.WriteString(f.Suffix)
	return b.String()
}

func groupDigits(digits, sep string) string {
	if sep == "" || len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// раскладки, которые пробуем при разборе строковых дат
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02.01.2006",
	"01/02/2006 15:04:05",
	"01/02/2006",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"Jan 2, 2006",
	"2 January 2006",
}

// toTime понимает time.Time, строки в распространённых раскладках и
// числа как серийные даты Excel.
func toTime(v interface{}) (time.Time, bool) {
	switch vv := v.(type) {
	case time.Time:
		return vv, true
	case *time.Time:
		if vv == nil {
			return time.Time{}, false
		}
		return *vv, true
	case string:
		s := strings.TrimSpace(vv)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}
	if n, ok := numeric(v); ok {
		t, err := excelize.ExcelDateToTime(n, false)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

// только числовые типы, без разбора строк
func numeric(v interface{}) (float64, bool) {
	switch vv := v.(type) {
	case float64:
		return vv, true
	case float32:
		return float64(vv), true
	case int:
		return float64(vv), true
	case int8:
		return float64(vv), true
	case int16:
		return float64(vv), true
	case int32:
		return float64(vv), true
	case int64:
		return float64(vv), true
	case uint:
		return float64(vv), true
	case uint8:
		return float64(vv), true
	case uint16:
		return float64(vv), true
	case uint32:
		return float64(vv), true
	case uint64:
		return float64(vv), true
	case json.Number:
		f, err := vv.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// toFloat дополнительно разбирает числовые строки.
func toFloat(v interface{}) (float64, bool) {
	if n, ok := numeric(v); ok {
		return n, true
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	}
	return 0, false
}
