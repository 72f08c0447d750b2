package xlreport

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// sanitizeFence извлекает содержимое, обёрнутое в тройные кавычки ``` ... ```.
// Если таких кавычек нет, либо структура неверная, возвращает исходную строку.
var fenceRx = regexp.MustCompile("(?s)```[a-zA-Z]*\\n(.*?)```")

func sanitizeFence(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	m := fenceRx.FindStringSubmatch(s)
	if len(m) >= 2 {
		return strings.TrimSpace(m[1])
	}
	return s
}

// cellText приводит значение к тексту ячейки.
func cellText(v interface{}) string {
	switch vv := v.(type) {
	case nil:
		return ""
	case string:
		return vv
	case float64:
		if vv == float64(int64(vv)) {
			return strconv.FormatInt(int64(vv), 10)
		}
		return strconv.FormatFloat(vv, 'f', -1, 64)
	case float32:
		return cellText(float64(vv))
	case bool:
		if vv {
			return "true"
		}
		return "false"
	case time.Time:
		if vv.Hour() == 0 && vv.Minute() == 0 && vv.Second() == 0 && vv.Nanosecond() == 0 {
			return vv.Format("2006-01-02")
		}
		return vv.Format("2006-01-02 15:04:05")
	case []interface{}:
		allStr := true
		strs := make([]string, len(vv))
		for i, it := range vv {
			if s, ok := it.(string); ok {
				strs[i] = s
			} else {
				allStr = false
				break
			}
		}
		if allStr {
			return strings.Join(strs, ", ")
		}
		b, _ := json.Marshal(vv)
		return string(b)
	case map[string]interface{}:
		b, _ := json.Marshal(vv)
		return string(b)
	default:
		return fmt.Sprintf("%v", vv)
	}
}

// WriteReportWithTemplate заполняет шаблон templatePath блоками данных и сохраняет результат в destPath.
func WriteReportWithTemplate(templatePath, destPath string, blocks []DataBlock, opts ...Option) error {
	r, err := LoadTemplate(templatePath, opts...)
	if err != nil {
		slog.Error("❌ Ошибка загрузки шаблона", "template", templatePath, "error", err)
		return err
	}
	log := r.log
	log.Info("📊 Начинаем формирование отчёта", "template", templatePath, "dest", destPath, "blocks", len(blocks))
	startTime := time.Now()

	for _, b := range blocks {
		log.Debug("📝 Блок данных", "id", b.ID, "rows", len(b.Rows), "repeating", b.Repeating())
	}

	if err := r.Load(blocks...); err != nil {
		log.Error("❌ Ошибка конфигурации", "error", err)
		return err
	}

	log.Info("🔄 Рендеринг данных в шаблон...")
	if err := r.Generate(); err != nil {
		log.Error("❌ Ошибка рендеринга", "error", err)
		return err
	}

	log.Info("💾 Сохранение файла...")
	if err := r.Save(destPath); err != nil {
		log.Error("❌ Ошибка сохранения", "error", err)
		return err
	}

	log.Info("✅ Excel файл создан", "duration", time.Since(startTime), "dest", destPath)
	return nil
}
