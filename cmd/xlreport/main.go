// Команда xlreport формирует отчёт по описанию в YAML/JSON,
// при необходимости размножая xlsx-шаблон.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/nikitaxru/xlreport"
)

// CLI — аргументы командной строки xlreport
type CLI struct {
	Definition string `arg:"" type:"existingfile" help:"Описание отчёта (YAML или JSON)."`

	Template string `short:"t" type:"existingfile" help:"xlsx-шаблон; без него разметка отчёта строится автоматически."`
	Sheet    string `short:"s" help:"Лист шаблона, по умолчанию активный."`
	Type     string `short:"T" help:"Тип вывода: html, excel, xlsx, excel2003, pdf."`
	Output   string `short:"o" help:"Файл вывода, '-' для stdout. По умолчанию 'Report YYYY-MM-DD.<ext>'."`
	LogLevel string `name:"log-level" enum:"debug,info,warn,error" default:"info" help:"Уровень логирования (${enum})."`
}

func (c *CLI) Run() error {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(c.LogLevel)}))

	f, err := os.Open(c.Definition)
	if err != nil {
		return err
	}
	cfg, err := xlreport.LoadConfig(f)
	f.Close()
	if err != nil {
		return err
	}

	blocks, err := cfg.DataBlocks()
	if err != nil {
		return err
	}
	opts := append(cfg.Options(), xlreport.WithLogger(log))
	if c.Sheet != "" {
		opts = append(opts, xlreport.WithSheet(c.Sheet))
	}

	template := c.Template
	if template == "" {
		template = cfg.Template
	}
	var r *xlreport.Report
	if template != "" {
		r, err = xlreport.LoadTemplate(template, opts...)
	} else {
		r, err = xlreport.NewReport(opts...)
	}
	if err != nil {
		return err
	}

	typ := c.Type
	if typ == "" {
		typ = cfg.Output
	}
	if typ == "" {
		typ = xlreport.OutputHTML
	}
	// тип проверяется до формирования, чтобы не создавать файл впустую
	if err := xlreport.CheckOutput(typ); err != nil {
		return err
	}
	out := c.Output
	if out == "" {
		out = defaultName(time.Now(), typ)
	}

	if err := r.Load(blocks...); err != nil {
		return err
	}
	start := time.Now()
	if err := r.Generate(); err != nil {
		return err
	}
	if err := writeOutput(r, out, typ); err != nil {
		return err
	}
	log.Info("📄 отчёт сохранён", "output", out, "type", typ, "duration", time.Since(start))
	return nil
}

// writeOutput выгружает отчёт в файл out ('-' означает stdout).
// При ошибке выгрузки недописанный файл удаляется.
func writeOutput(r *xlreport.Report, out, typ string) (err error) {
	if out == "-" {
		return r.Export(os.Stdout, typ)
	}
	file, err := os.Create(out)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(out)
		}
	}()
	return r.Export(file, typ)
}

func defaultName(now time.Time, typ string) string {
	ext := "html"
	switch strings.ToLower(typ) {
	case xlreport.OutputExcel, xlreport.OutputXLSX:
		ext = "xlsx"
	case xlreport.OutputExcel2003:
		ext = "xls"
	case xlreport.OutputPDF:
		ext = "pdf"
	}
	return fmt.Sprintf("Report %s.%s", now.Format("2006-01-02"), ext)
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("xlreport"),
		kong.Description("Заполняет xlsx-шаблон (или автоматическую разметку) данными отчёта."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}
