package xlreport

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/xuri/excelize/v2"
)

// DefaultNoResultText выводится вместо блока без данных.
const DefaultNoResultText = "Нет данных"

// Report — один прогон формирования отчёта над документом.
// Отчёт формируется ровно один раз; повторный Generate возвращает ErrAlreadyGenerated.
type Report struct {
	doc Document
	// отчёт без шаблона: разметку тегов создаёт сам движок
	building bool
	log      *slog.Logger

	sheet        string
	heading      string
	subheadings  []string
	noResultText string
	stripRows    bool
	stripSet     bool

	blocks    []*block
	generated bool
}

// Option настраивает Report.
type Option func(*Report)

// WithSheet выбирает лист книги; по умолчанию активный.
func WithSheet(name string) Option { return func(r *Report) { r.sheet = name } }

// WithHeading задаёт заголовок над отчётом.
func WithHeading(text string) Option { return func(r *Report) { r.heading = text } }

// WithSubHeading добавляет подзаголовок; подзаголовки выводятся в порядке добавления.
func WithSubHeading(text string) Option {
	return func(r *Report) { r.subheadings = append(r.subheadings, text) }
}

func WithNoResultText(text string) Option { return func(r *Report) { r.noResultText = text } }

// WithStripRows включает заливку нечётных строк данных.
func WithStripRows(on bool) Option {
	return func(r *Report) { r.stripRows, r.stripSet = on, true }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Report) {
		if l != nil {
			r.log = l
		}
	}
}

func newReport(opts []Option) *Report {
	r := &Report{log: slog.Default(), noResultText: DefaultNoResultText}
	for _, o := range opts {
		o(r)
	}
	return r
}

// LoadTemplate открывает xlsx-шаблон с диска.
func LoadTemplate(path string, opts ...Option) (*Report, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("открытие шаблона %s: %w", path, err)
	}
	return fromFile(f, opts)
}

// OpenTemplate читает xlsx-шаблон из потока.
func OpenTemplate(rd io.Reader, opts ...Option) (*Report, error) {
	f, err := excelize.OpenReader(rd)
	if err != nil {
		return nil, fmt.Errorf("чтение шаблона: %w", err)
	}
	return fromFile(f, opts)
}

func fromFile(f *excelize.File, opts []Option) (*Report, error) {
	r := newReport(opts)
	doc, err := NewExcelDocument(f, r.sheet)
	if err != nil {
		return nil, err
	}
	r.doc = doc
	return r, nil
}

// NewFromDocument формирует отчёт поверх произвольного Document.
func NewFromDocument(doc Document, opts ...Option) (*Report, error) {
	if doc == nil {
		return nil, ErrNoDocument
	}
	r := newReport(opts)
	r.doc = doc
	return r, nil
}

// NewReport создаёт отчёт без шаблона: шапка, строка тегов и подвал каждого блока
// строятся на пустом листе. Чередование заливки строк включено по умолчанию.
func NewReport(opts ...Option) (*Report, error) {
	r := newReport(opts)
	if !r.stripSet {
		r.stripRows = true
	}
	f := excelize.NewFile()
	if r.sheet != "" && r.sheet != f.GetSheetName(0) {
		if err := f.SetSheetName(f.GetSheetName(0), r.sheet); err != nil {
			return nil, err
		}
	}
	doc, err := NewExcelDocument(f, r.sheet)
	if err != nil {
		return nil, err
	}
	r.doc = doc
	r.building = true
	return r, nil
}

// Document возвращает документ отчёта.
func (r *Report) Document() Document { return r.doc }

// Load проверяет и регистрирует блоки данных, заменяя ранее загруженные.
// Ошибки конфигурации возвращаются до любых изменений документа.
func (r *Report) Load(blocks ...DataBlock) error {
	if r.generated {
		return ErrAlreadyGenerated
	}
	prepared, err := prepareBlocks(blocks)
	if err != nil {
		return err
	}
	for _, b := range prepared {
		if err := b.applyComputed(); err != nil {
			return err
		}
	}
	r.blocks = prepared
	r.log.Debug("блоки загружены", "count", len(prepared))
	return nil
}

// Generate размножает повторяющиеся блоки в порядке их расположения в шаблоне,
// затем выполняет глобальную замену тегов и добавляет заголовки.
func (r *Report) Generate() error {
	if r.generated {
		return ErrAlreadyGenerated
	}
	if r.doc == nil {
		return ErrNoDocument
	}
	r.generated = true

	if r.building {
		if err := r.scaffold(); err != nil {
			return fmt.Errorf("разметка отчёта: %w", err)
		}
	}

	subs := newSubstitutions(r.log)
	var repeating []*block
	for _, b := range r.blocks {
		if b.Header != nil {
			subs.add("HEADER_"+b.ID, b.Header, nil)
		}
		if b.Footer != nil {
			subs.add("FOOTER_"+b.ID, b.Footer, b.Format)
		}
		if b.Repeating() {
			repeating = append(repeating, b)
		} else {
			subs.add(b.ID, b.Values, b.Format)
		}
	}

	ordered, err := r.inTemplateOrder(repeating)
	if err != nil {
		return err
	}
	for _, b := range ordered {
		if err := r.expandBlock(b); err != nil {
			return fmt.Errorf("блок %q: %w", b.ID, err)
		}
	}

	if err := subs.apply(r.doc); err != nil {
		return fmt.Errorf("глобальная замена: %w", err)
	}
	return r.insertHeadings()
}

// inTemplateOrder сортирует блоки по первой строке их диапазона:
// вставки строк блока сдвигают адреса всех блоков ниже него.
func (r *Report) inTemplateOrder(blocks []*block) ([]*block, error) {
	rows, err := r.doc.Rows()
	if err != nil {
		return nil, err
	}
	first := make(map[*block]int, len(blocks))
	for _, b := range blocks {
		res := b.tags.scan(rows)
		if res.found {
			first[b] = res.firstRow
		} else {
			first[b] = len(rows) + 1
		}
	}
	out := append([]*block(nil), blocks...)
	sort.SliceStable(out, func(i, j int) bool { return first[out[i]] < first[out[j]] })
	return out, nil
}

// insertHeadings вставляет подзаголовки в обратном порядке, затем заголовок,
// так что сверху вниз идут: заголовок, подзаголовки в порядке добавления.
func (r *Report) insertHeadings() error {
	if r.heading == "" && len(r.subheadings) == 0 {
		return nil
	}
	lastCol, err := r.doc.HighestColumn()
	if err != nil {
		return err
	}
	for i := len(r.subheadings) - 1; i >= 0; i-- {
		if err := r.topRow(r.subheadings[i], lastCol, subheadingRowHeight, subheadingStyle); err != nil {
			return fmt.Errorf("подзаголовок: %w", err)
		}
	}
	if r.heading != "" {
		if err := r.topRow(r.heading, lastCol, headingRowHeight, headingStyle); err != nil {
			return fmt.Errorf("заголовок: %w", err)
		}
	}
	return nil
}

func (r *Report) topRow(text string, lastCol int, height float64, style *excelize.Style) error {
	if err := r.doc.InsertRowsBefore(1, 1); err != nil {
		return err
	}
	span := RowSpan(1, 1, lastCol)
	if err := r.doc.SetCell(span.From, text); err != nil {
		return err
	}
	if span.Width() > 1 {
		if err := r.doc.MergeCells(span); err != nil {
			return err
		}
	}
	if err := r.doc.SetRowHeight(1, height); err != nil {
		return err
	}
	return r.doc.ApplyStyle(span, style)
}

// Save записывает отчёт в xlsx-файл.
func (r *Report) Save(path string) error {
	saver, ok := r.doc.(interface{ SaveAs(string) error })
	if !ok {
		return fmt.Errorf("%w: документ не умеет сохраняться в файл", ErrOutputUnavailable)
	}
	return saver.SaveAs(path)
}
