package xlreport_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/xuri/excelize/v2"

	"github.com/nikitaxru/xlreport"
)

const sheet = "Sheet1"

// ReportSuite — сьют тестов размножения шаблонов
type ReportSuite struct {
	suite.Suite
}

func TestReportSuite(t *testing.T) {
	suite.Run(t, new(ReportSuite))
}

// template создаёт книгу с заданными значениями ячеек
func (s *ReportSuite) template(cells map[string]interface{}) *excelize.File {
	f := excelize.NewFile()
	for ref, v := range cells {
		s.Require().NoError(f.SetCellValue(sheet, ref, v), "set "+ref)
	}
	return f
}

func (s *ReportSuite) report(f *excelize.File, opts ...xlreport.Option) *xlreport.Report {
	doc, err := xlreport.NewExcelDocument(f, sheet)
	s.Require().NoError(err, "document")
	r, err := xlreport.NewFromDocument(doc, opts...)
	s.Require().NoError(err, "report")
	return r
}

func (s *ReportSuite) column(f *excelize.File, col int) []string {
	rows, err := f.GetRows(sheet)
	s.Require().NoError(err, "get rows")
	out := make([]string, len(rows))
	for i, row := range rows {
		if col < len(row) {
			out[i] = row[col]
		}
	}
	return out
}

func (s *ReportSuite) merges(f *excelize.File) []string {
	mc, err := f.GetMergeCells(sheet)
	s.Require().NoError(err, "merge cells")
	out := make([]string, 0, len(mc))
	for _, m := range mc {
		out = append(out, m.GetStartAxis()+":"+m.GetEndAxis())
	}
	sort.Strings(out)
	return out
}

func (s *ReportSuite) fillColor(f *excelize.File, cell string) string {
	id, err := f.GetCellStyle(sheet, cell)
	s.Require().NoError(err, "cell style")
	st, err := f.GetStyle(id)
	s.Require().NoError(err, "style")
	if len(st.Fill.Color) == 0 {
		return ""
	}
	return strings.ToUpper(st.Fill.Color[0])
}

// TestRepeatingRows — строки блока размножаются на месте шаблона, ниже лежащие строки сдвигаются
func (s *ReportSuite) TestRepeatingRows() {
	f := s.template(map[string]interface{}{
		"A1": "№", "B1": "Name", "C1": "Amount",
		"A2": "{t:#}", "B2": "{t:name}", "C2": "{t:amount}",
		"A3": "Total", "C3": "{totals:sum}",
	})
	r := s.report(f)
	s.Require().NoError(r.Load(
		xlreport.DataBlock{ID: "t", Rows: []xlreport.Row{
			{"name": "Alpha", "amount": 10.5},
			{"name": "Beta", "amount": 20},
			{"name": "Gamma", "amount": 11.5},
		}},
		xlreport.DataBlock{ID: "totals", Values: xlreport.Row{"sum": 42}},
	), "load")
	s.Require().NoError(r.Generate(), "generate")

	s.Assert().Equal([]string{"№", "1", "2", "3", "Total"}, s.column(f, 0), "counter column")
	s.Assert().Equal([]string{"Name", "Alpha", "Beta", "Gamma", ""}, s.column(f, 1), "name column")
	s.Assert().Equal([]string{"Amount", "10.5", "20", "11.5", "42"}, s.column(f, 2), "amount column")
}

// TestScanSpansRowsBetweenTags — строки без тегов между строками с тегами входят в диапазон
func (s *ReportSuite) TestScanSpansRowsBetweenTags() {
	f := s.template(map[string]interface{}{
		"A1": "Items",
		"A2": "{t:name}",
		"A3": "note",
		"A4": "{t:amount}",
		"A5": "end",
	})
	r := s.report(f)
	s.Require().NoError(r.Load(xlreport.DataBlock{ID: "t", Rows: []xlreport.Row{
		{"name": "a", "amount": 1},
		{"name": "b", "amount": 2},
	}}), "load")
	s.Require().NoError(r.Generate(), "generate")

	s.Assert().Equal([]string{"Items", "a", "note", "1", "b", "note", "2", "end"}, s.column(f, 0))
}

// TestNoResult — пустой блок заменяется одной объединённой строкой
func (s *ReportSuite) TestNoResult() {
	f := s.template(map[string]interface{}{
		"A1": "Name", "B1": "Amount", "C1": "Note",
		"A2": "{t:name}", "B2": "{t:amount}", "C2": "{t:note}",
		"A3": "Footer",
	})
	r := s.report(f, xlreport.WithNoResultText("Nothing found"))
	s.Require().NoError(r.Load(xlreport.DataBlock{ID: "t", Rows: []xlreport.Row{}}), "load")
	s.Require().NoError(r.Generate(), "generate")

	s.Assert().Equal([]string{"Name", "Nothing found", "Footer"}, s.column(f, 0))
	s.Assert().Equal([]string{"A2:C2"}, s.merges(f), "merged no-result row")
	s.Assert().Contains(s.fillColor(f, "A2"), "FFEBA5", "no-result fill")
}

// TestMergeReplication — объединения шаблона повторяются в каждой копии, исходное снимается
func (s *ReportSuite) TestMergeReplication() {
	f := s.template(map[string]interface{}{
		"A1": "Head",
		"A2": "{t:name}", "C2": "{t:amount}",
		"A3": "tail",
	})
	s.Require().NoError(f.MergeCell(sheet, "A2", "B2"), "merge template")
	r := s.report(f)
	s.Require().NoError(r.Load(xlreport.DataBlock{ID: "t", Rows: []xlreport.Row{
		{"name": "a", "amount": 1},
		{"name": "b", "amount": 2},
	}}), "load")
	s.Require().NoError(r.Generate(), "generate")

	s.Assert().Equal([]string{"A2:B2", "A3:B3"}, s.merges(f))
	s.Assert().Equal([]string{"Head", "a", "b", "tail"}, s.column(f, 0))
	s.Assert().Equal([]string{"", "1", "2", ""}, s.column(f, 2))
}

// TestGrouping — заголовки, строки и итоги групп идут подряд без разрывов
func (s *ReportSuite) TestGrouping() {
	f := s.template(map[string]interface{}{
		"A1": "Name", "B1": "Amount",
		"A2": "{t:name}", "B2": "{t:amount}",
		"A3": "end",
	})
	rows := []xlreport.Row{
		{"name": "a", "amount": 1}, {"name": "b", "amount": 2}, {"name": "c", "amount": 3},
		{"name": "d", "amount": 4}, {"name": "e", "amount": 5}, {"name": "f", "amount": 6},
	}
	r := s.report(f)
	s.Require().NoError(r.Load(xlreport.DataBlock{ID: "t", Rows: rows, Group: &xlreport.GroupSpec{
		Groups: []xlreport.Group{
			{Name: "g1", Caption: "Group 1", Rows: []int{0, 1, 2}, Summary: xlreport.Row{"name": "Sum 1", "amount": 6}},
			{Name: "g2", Caption: "Group 2", Rows: []int{3, 4, 5}, Summary: xlreport.Row{"name": "Sum 2", "amount": 15}},
		},
	}}), "load")
	s.Require().NoError(r.Generate(), "generate")

	s.Assert().Equal([]string{
		"Name",
		"Group 1", "a", "b", "c", "Sum 1",
		"Group 2", "d", "e", "f", "Sum 2",
		"end",
	}, s.column(f, 0))
	s.Assert().Equal([]string{"A2:B2", "A7:B7"}, s.merges(f), "caption rows merged")
	if v, _ := f.GetCellValue(sheet, "B11"); true {
		s.Assert().Equal("15", v, "B11")
	}
	s.Assert().Contains(s.fillColor(f, "A2"), "8DB4E3", "caption fill")
	s.Assert().Contains(s.fillColor(f, "A6"), "C5D9F1", "summary fill")
}

// TestGroupByAggregates — группы по выражению, итоги считаются агрегатами
func (s *ReportSuite) TestGroupByAggregates() {
	f := s.template(map[string]interface{}{
		"A1": "Name", "B1": "Amount", "C1": "№",
		"A2": "{t:name}", "B2": "{t:amount}", "C2": "{t:#}",
	})
	r := s.report(f)
	s.Require().NoError(r.Load(xlreport.DataBlock{
		ID: "t",
		Rows: []xlreport.Row{
			{"name": "a", "amount": 1, "region": "north"},
			{"name": "b", "amount": 2, "region": "south"},
			{"name": "c", "amount": 3, "region": "north"},
		},
		Group: &xlreport.GroupSpec{
			By: "region",
			Aggregates: []xlreport.Computed{
				{Field: "amount", Expr: "sum(map(rows, .amount))"},
				{Field: "name", Expr: `"Total " + group`},
			},
		},
	}), "load")
	s.Require().NoError(r.Generate(), "generate")

	s.Assert().Equal([]string{"Name", "north", "a", "c", "Total north", "south", "b", "Total south"}, s.column(f, 0))
	s.Assert().Equal([]string{"Amount", "", "1", "3", "4", "", "2", "2"}, s.column(f, 1))
	// счётчик сквозной, у итогов пусто
	s.Assert().Equal([]string{"№", "", "1", "2", "", "", "3", ""}, s.column(f, 2))
}

// TestEmptyGroupSpec — группировка без групп и без выражения размножает строки как обычно
func (s *ReportSuite) TestEmptyGroupSpec() {
	f := s.template(map[string]interface{}{
		"A1": "Head",
		"A2": "{t:v}",
		"A3": "tail",
	})
	r := s.report(f)
	s.Require().NoError(r.Load(xlreport.DataBlock{
		ID:    "t",
		Rows:  []xlreport.Row{{"v": "x"}, {"v": "y"}},
		Group: &xlreport.GroupSpec{},
	}), "load")
	s.Require().NoError(r.Generate(), "generate")

	s.Assert().Equal([]string{"Head", "x", "y", "tail"}, s.column(f, 0))
	s.Assert().Empty(s.merges(f), "no caption rows")
}

// TestGlobalReplace — нерепитящиеся блоки, шапка и подвал заменяются по всему листу
func (s *ReportSuite) TestGlobalReplace() {
	f := s.template(map[string]interface{}{
		"A1": "Report for {meta:client}",
		"A2": "{meta:total}",
		"A3": "{HEADER_t:name}",
		"A4": "{t:name}",
		"A5": "{FOOTER_t:name}",
		"A6": "{meta:missing}",
	})
	r := s.report(f)
	s.Require().NoError(r.Load(
		xlreport.DataBlock{
			ID:     "meta",
			Values: xlreport.Row{"client": "ACME", "total": 1234.5},
			Format: map[string]xlreport.FormatChain{"total": {xlreport.Number{Prefix: "$", Decimals: 2}}},
		},
		xlreport.DataBlock{
			ID:     "t",
			Rows:   []xlreport.Row{{"name": "a"}, {"name": "b"}},
			Header: xlreport.Row{"name": "Name"},
			Footer: xlreport.Row{"name": "Total"},
		},
	), "load")
	s.Require().NoError(r.Generate(), "generate")

	s.Assert().Equal([]string{
		"Report for ACME", "$1,234.50", "Name", "a", "b", "Total", "{meta:missing}",
	}, s.column(f, 0))
}

// TestHeadings — заголовок сверху, под ним подзаголовки в порядке добавления
func (s *ReportSuite) TestHeadings() {
	f := s.template(map[string]interface{}{"A1": "x", "B1": "y", "C1": "z"})
	r := s.report(f,
		xlreport.WithHeading("Title"),
		xlreport.WithSubHeading("Sub 1"),
		xlreport.WithSubHeading("Sub 2"),
	)
	s.Require().NoError(r.Generate(), "generate")

	s.Assert().Equal([]string{"Title", "Sub 1", "Sub 2", "x"}, s.column(f, 0))
	s.Assert().Equal([]string{"A1:C1", "A2:C2", "A3:C3"}, s.merges(f))
	for row, want := range map[int]float64{1: 48, 2: 24, 3: 24} {
		h, err := f.GetRowHeight(sheet, row)
		s.Require().NoError(err, "row height")
		s.Assert().Equal(want, h, "row %d height", row)
	}
}

// TestBlocksInTemplateOrder — блоки обрабатываются сверху вниз независимо от порядка загрузки
func (s *ReportSuite) TestBlocksInTemplateOrder() {
	f := s.template(map[string]interface{}{
		"A1": "A list", "A2": "{a:v}",
		"A3": "B list", "A4": "{b:v}",
	})
	r := s.report(f)
	s.Require().NoError(r.Load(
		xlreport.DataBlock{ID: "b", Rows: []xlreport.Row{{"v": "b1"}, {"v": "b2"}}},
		xlreport.DataBlock{ID: "a", Rows: []xlreport.Row{{"v": "a1"}, {"v": "a2"}}},
	), "load")
	s.Require().NoError(r.Generate(), "generate")

	s.Assert().Equal([]string{"A list", "a1", "a2", "B list", "b1", "b2"}, s.column(f, 0))
}

// TestMinRows — зарезервированные строки шаблона заполняются без вставки
func (s *ReportSuite) TestMinRows() {
	f := s.template(map[string]interface{}{
		"A1": "Head",
		"A2": "{t:v}",
		"A5": "tail",
	})
	r := s.report(f)
	s.Require().NoError(r.Load(xlreport.DataBlock{
		ID: "t", MinRows: 2,
		Rows: []xlreport.Row{{"v": "1"}, {"v": "2"}, {"v": "3"}},
	}), "load")
	s.Require().NoError(r.Generate(), "generate")

	s.Assert().Equal([]string{"Head", "1", "2", "3", "tail"}, s.column(f, 0))
}

// TestCounterStep — {id:#+N} учитывает шаг и смещение
func (s *ReportSuite) TestCounterStep() {
	f := s.template(map[string]interface{}{"A1": "{t:#+1}", "B1": "No. {t:#-1}"})
	r := s.report(f)
	s.Require().NoError(r.Load(xlreport.DataBlock{
		ID: "t", Step: 2,
		Rows: []xlreport.Row{{}, {}, {}},
	}), "load")
	s.Require().NoError(r.Generate(), "generate")

	s.Assert().Equal([]string{"2", "4", "6"}, s.column(f, 0))
	s.Assert().Equal([]string{"No. 0", "No. 2", "No. 4"}, s.column(f, 1))
}

// TestStripRows — нечётные строки данных получают заливку
func (s *ReportSuite) TestStripRows() {
	f := s.template(map[string]interface{}{"A1": "Name", "A2": "{t:v}"})
	r := s.report(f, xlreport.WithStripRows(true))
	s.Require().NoError(r.Load(xlreport.DataBlock{ID: "t", Rows: []xlreport.Row{{"v": 1}, {"v": 2}, {"v": 3}}}), "load")
	s.Require().NoError(r.Generate(), "generate")

	s.Assert().Contains(s.fillColor(f, "A2"), "F2F2F2", "row 1")
	s.Assert().NotContains(s.fillColor(f, "A3"), "F2F2F2", "row 2")
	s.Assert().Contains(s.fillColor(f, "A4"), "F2F2F2", "row 3")
}

// TestConditionalFormatPreserved — условное форматирование шаблона остаётся на строках данных
func (s *ReportSuite) TestConditionalFormatPreserved() {
	f := s.template(map[string]interface{}{"A1": "Value", "A2": "{t:v}"})
	s.Require().NoError(f.SetConditionalFormat(sheet, "A2", []excelize.ConditionalFormatOptions{{
		Type: "2_color_scale", Criteria: "=",
		MinType: "min", MaxType: "max",
		MinColor: "#F8696B", MaxColor: "#63BE7B",
	}}), "conditional format")
	r := s.report(f)
	s.Require().NoError(r.Load(xlreport.DataBlock{ID: "t", Rows: []xlreport.Row{{"v": 1}, {"v": 2}}}), "load")
	s.Require().NoError(r.Generate(), "generate")

	doc, ok := r.Document().(*xlreport.ExcelDocument)
	s.Require().True(ok, "excel document")
	for _, ref := range []string{"A2", "A3"} {
		c, err := xlreport.ParseCoord(ref)
		s.Require().NoError(err, "coord")
		rules, err := doc.ConditionalFormat(c)
		s.Require().NoError(err, "conditional format "+ref)
		s.Assert().NotEmpty(rules, ref)
	}
}

// TestComputed — вычисляемые поля доступны в тегах
func (s *ReportSuite) TestComputed() {
	f := s.template(map[string]interface{}{"A1": "{t:name}", "B1": "{t:total}"})
	r := s.report(f)
	s.Require().NoError(r.Load(xlreport.DataBlock{
		ID:       "t",
		Rows:     []xlreport.Row{{"name": "a", "price": 2.5, "qty": 4}, {"name": "b", "price": 1, "qty": 3}},
		Computed: []xlreport.Computed{{Field: "total", Expr: "price * qty"}},
	}), "load")
	s.Require().NoError(r.Generate(), "generate")

	s.Assert().Equal([]string{"10", "3"}, s.column(f, 1))
}

// TestBuildMode — отчёт без шаблона: шапка, строки данных, подвал
func (s *ReportSuite) TestBuildMode() {
	r, err := xlreport.NewReport(xlreport.WithHeading("Sales"))
	s.Require().NoError(err, "new report")
	s.Require().NoError(r.Load(xlreport.DataBlock{
		ID:      "t",
		Fields:  []string{"name", "amount"},
		Header:  xlreport.Row{"name": "Name", "amount": "Amount"},
		Footer:  xlreport.Row{"amount": 1},
		Columns: map[string]xlreport.Column{"amount": {Align: "right", Width: 75}},
		Rows:    []xlreport.Row{{"name": "a", "amount": 1}, {"name": "b"}},
	}), "load")
	s.Require().NoError(r.Generate(), "generate")

	doc, ok := r.Document().(*xlreport.ExcelDocument)
	s.Require().True(ok, "excel document")
	f := doc.File()
	s.Assert().Equal([]string{"Sales", "Name", "a", "b", ""}, s.column(f, 0))
	s.Assert().Equal([]string{"", "Amount", "1", "", "1"}, s.column(f, 1))
	s.Assert().Contains(s.fillColor(f, "A2"), "4E5A7A", "header fill")
	s.Assert().Contains(s.fillColor(f, "A3"), "F2F2F2", "strip rows on by default")

	w, err := f.GetColWidth(sheet, "B")
	s.Require().NoError(err, "col width")
	s.Assert().InDelta(10.0, w, 0.001, "column width")
}

// TestValidation — ошибки конфигурации возвращаются до изменения документа
func (s *ReportSuite) TestValidation() {
	cases := map[string]xlreport.DataBlock{
		"missing id":         {Rows: []xlreport.Row{}},
		"missing rows":       {ID: "t"},
		"rows and values":    {ID: "t", Rows: []xlreport.Row{}, Values: xlreport.Row{}},
		"negative minRows":   {ID: "t", Rows: []xlreport.Row{}, MinRows: -1},
		"group out of range": {ID: "t", Rows: []xlreport.Row{{}}, Group: &xlreport.GroupSpec{Groups: []xlreport.Group{{Name: "g", Rows: []int{3}}}}},
		"bad expression":     {ID: "t", Rows: []xlreport.Row{}, Computed: []xlreport.Computed{{Field: "x", Expr: "1 +"}}},
	}
	for name, db := range cases {
		s.Run(name, func() {
			f := s.template(map[string]interface{}{"A1": "{t:v}"})
			r := s.report(f)
			err := r.Load(db)
			s.Require().Error(err)
			s.Assert().ErrorIs(err, xlreport.ErrConfig)
			var be *xlreport.BlockError
			s.Assert().True(errors.As(err, &be), "block error")
			if v, _ := f.GetCellValue(sheet, "A1"); true {
				s.Assert().Equal("{t:v}", v, "document untouched")
			}
		})
	}

	r := s.report(excelize.NewFile())
	err := r.Load(
		xlreport.DataBlock{ID: "t", Rows: []xlreport.Row{}},
		xlreport.DataBlock{ID: "t", Values: xlreport.Row{}},
	)
	s.Assert().ErrorIs(err, xlreport.ErrConfig, "duplicate id")
}

// TestGenerateOnce — повторный Generate запрещён
func (s *ReportSuite) TestGenerateOnce() {
	r := s.report(s.template(map[string]interface{}{"A1": "x"}))
	s.Require().NoError(r.Generate(), "generate")
	s.Assert().ErrorIs(r.Generate(), xlreport.ErrAlreadyGenerated)
	s.Assert().ErrorIs(r.Load(), xlreport.ErrAlreadyGenerated)
}

// TestExport — html с объединениями, xlsx и ошибки типов вывода
func (s *ReportSuite) TestExport() {
	f := s.template(map[string]interface{}{"A1": "Name", "B1": "Amount", "C1": "Note", "A2": "{t:name}"})
	r := s.report(f)
	s.Require().NoError(r.Load(xlreport.DataBlock{ID: "t", Rows: []xlreport.Row{}}), "load")
	s.Require().NoError(r.Generate(), "generate")

	var html bytes.Buffer
	s.Require().NoError(r.Export(&html, "html"), "html")
	s.Assert().Contains(html.String(), `<td colspan="3">`+xlreport.DefaultNoResultText+`</td>`)
	s.Assert().Contains(html.String(), "<td>Name</td><td>Amount</td><td>Note</td>")

	var xlsx bytes.Buffer
	s.Require().NoError(r.Export(&xlsx, "excel"), "xlsx")
	out, err := excelize.OpenReader(&xlsx)
	s.Require().NoError(err, "open xlsx")
	if v, _ := out.GetCellValue(sheet, "A2"); true {
		s.Assert().Equal(xlreport.DefaultNoResultText, v, "A2")
	}

	s.Assert().ErrorIs(r.Export(&bytes.Buffer{}, "pdf"), xlreport.ErrOutputUnavailable)
	s.Assert().ErrorIs(r.Export(&bytes.Buffer{}, "docx"), xlreport.ErrUnsupportedOutput)
}

// TestWriteReportWithTemplate — полный цикл через файлы
func (s *ReportSuite) TestWriteReportWithTemplate() {
	tmpDir := s.T().TempDir()
	tmpTemplate := filepath.Join(tmpDir, "template.xlsx")
	f := s.template(map[string]interface{}{"A1": "Tasks: {meta:count}", "A2": "{t:name}", "B2": "{t:status}"})
	s.Require().NoError(f.SaveAs(tmpTemplate), "save template")

	tmpOutput := filepath.Join(tmpDir, "output.xlsx")
	s.Require().NoError(xlreport.WriteReportWithTemplate(tmpTemplate, tmpOutput, []xlreport.DataBlock{
		{ID: "meta", Values: xlreport.Row{"count": 2}},
		{ID: "t", Rows: []xlreport.Row{
			{"name": "Implement feature X", "status": "in-progress"},
			{"name": "Fix bug Y", "status": "pending"},
		}},
	}), "render")

	result, err := excelize.OpenFile(tmpOutput)
	s.Require().NoError(err, "open result")
	s.Assert().Equal([]string{"Tasks: 2", "Implement feature X", "Fix bug Y"}, s.column(result, 0))
	s.Assert().Equal([]string{"", "in-progress", "pending"}, s.column(result, 1))
}
