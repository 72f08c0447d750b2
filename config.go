package xlreport

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
)

// Config описывает отчёт декларативно (YAML или JSON).
// Неизвестные ключи считаются ошибкой.
type Config struct {
	Template     string        `yaml:"template"`
	Sheet        string        `yaml:"sheet"`
	Output       string        `yaml:"output"`
	Heading      string        `yaml:"heading"`
	SubHeadings  []string      `yaml:"subheadings"`
	NoResultText string        `yaml:"noResultText"`
	StripRows    *bool         `yaml:"stripRows"`
	Blocks       []BlockConfig `yaml:"blocks"`
}

type BlockConfig struct {
	ID       string                    `yaml:"id"`
	Rows     []Row                     `yaml:"rows"`
	Values   Row                       `yaml:"values"`
	Header   Row                       `yaml:"header"`
	Footer   Row                       `yaml:"footer"`
	Fields   []string                  `yaml:"fields"`
	Columns  map[string]ColumnConfig   `yaml:"columns"`
	Format   map[string][]FormatConfig `yaml:"format"`
	Group    *GroupConfig              `yaml:"group"`
	MinRows  int                       `yaml:"minRows"`
	Step     int                       `yaml:"step"`
	Computed []ComputedConfig          `yaml:"computed"`
}

type ColumnConfig struct {
	Align string  `yaml:"align"`
	Width float64 `yaml:"width"`
}

// FormatConfig: один шаг цепочки форматирования, задаётся ровно одно поле.
type FormatConfig struct {
	Datetime *string       `yaml:"datetime"`
	Number   *NumberConfig `yaml:"number"`
}

// NumberConfig: для отсутствующего разделителя берётся значение по умолчанию,
// пустая строка в thousandsSeparator отключает разделение разрядов.
type NumberConfig struct {
	Prefix             string  `yaml:"prefix"`
	Decimals           int     `yaml:"decimals"`
	DecimalSeparator   *string `yaml:"decimalSeparator"`
	ThousandsSeparator *string `yaml:"thousandsSeparator"`
	Suffix             string  `yaml:"suffix"`
}

type GroupConfig struct {
	By         string           `yaml:"by"`
	Groups     []GroupItem      `yaml:"groups"`
	Aggregates []ComputedConfig `yaml:"aggregates"`
}

type GroupItem struct {
	Name    string `yaml:"name"`
	Caption string `yaml:"caption"`
	Rows    []int  `yaml:"rows"`
	Summary Row    `yaml:"summary"`
}

type ComputedConfig struct {
	Field string `yaml:"field"`
	Expr  string `yaml:"expr"`
}

// ParseConfig разбирает описание отчёта. Текст, обёрнутый в ``` ... ```, разворачивается.
func ParseConfig(data []byte) (*Config, error) {
	src := sanitizeFence(strings.TrimSpace(string(data)))
	var cfg Config
	if err := yaml.UnmarshalWithOptions([]byte(src), &cfg, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConfig, yaml.FormatError(err, false, true))
	}
	return &cfg, nil
}

func LoadConfig(rd io.Reader) (*Config, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// Options переводит общие настройки в опции отчёта.
func (c *Config) Options() []Option {
	var opts []Option
	if c.Sheet != "" {
		opts = append(opts, WithSheet(c.Sheet))
	}
	if c.Heading != "" {
		opts = append(opts, WithHeading(c.Heading))
	}
	for _, s := range c.SubHeadings {
		opts = append(opts, WithSubHeading(s))
	}
	if c.NoResultText != "" {
		opts = append(opts, WithNoResultText(c.NoResultText))
	}
	if c.StripRows != nil {
		opts = append(opts, WithStripRows(*c.StripRows))
	}
	return opts
}

// DataBlocks переводит описания блоков в DataBlock.
func (c *Config) DataBlocks() ([]DataBlock, error) {
	out := make([]DataBlock, 0, len(c.Blocks))
	for i, bc := range c.Blocks {
		format, err := bc.formatChains()
		if err != nil {
			return nil, blockErrorf(bc.ID, i, "%v", err)
		}
		db := DataBlock{
			ID:       bc.ID,
			Rows:     bc.Rows,
			Values:   bc.Values,
			Header:   bc.Header,
			Footer:   bc.Footer,
			Fields:   bc.Fields,
			Format:   format,
			MinRows:  bc.MinRows,
			Step:     bc.Step,
			Computed: computedOf(bc.Computed),
		}
		if len(bc.Columns) > 0 {
			db.Columns = make(map[string]Column, len(bc.Columns))
			for k, col := range bc.Columns {
				db.Columns[k] = Column{Align: col.Align, Width: col.Width}
			}
		}
		if g := bc.Group; g != nil {
			spec := &GroupSpec{By: g.By, Aggregates: computedOf(g.Aggregates)}
			for _, it := range g.Groups {
				caption := it.Caption
				if caption == "" {
					caption = it.Name
				}
				spec.Groups = append(spec.Groups, Group{Name: it.Name, Caption: caption, Rows: it.Rows, Summary: it.Summary})
			}
			db.Group = spec
		}
		out = append(out, db)
	}
	return out, nil
}

func (bc BlockConfig) formatChains() (map[string]FormatChain, error) {
	if len(bc.Format) == 0 {
		return nil, nil
	}
	out := make(map[string]FormatChain, len(bc.Format))
	for field, steps := range bc.Format {
		chain := make(FormatChain, 0, len(steps))
		for _, st := range steps {
			switch {
			case st.Datetime != nil && st.Number != nil:
				return nil, fmt.Errorf("format.%s: datetime и number в одном шаге", field)
			case st.Datetime != nil:
				chain = append(chain, Datetime{Layout: *st.Datetime})
			case st.Number != nil:
				chain = append(chain, st.Number.spec())
			default:
				return nil, fmt.Errorf("format.%s: пустой шаг форматирования", field)
			}
		}
		out[field] = chain
	}
	return out, nil
}

func (n *NumberConfig) spec() Number {
	num := Number{Prefix: n.Prefix, Decimals: n.Decimals, Suffix: n.Suffix}
	if n.DecimalSeparator != nil {
		num.DecimalSeparator = *n.DecimalSeparator
	}
	if n.ThousandsSeparator != nil {
		if *n.ThousandsSeparator == "" {
			num.NoGrouping = true
		} else {
			num.ThousandsSeparator = *n.ThousandsSeparator
		}
	}
	return num
}

func computedOf(cs []ComputedConfig) []Computed {
	if len(cs) == 0 {
		return nil
	}
	out := make([]Computed, len(cs))
	for i, c := range cs {
		out[i] = Computed{Field: c.Field, Expr: c.Expr}
	}
	return out
}
