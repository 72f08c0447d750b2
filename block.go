package xlreport

import (
	"fmt"
	"sort"
	"strings"

	expro "github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Row хранит одну строку данных: поле -> значение.
type Row map[string]interface{}

// DataBlock описывает именованный набор данных отчёта.
//
// Блок с Rows повторяющийся: его теги {id:поле} и {id:#} размножаются по строкам.
// Блок с Values нерепитящийся: его теги заменяются глобально один раз.
// Header и Footer всегда нерепитящиеся, с id HEADER_<id> и FOOTER_<id>.
type DataBlock struct {
	ID     string
	Rows   []Row
	Values Row
	Header Row
	Footer Row

	// Fields задаёт порядок колонок при построении отчёта без шаблона.
	Fields  []string
	Columns map[string]Column
	Format  map[string]FormatChain
	Group   *GroupSpec

	// MinRows: сколько строк под данные уже зарезервировано в шаблоне.
	MinRows int
	// Шаг счётчика {id:#}, по умолчанию 1.
	Step int
	// IsLast выставляется движком: диапазон блока заканчивается на последней строке документа.
	IsLast bool

	Computed []Computed
}

// Repeating сообщает, размножает ли блок строки.
func (b *DataBlock) Repeating() bool { return b.Values == nil }

// GroupSpec разбивает строки блока на именованные группы с заголовком и итогом.
type GroupSpec struct {
	// Groups выводятся в порядке следования.
	Groups []Group
	// By задаёт выражение, по значению которого строки группируются в порядке первого появления.
	By string
	// Aggregates вычисляются по строкам группы и дополняют её итоговую строку.
	Aggregates []Computed
}

type Group struct {
	Name    string
	Caption string
	// индексы строк DataBlock.Rows
	Rows    []int
	Summary Row
}

// Computed задаёт вычисляемое поле выражением expr-lang.
type Computed struct {
	Field string
	Expr  string
}

// Column настраивает колонку при построении без шаблона.
type Column struct {
	Align string
	// Width в пикселях.
	Width float64
}

// -----------------------------
// Подготовка блока
// -----------------------------

// провалидированный блок с откомпилированными выражениями
type block struct {
	DataBlock
	index      int
	tags       *tagPattern
	computed   []program
	groupBy    *vm.Program
	aggregates []program
}

type program struct {
	field string
	prog  *vm.Program
}

func prepareBlocks(in []DataBlock) ([]*block, error) {
	out := make([]*block, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for i, db := range in {
		b, err := prepareBlock(db, i)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[b.ID]; dup {
			return nil, blockErrorf(b.ID, i, "id повторяется")
		}
		seen[b.ID] = struct{}{}
		out = append(out, b)
	}
	return out, nil
}

func prepareBlock(db DataBlock, idx int) (*block, error) {
	id := strings.TrimSpace(db.ID)
	if id == "" {
		return nil, blockErrorf("", idx, "отсутствует id")
	}
	if strings.ContainsAny(id, "{}:") {
		return nil, blockErrorf(id, idx, "id не может содержать символы {, } и :")
	}
	if db.Rows == nil && db.Values == nil {
		return nil, blockErrorf(id, idx, "отсутствует коллекция строк (rows или values)")
	}
	if db.Rows != nil && db.Values != nil {
		return nil, blockErrorf(id, idx, "rows и values взаимоисключающие")
	}
	if db.MinRows < 0 {
		return nil, blockErrorf(id, idx, "minRows не может быть отрицательным")
	}
	if db.Step < 0 {
		return nil, blockErrorf(id, idx, "step не может быть отрицательным")
	}
	if db.Step == 0 {
		db.Step = 1
	}
	// группировка без групп и без выражения означает обычное размножение
	if g := db.Group; g != nil && len(g.Groups) == 0 && strings.TrimSpace(g.By) == "" {
		db.Group = nil
	}
	db.ID = id
	b := &block{DataBlock: db, index: idx, tags: newTagPattern(id)}

	var err error
	if b.computed, err = compileAll(db.Computed); err != nil {
		return nil, blockErrorf(id, idx, "computed: %v", err)
	}
	if db.Group != nil {
		if db.Values != nil {
			return nil, blockErrorf(id, idx, "группировка возможна только для повторяющихся строк")
		}
		if err := validateGroups(db.Group, len(db.Rows)); err != nil {
			return nil, blockErrorf(id, idx, "%v", err)
		}
		if by := strings.TrimSpace(db.Group.By); by != "" {
			if b.groupBy, err = expro.Compile(by, expro.AllowUndefinedVariables()); err != nil {
				return nil, blockErrorf(id, idx, "group.by: %v", err)
			}
		}
		if b.aggregates, err = compileAll(db.Group.Aggregates); err != nil {
			return nil, blockErrorf(id, idx, "group.aggregates: %v", err)
		}
	}
	return b, nil
}

func validateGroups(g *GroupSpec, rowCount int) error {
	if strings.TrimSpace(g.By) != "" && len(g.Groups) > 0 {
		return fmt.Errorf("group.by и явные группы взаимоисключающие")
	}
	names := make(map[string]struct{}, len(g.Groups))
	for _, grp := range g.Groups {
		if _, dup := names[grp.Name]; dup {
			return fmt.Errorf("группа %q повторяется", grp.Name)
		}
		names[grp.Name] = struct{}{}
		for _, ri := range grp.Rows {
			if ri < 0 || ri >= rowCount {
				return fmt.Errorf("группа %q ссылается на строку %d, всего строк %d", grp.Name, ri, rowCount)
			}
		}
	}
	return nil
}

func compileAll(cs []Computed) ([]program, error) {
	out := make([]program, 0, len(cs))
	for _, c := range cs {
		field := strings.TrimSpace(c.Field)
		if field == "" {
			return nil, fmt.Errorf("пустое имя поля для выражения %q", c.Expr)
		}
		p, err := expro.Compile(c.Expr, expro.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("%s: %v", field, err)
		}
		out = append(out, program{field: field, prog: p})
	}
	return out, nil
}

// fieldsOf возвращает порядок колонок: явный Fields либо отсортированные ключи образца.
func fieldsOf(explicit []string, sample Row) []string {
	if len(explicit) > 0 {
		return explicit
	}
	keys := make([]string, 0, len(sample))
	for k := range sample {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
