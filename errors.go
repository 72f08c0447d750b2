package xlreport

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig: ошибка конфигурации отчёта, обнаруживается до любых изменений документа.
	ErrConfig = errors.New("некорректная конфигурация отчёта")
	// неизвестный тип вывода
	ErrUnsupportedOutput = errors.New("неподдерживаемый тип вывода")
	// ErrOutputUnavailable: тип вывода известен, но писателя для него в сборке нет.
	ErrOutputUnavailable = errors.New("тип вывода недоступен")
	// отчёт формируется ровно один раз
	ErrAlreadyGenerated = errors.New("отчёт уже сформирован")
	ErrNoDocument       = errors.New("документ не задан")
)

// BlockError описывает ошибку конфигурации конкретного блока данных.
type BlockError struct {
	Block  string // id блока, если известен
	Index  int    // позиция блока при регистрации
	Reason string
}

func (e *BlockError) Error() string {
	if e.Block == "" {
		return fmt.Sprintf("блок #%d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("блок %q (#%d): %s", e.Block, e.Index, e.Reason)
}

// Unwrap позволяет проверять ошибку через errors.Is(err, ErrConfig).
func (e *BlockError) Unwrap() error { return ErrConfig }

func blockErrorf(id string, idx int, format string, args ...interface{}) *BlockError {
	return &BlockError{Block: id, Index: idx, Reason: fmt.Sprintf(format, args...)}
}
