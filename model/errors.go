package model

import (
	"errors"
	"fmt"
)

// 模型错误
var (
	ErrEmptyModel        = errors.New("model: no unknowns or no equations")
	ErrNoGroups          = errors.New("model: equation returned no equal-groups")
	ErrGroupSize         = errors.New("model: equal-group needs at least two members")
	ErrNilQuantity       = errors.New("model: nil quantity")
	ErrEquationPanic     = errors.New("model: equation panicked")
	ErrUnstableResiduals = errors.New("model: residual count changed between evaluations")
	ErrUnknownModel      = errors.New("model: unknown model")
	ErrUnknownPath       = errors.New("model: unknown quantity path")
)

// EquationError 方程求值错误
type EquationError struct {
	Path string // 方程路径
	Err  error
}

func (e *EquationError) Error() string {
	return fmt.Sprintf("model: equation %s: %v", e.Path, e.Err)
}

func (e *EquationError) Unwrap() error { return e.Err }
