package quantity

import (
	"errors"
	"fmt"

	"causal/units"
)

// 物理量错误
var (
	ErrUnitMismatch = errors.New("quantity: unit mismatch")
	ErrDomain       = errors.New("quantity: domain error")
	ErrBounds       = errors.New("quantity: lower bound above upper bound")
	ErrUncertainty  = errors.New("quantity: negative uncertainty")
)

// UnitMismatchError 单位不一致
type UnitMismatchError struct {
	Op          string
	Left, Right units.Unit
}

func (e *UnitMismatchError) Error() string {
	return fmt.Sprintf("quantity: unit mismatch in %s: [%s] vs [%s]", e.Op, e.Left, e.Right)
}

func (e *UnitMismatchError) Unwrap() error { return ErrUnitMismatch }

// DomainError 定义域错误
type DomainError struct {
	Op    string
	Value float64
	Err   error // 底层原因, 可为空
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("quantity: %s(%g) out of domain: %v", e.Op, e.Value, e.Err)
	}
	return fmt.Sprintf("quantity: %s(%g) out of domain", e.Op, e.Value)
}

func (e *DomainError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrDomain, e.Err}
	}
	return []error{ErrDomain}
}
