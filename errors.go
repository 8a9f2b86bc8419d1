package causal

import (
	"errors"
	"fmt"
)

var (
	ErrReentrantSolve = errors.New("causal: solve already in progress")
	ErrNilModel       = errors.New("causal: nil model")
	ErrInvalidConfig  = errors.New("causal: invalid config")
	ErrValueSyntax    = errors.New("causal: value syntax")
)

// BlockError 块求解的致命错误
type BlockError struct {
	Block    int
	Unknowns []string
	Err      error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("causal: block %d %v: %v", e.Block+1, e.Unknowns, e.Err)
}

func (e *BlockError) Unwrap() error { return e.Err }
