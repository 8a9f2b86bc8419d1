package graph

import (
	"errors"
	"fmt"
	"strings"
)

// 结构错误
var (
	ErrUnderOrOverDetermined = errors.New("graph: equation count differs from unknown count")
	ErrAmbiguousMatching     = errors.New("graph: no perfect equation/unknown matching")
)

// UnderOrOverDeterminedError 方程数与未知量数不等
type UnderOrOverDeterminedError struct {
	Rows, Cols int
	Usage      []Usage
}

func (e *UnderOrOverDeterminedError) Error() string {
	return fmt.Sprintf("graph: %d equations for %d unknowns%s", e.Rows, e.Cols, usageSuffix(e.Usage))
}

func (e *UnderOrOverDeterminedError) Unwrap() error { return ErrUnderOrOverDetermined }

// AmbiguousMatchingError 匹配不完美
type AmbiguousMatchingError struct {
	UnmatchedRows []string
	UnmatchedCols []string
	Usage         []Usage
}

func (e *AmbiguousMatchingError) Error() string {
	return fmt.Sprintf("graph: no perfect matching: unmatched equations [%s], unmatched unknowns [%s]%s",
		strings.Join(e.UnmatchedRows, ", "), strings.Join(e.UnmatchedCols, ", "), usageSuffix(e.Usage))
}

func (e *AmbiguousMatchingError) Unwrap() error { return ErrAmbiguousMatching }

// attachUsage 为结构错误附加使用统计
func attachUsage(err error, usage []Usage) {
	var uo *UnderOrOverDeterminedError
	if errors.As(err, &uo) {
		uo.Usage = usage
	}
	var am *AmbiguousMatchingError
	if errors.As(err, &am) {
		am.Usage = usage
	}
}

// usageSuffix 错误信息中列出未被使用或仅单点使用的未知量
func usageSuffix(usage []Usage) string {
	var weak []string
	for _, u := range usage {
		if u.Count == 0 || u.Shifted == 0 {
			weak = append(weak, fmt.Sprintf("%s(%d/%d)", u.Unknown, u.Count, u.Shifted))
		}
	}
	if len(weak) == 0 {
		return ""
	}
	return "; weakly used: " + strings.Join(weak, ", ")
}
