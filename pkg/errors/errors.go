// Package errors 定义业务错误分类。
//
// 各 service 以 New(kind, msg) 声明哨兵错误；需要附带数量（如依赖记录数）
// 或底层原因时通过 WithCount / Wrap 派生新值，errors.Is 仍可匹配原哨兵。
package errors

import (
	"errors"
	"fmt"
)

// Kind 错误分类，由 handler 映射为 HTTP 状态码
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindPrecondition
	KindExamWindow
	KindProvider
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindPrecondition:
		return "precondition_failed"
	case KindExamWindow:
		return "exam_window"
	case KindProvider:
		return "provider"
	default:
		return "internal"
	}
}

// MaxDetailLen 写入响应的底层错误文本最大长度（按字符计）
const MaxDetailLen = 200

// Error 带分类的业务错误
type Error struct {
	Kind    Kind
	Message string
	Count   int64
	cause   error
}

// New 创建哨兵错误
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	if e.cause != nil && !isSentinel(e.cause) {
		return e.Message + ": " + e.cause.Error()
	}
	if e.Count > 0 {
		return fmt.Sprintf("%s（%d）", e.Message, e.Count)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// WithCount 派生携带依赖数量的错误
func (e *Error) WithCount(n int64) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Count: n, cause: e}
}

// Wrap 派生携带底层原因的错误；errors.Is 同时匹配哨兵与原因
func (e *Error) Wrap(cause error) error {
	return &wrapped{err: &Error{Kind: e.Kind, Message: e.Message, cause: cause}, sentinel: e}
}

// Withf 派生自定义描述的错误（如 "3 道题目不存在"）
func (e *Error) Withf(format string, args ...interface{}) *Error {
	return &Error{Kind: e.Kind, Message: fmt.Sprintf(format, args...), cause: e}
}

// wrapped 匹配哨兵，同时沿 Unwrap 链暴露底层原因
type wrapped struct {
	err      *Error
	sentinel *Error
}

func (w *wrapped) Error() string { return w.err.Error() }

func (w *wrapped) Unwrap() error { return w.err.cause }

func (w *wrapped) Is(target error) bool { return target == w.sentinel }

func (w *wrapped) As(target interface{}) bool {
	if p, ok := target.(**Error); ok {
		*p = w.err
		return true
	}
	return false
}

func isSentinel(err error) bool {
	_, ok := err.(*Error)
	return ok
}

// KindOf 提取错误分类；非业务错误视为 KindInternal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf 提取业务错误描述
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}

// CountOf 提取依赖数量，无则为 0
func CountOf(err error) int64 {
	var e *Error
	if errors.As(err, &e) {
		return e.Count
	}
	return 0
}

// Truncate 按字符截断文本，超出部分以 "..." 结尾
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// Detail 返回可写入响应的截断错误文本
func Detail(err error) string {
	if err == nil {
		return ""
	}
	return Truncate(err.Error(), MaxDetailLen)
}
