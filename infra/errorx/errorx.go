package errorx

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"

	"isingstat/infra/errorx/errCode"
)

// Error 带分类码的错误
type Error struct {
	Code  errCode.ErrCode
	Msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Msg, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.cause }

// Cause pkg/errors 约定
func (e *Error) Cause() error { return e.cause }

func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') && e.cause != nil {
			fmt.Fprintf(s, "[%s] %s: %+v", e.Code, e.Msg, e.cause)
			return
		}
		fallthrough
	case 's':
		fmt.Fprint(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}

func New(code errCode.ErrCode, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

func Newf(code errCode.ErrCode, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap 保留原错误并附带调用栈, err 为 nil 时返回 nil
func Wrap(err error, code errCode.ErrCode, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Msg: msg, cause: pkgerrors.WithStack(err)}
}

func Wrapf(err error, code errCode.ErrCode, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// CodeOf 返回错误链上最外层的分类码
func CodeOf(err error) errCode.ErrCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return errCode.UNKNOWN
}

// Is 错误链上是否存在指定分类码
func Is(err error, code errCode.ErrCode) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.cause
	}
	return false
}
