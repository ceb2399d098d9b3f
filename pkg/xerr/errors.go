package xerr

import (
	"errors"
	"fmt"
)

// 拒单错误码
const (
	OK              = 0
	BadFormat       = 400
	BadSide         = 401
	BadQuantity     = 402
	PriceOutOfRange = 403
	PipelineClosed  = 503
	Unknown         = 500
)

type CodeError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *CodeError) Error() string {
	return fmt.Sprintf("ErrCode:%d, Msg:%s", e.Code, e.Msg)
}

// Is 同码即相等，errors.Is(err, xerr.NewErrCode(xerr.BadSide)) 可用
func (e *CodeError) Is(target error) bool {
	t, ok := target.(*CodeError)
	return ok && t.Code == e.Code
}

func New(code int, msg string) error {
	return &CodeError{Code: code, Msg: msg}
}

func Newf(code int, format string, args ...any) error {
	return &CodeError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func NewErrCode(code int) error {
	return &CodeError{Code: code, Msg: MapErrMsg(code)}
}

// CodeOf 取错误码；nil 是 OK，非 CodeError 是 Unknown
func CodeOf(err error) int {
	if err == nil {
		return OK
	}
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return Unknown
}

// Reason 指标/日志里用的短标签
func Reason(err error) string {
	switch CodeOf(err) {
	case OK:
		return "ok"
	case BadFormat:
		return "bad_format"
	case BadSide:
		return "bad_side"
	case BadQuantity:
		return "bad_quantity"
	case PriceOutOfRange:
		return "price_out_of_range"
	case PipelineClosed:
		return "pipeline_closed"
	default:
		return "unknown"
	}
}

func MapErrMsg(code int) string {
	switch code {
	case BadFormat:
		return "invalid order format"
	case BadSide:
		return "invalid side"
	case BadQuantity:
		return "quantity must be positive"
	case PriceOutOfRange:
		return "price out of range"
	case PipelineClosed:
		return "pipeline closed"
	default:
		return "unknown error"
	}
}
