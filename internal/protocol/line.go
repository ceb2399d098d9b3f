// Package protocol 文本行协议："<side> <quantity> <price>"，price 是美元小数。
package protocol

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"tickbook.com/internal/matching"
	"tickbook.com/pkg/xerr"
)

var (
	hundred  = decimal.NewFromInt(matching.ScaleFactor)
	maxCents = decimal.NewFromInt(1 << 53)
)

// DollarsToCents 四舍五入到分（half-up）
func DollarsToCents(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, xerr.Newf(xerr.BadFormat, "bad price %q", s)
	}
	cents := d.Mul(hundred).Round(0)
	if cents.Abs().GreaterThan(maxCents) {
		return 0, xerr.Newf(xerr.PriceOutOfRange, "price %s", s)
	}
	return cents.IntPart(), nil
}

// CentsToDollars 去掉末尾的 0："500" -> "5"，"456" -> "4.56"
func CentsToDollars(cents int64) string {
	return decimal.New(cents, -2).String()
}

// ParseLine 解析一行；多余的字段忽略。ID 由调用方分配
func ParseLine(line string, rng matching.PriceRange) (matching.Order, error) {
	var o matching.Order
	f := strings.Fields(line)
	if len(f) < 3 {
		return o, xerr.Newf(xerr.BadFormat, "want 3 fields, got %d", len(f))
	}

	qty, err := strconv.ParseInt(f[1], 10, 64)
	if err != nil {
		return o, xerr.Newf(xerr.BadFormat, "bad quantity %q", f[1])
	}
	cents, err := DollarsToCents(f[2])
	if err != nil {
		return o, err
	}

	switch f[0] {
	case "buy":
		o.Side = matching.Buy
	case "sell":
		o.Side = matching.Sell
	default:
		return o, xerr.Newf(xerr.BadSide, "bad side %q", f[0])
	}

	if qty <= 0 {
		return o, xerr.Newf(xerr.BadQuantity, "quantity %d", qty)
	}
	if !rng.Contains(cents) {
		return o, xerr.Newf(xerr.PriceOutOfRange, "price %d not in [%d, %d]", cents, rng.Min, rng.Max)
	}
	o.Qty = qty
	o.Price = cents
	return o, nil
}

// FormatLine 反向格式化，不带换行
func FormatLine(o matching.Order) string {
	var sb strings.Builder
	sb.Grow(32)
	sb.WriteString(o.Side.String())
	sb.WriteByte(' ')
	sb.WriteString(strconv.FormatInt(o.Qty, 10))
	sb.WriteByte(' ')
	sb.WriteString(CentsToDollars(o.Price))
	return sb.String()
}
