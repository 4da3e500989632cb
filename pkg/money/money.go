package money

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// 金额统一使用 decimal，保留两位小数

var ErrInvalidAmount = errors.New("invalid amount")

var amountPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Zero 零值
var Zero = decimal.Zero

// Parse 解析金额字符串，允许千分位逗号
func Parse(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FromFloat 按最短十进制表示转换，避免二进制误差带入账本
func FromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// Extract 从 "1,234.50 Birr" 这类文本中提取第一个数字
func Extract(text string) (decimal.Decimal, bool) {
	m := amountPattern.FindString(strings.ReplaceAll(text, ",", ""))
	if m == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(m)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Round2 四舍五入到两位小数
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Format 固定两位小数输出
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Within 判断 actual 是否落在 expected±tolerance 闭区间内
func Within(expected, actual, tolerance decimal.Decimal) bool {
	return actual.GreaterThanOrEqual(expected.Sub(tolerance)) &&
		actual.LessThanOrEqual(expected.Add(tolerance))
}
