package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonDigitRe = regexp.MustCompile(`[^0-9]`)
	dateRe     = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	folder     = cases.Fold()
)

// NormalizeLabel 规范化列名：去声调、大小写折叠、去除空白与符号
// "Ngày sử dụng *" 与 "ngay su dung" 得到相同结果
func NormalizeLabel(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, name)
	if err != nil {
		s = name
	}
	s = folder.String(s)
	s = strings.NewReplacer("đ", "d", "Đ", "d").Replace(s)

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TrimString 字符串字段：去首尾空白；数值/日期转为文本
func TrimString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		return x.Format("02/01/2006")
	default:
		return ""
	}
}

// ParseMoney 金额字段：去掉所有非数字字符后按整数解析，无法解析时为 0
// "1,200,000₫" → 1200000；"abc" → 0
func ParseMoney(v any) int64 {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
			return 0
		}
		return int64(math.Round(x))
	case int:
		if x < 0 {
			return 0
		}
		return int64(x)
	case int64:
		if x < 0 {
			return 0
		}
		return x
	case string:
		digits := nonDigitRe.ReplaceAllString(x, "")
		if digits == "" {
			return 0
		}
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// ParseDate 日期字段：接受 DD/MM/YYYY 文本或原生日期，其余形态返回 nil（字段缺省）
func ParseDate(v any) *time.Time {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return nil
		}
		d := time.Date(x.Year(), x.Month(), x.Day(), 0, 0, 0, 0, time.UTC)
		return &d
	case string:
		m := dateRe.FindStringSubmatch(strings.TrimSpace(x))
		if m == nil {
			return nil
		}
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		// 31/02/2025 之类会被 time.Date 进位，视为无效
		if d.Day() != day || int(d.Month()) != month || d.Year() != year {
			return nil
		}
		return &d
	default:
		return nil
	}
}
