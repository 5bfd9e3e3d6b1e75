package listing

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold: 大文字小文字とアクセントを無視した比較用の文字列（"Cómputo" → "computo"）
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	// Caser は goroutine 間で共有できない
	return cases.Fold().String(out)
}

// Contains: needle が空なら常に true。前後の空白もそのまま比較する
func Contains(haystack, needle string) bool {
	n := Fold(needle)
	if n == "" {
		return true
	}
	return strings.Contains(Fold(haystack), n)
}

// ContainsAny: いずれかのフィールドに部分一致
func ContainsAny(needle string, fields ...string) bool {
	n := Fold(needle)
	if n == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(Fold(f), n) {
			return true
		}
	}
	return false
}

// Equal: 折りたたみ後の完全一致。前後の空白は無視する
func Equal(a, b string) bool {
	return Fold(strings.TrimSpace(a)) == Fold(strings.TrimSpace(b))
}
