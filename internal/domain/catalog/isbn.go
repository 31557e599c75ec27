package catalog

import "strings"

// NormalizeISBN 去掉分隔符（978-7-115-42802-8 → 9787115428028），x统一为大写
func NormalizeISBN(isbn string) string {
	var b strings.Builder
	for _, r := range isbn {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		}
	}
	return b.String()
}

// ValidISBN 校验ISBN-10或ISBN-13（含校验位）
func ValidISBN(isbn string) bool {
	clean := NormalizeISBN(isbn)
	switch len(clean) {
	case 10:
		return validISBN10(clean)
	case 13:
		return validISBN13(clean)
	}
	return false
}

// validISBN10 加权和(10..1) mod 11 == 0，最后一位可以是X(=10)
func validISBN10(s string) bool {
	sum := 0
	for i := 0; i < 10; i++ {
		c := s[i]
		var d int
		switch {
		case c == 'X' && i == 9:
			d = 10
		case c >= '0' && c <= '9':
			d = int(c - '0')
		default:
			return false
		}
		sum += d * (10 - i)
	}
	return sum%11 == 0
}

// validISBN13 权重1,3交替，和 mod 10 == 0
func validISBN13(s string) bool {
	sum := 0
	for i := 0; i < 13; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return sum%10 == 0
}
