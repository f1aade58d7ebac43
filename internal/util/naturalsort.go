package util

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CompareNames orders file names the way people read them: digit runs
// compare by numeric value ("img2" < "img10") and letters ignore case.
// Names that only differ in case or leading zeros are ordered by their
// raw bytes, so the result is a total order.
func CompareNames(a, b string) int {
	x, y := a, b
	for x != "" && y != "" {
		xd, yd := startsWithDigit(x), startsWithDigit(y)
		switch {
		case xd && !yd:
			return -1
		case !xd && yd:
			return 1
		case xd:
			var xn, yn string
			xn, x = splitRun(x, true)
			yn, y = splitRun(y, true)
			if c := compareDigits(xn, yn); c != 0 {
				return c
			}
		default:
			var xs, ys string
			xs, x = splitRun(x, false)
			ys, y = splitRun(y, false)
			if c := strings.Compare(strings.ToLower(xs), strings.ToLower(ys)); c != 0 {
				return c
			}
		}
	}
	switch {
	case x == "" && y != "":
		return -1
	case x != "" && y == "":
		return 1
	}
	return strings.Compare(a, b)
}

// NaturalSortLess reports whether a sorts before b under CompareNames.
func NaturalSortLess(a, b string) bool {
	return CompareNames(a, b) < 0
}

func startsWithDigit(s string) bool {
	return s[0] >= '0' && s[0] <= '9'
}

// splitRun cuts the leading run of digits (or non-digits) off s.
func splitRun(s string, digits bool) (run, rest string) {
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if (r < utf8.RuneSelf && unicode.IsDigit(r)) != digits {
			break
		}
		i += size
	}
	return s[:i], s[i:]
}

// compareDigits compares two ASCII digit runs by value without parsing,
// so runs longer than an int still order correctly.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
