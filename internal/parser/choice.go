package parser

import "strings"

// maxChoiceDigits caps how many digits ParseChoice accumulates; anything
// longer is out of range for any candidate list anyway.
const maxChoiceDigits = 6

// ParseChoice reports whether text is purely a number and returns it.
// ASCII, Arabic-Indic (٠-٩) and extended Arabic-Indic (۰-۹) digits are
// accepted. Surrounding whitespace is ignored.
func ParseChoice(text string) (int, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}

	n, digits := 0, 0
	for _, r := range text {
		d, ok := digitValue(r)
		if !ok {
			return 0, false
		}
		if digits < maxChoiceDigits {
			n = n*10 + d
		}
		digits++
	}
	if digits > maxChoiceDigits {
		// Out of range for any list; keep it large rather than wrap.
		n = 1_000_000
	}
	return n, true
}

func digitValue(r rune) (int, bool) {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0'), true
	case r >= '٠' && r <= '٩':
		return int(r - '٠'), true
	case r >= '۰' && r <= '۹':
		return int(r - '۰'), true
	}
	return 0, false
}
