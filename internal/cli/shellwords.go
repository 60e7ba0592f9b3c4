package cli

import (
	"errors"
	"unicode"
)

var errUnterminatedQuote = errors.New("unterminated quote")

// splitWords splits a shell line into words. Single and double quotes group
// words; a backslash escapes the next rune except inside single quotes.
func splitWords(s string) ([]string, error) {
	var (
		out      []string
		cur      []rune
		inWord   bool
		inSingle bool
		inDouble bool
		escaped  bool
	)
	flush := func() {
		if inWord {
			out = append(out, string(cur))
		}
		cur = cur[:0]
		inWord = false
	}

	for _, r := range s {
		switch {
		case escaped:
			cur = append(cur, r)
			escaped = false
		case r == '\\' && !inSingle:
			escaped, inWord = true, true
		case r == '\'' && !inDouble:
			inSingle = !inSingle
			inWord = true
		case r == '"' && !inSingle:
			inDouble = !inDouble
			inWord = true
		case !inSingle && !inDouble && unicode.IsSpace(r):
			flush()
		default:
			cur = append(cur, r)
			inWord = true
		}
	}
	if inSingle || inDouble {
		return nil, errUnterminatedQuote
	}
	if escaped {
		cur = append(cur, '\\')
	}
	flush()
	return out, nil
}
