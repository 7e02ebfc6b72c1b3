package process

import "strings"

// ShellQuote renders argv in Unix shell style for logs. Whitespace,
// backslashes and quotes are backslash-escaped. The result is not guaranteed
// to be re-parseable; it is never used to run anything.
func ShellQuote(argv []string) string {
	var b strings.Builder
	for i, arg := range argv {
		if i > 0 {
			b.WriteByte(' ')
		}
		for _, r := range arg {
			switch r {
			case ' ', '\t', '\n', '\r', '\\', '\'', '"':
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
