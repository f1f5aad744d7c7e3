package mpv

import "strings"

// ParseArgs splits a string of command-line arguments, respecting quotes
func ParseArgs(argsString string) []string {
	var args []string
	var quote rune
	var current strings.Builder
	inArg := false

	for _, r := range argsString {
		switch {
		case quote != 0 && r == quote:
			quote = 0
		case quote == 0 && (r == '"' || r == '\''):
			quote = r
			inArg = true
		case quote == 0 && (r == ' ' || r == '\t'):
			if inArg {
				args = append(args, current.String())
				current.Reset()
				inArg = false
			}
		default:
			current.WriteRune(r)
			inArg = true
		}
	}

	if inArg {
		args = append(args, current.String())
	}

	return args
}
