package cli

import (
	"strconv"
	"strings"
)

// valueFlags take a separate value, so a negative number after them is that
// value rather than an operand.
var valueFlags = map[string]bool{
	"--format":         true,
	"--config":         true,
	"--log-level":      true,
	"--remote":         true,
	"--db":             true,
	"--session":        true,
	"--timeout":        true,
	"--addr":           true,
	"--allowed-origin": true,
	"--filter":         true,
	"--backend":        true,
	"--limit":          true,
}

// NormalizeNumericArgs inserts "--" before the first negative number operand
// so that `rpn push -4` is not parsed as a shorthand flag. args[0] is the
// program name. Flags must precede the first negative operand; anything after
// the inserted "--" is positional.
func NormalizeNumericArgs(args []string) []string {
	if len(args) <= 1 {
		return args
	}
	for i := 1; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return args
		}
		if !isNegativeNumber(arg) {
			continue
		}
		if valueFlags[args[i-1]] {
			continue
		}
		normalized := make([]string, 0, len(args)+1)
		normalized = append(normalized, args[:i]...)
		normalized = append(normalized, "--")
		normalized = append(normalized, args[i:]...)
		return normalized
	}
	return args
}

func isNegativeNumber(arg string) bool {
	if !strings.HasPrefix(arg, "-") || strings.HasPrefix(arg, "--") {
		return false
	}
	_, err := strconv.ParseFloat(arg, 64)
	return err == nil
}
