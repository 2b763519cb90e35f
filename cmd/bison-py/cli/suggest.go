// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"

	"github.com/spf13/pflag"
)

// suggestCommand returns the name of the subcommand closest to input,
// or "" if nothing is close enough to be a plausible typo.
func suggestCommand(input string, commands []*Command) string {
	best := ""
	bestDistance := 4 // suggestions beyond this distance are noise

	for _, command := range commands {
		distance := levenshtein(input, command.Name)
		if distance < bestDistance {
			bestDistance = distance
			best = command.Name
		}
	}
	return best
}

// suggestFlag extracts the unknown flag from args and returns the
// closest registered flag, or "" if none is close.
func suggestFlag(args []string, flagSet *pflag.FlagSet) string {
	unknown := ""
	for _, arg := range args {
		if strings.HasPrefix(arg, "--") {
			unknown = strings.TrimPrefix(arg, "--")
			if i := strings.Index(unknown, "="); i >= 0 {
				unknown = unknown[:i]
			}
			break
		}
	}
	if unknown == "" {
		return ""
	}

	best := ""
	bestDistance := 4
	flagSet.VisitAll(func(flag *pflag.Flag) {
		distance := levenshtein(unknown, flag.Name)
		if distance < bestDistance {
			bestDistance = distance
			best = "--" + flag.Name
		}
	})
	return best
}

// levenshtein computes the edit distance between two strings using a
// single-row dynamic programming table.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}

	for i := 1; i <= len(a); i++ {
		previous := row[0]
		row[0] = i
		for j := 1; j <= len(b); j++ {
			current := row[j]
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			row[j] = min(row[j]+1, min(row[j-1]+1, previous+cost))
			previous = current
		}
	}
	return row[len(b)]
}
