package assistant

import (
	"regexp"
	"strings"
)

const minFence = 3

var (
	infoStringRe   = regexp.MustCompile(`^[a-zA-Z0-9_+.-]*$`)
	openingFenceRe = regexp.MustCompile("^`{3,}[a-zA-Z0-9_+\\.-]*[ \\t]*\\r?\\n")
)

// StripCodeFences returns the body of the first fenced code block in text.
// A block closes only on a line holding nothing but at least as many
// backticks as opened it, so fence-like lines inside the code survive.
// Without a complete block it drops a dangling opening fence and returns
// the rest. Leading indentation of the first code line is preserved.
func StripCodeFences(text string) string {
	lines := strings.SplitAfter(text, "\n")
	for i, line := range lines {
		width, ok := openingFence(line)
		if !ok {
			continue
		}
		for j := i + 1; j < len(lines); j++ {
			if closesFence(lines[j], width) {
				return trimBlankLines(strings.Join(lines[i+1:j], ""))
			}
		}
		break
	}

	trimmed := strings.TrimLeft(text, " \t\r\n")
	if loc := openingFenceRe.FindStringIndex(trimmed); loc != nil {
		trimmed = strings.TrimSuffix(strings.TrimRight(trimmed[loc[1]:], " \t\r\n"), "```")
	}
	return trimBlankLines(trimmed)
}

// openingFence reports the backtick count of a fence line such as
// "```python".
func openingFence(line string) (int, bool) {
	s := strings.TrimRight(strings.TrimLeft(line, " \t"), " \t\r\n")
	width := len(s) - len(strings.TrimLeft(s, "`"))
	if width < minFence || !infoStringRe.MatchString(s[width:]) {
		return 0, false
	}
	return width, true
}

func closesFence(line string, width int) bool {
	s := strings.Trim(line, " \t\r\n")
	return len(s) >= width && strings.Trim(s, "`") == ""
}

func trimBlankLines(s string) string {
	s = strings.TrimRight(s, " \t\r\n")
	for {
		idx := strings.IndexByte(s, '\n')
		if idx < 0 || strings.TrimSpace(s[:idx]) != "" {
			return s
		}
		s = s[idx+1:]
	}
}
