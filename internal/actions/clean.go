// Package actions finds and strips the fenced JSON blocks the assistant embeds
// in its replies. The same functions run on the server before persisting and
// in the chat client on every streamed frame.
package actions

import (
	"regexp"
	"strings"
)

var (
	closedBlockRe   = regexp.MustCompile("(?is)```json.*?```")
	unclosedBlockRe = regexp.MustCompile("(?is)```json.*$")
	blankRunRe      = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`)
)

// Clean removes every ```json fenced block, including one still being
// streamed (no closing fence yet), collapses blank-line runs left behind to a
// single blank line and trims the result. Clean(Clean(s)) == Clean(s).
func Clean(text string) string {
	for {
		next := cleanOnce(text)
		if next == text {
			return next
		}
		text = next
	}
}

func cleanOnce(text string) string {
	out := closedBlockRe.ReplaceAllString(text, "")
	out = unclosedBlockRe.ReplaceAllString(out, "")
	out = strings.ReplaceAll(out, "\r\n", "\n")
	out = blankRunRe.ReplaceAllString(out, "\n\n")
	out = stripPartialFence(strings.TrimSpace(out))
	return strings.TrimSpace(out)
}

const fenceMarker = "```json"

// stripPartialFence drops a trailing fragment of the opening marker, as seen
// when a frame boundary splits "```json". The fragment must start a word and
// sit outside any other fence.
func stripPartialFence(s string) string {
	for n := len(fenceMarker) - 1; n > 0; n-- {
		if len(s) < n {
			continue
		}
		start := len(s) - n
		if !strings.EqualFold(s[start:], fenceMarker[:n]) {
			continue
		}
		if start > 0 && !isSpace(s[start-1]) {
			continue
		}
		if strings.Count(s[:start], "```")%2 != 0 {
			continue
		}
		return s[:start]
	}
	return s
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}
