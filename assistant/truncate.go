package assistant

import (
	"fmt"
	"unicode/utf8"
)

// Default cap on tool output re-injected into model context. The event
// stream always carries the full output; only the model sees the clamp.
const defaultToolOutputLimit = 20000

// truncateToolOutput clamps output to maxChars, keeping head and tail with a
// marker in the middle so the model knows material was removed. Cut points
// back off to rune boundaries so the clamp never produces invalid UTF-8.
func truncateToolOutput(output string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = defaultToolOutputLimit
	}
	if len(output) <= maxChars {
		return output
	}

	half := maxChars / 2

	headEnd := half
	for headEnd > 0 && !utf8.RuneStart(output[headEnd]) {
		headEnd--
	}
	tailStart := len(output) - half
	for tailStart < len(output) && !utf8.RuneStart(output[tailStart]) {
		tailStart++
	}

	removed := tailStart - headEnd
	return output[:headEnd] +
		fmt.Sprintf("\n\n[Tool output truncated: %d characters removed from the middle. "+
			"Re-run the tool with more targeted parameters if you need the rest.]\n\n", removed) +
		output[tailStart:]
}
