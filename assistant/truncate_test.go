package assistant

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateToolOutputPassthrough(t *testing.T) {
	assert.Equal(t, "short", truncateToolOutput("short", 100))
	exact := strings.Repeat("x", 100)
	assert.Equal(t, exact, truncateToolOutput(exact, 100))
}

func TestTruncateToolOutputKeepsHeadAndTail(t *testing.T) {
	input := strings.Repeat("a", 500) + strings.Repeat("z", 500)
	out := truncateToolOutput(input, 100)

	assert.True(t, strings.HasPrefix(out, strings.Repeat("a", 50)))
	assert.True(t, strings.HasSuffix(out, strings.Repeat("z", 50)))
	assert.Contains(t, out, "truncated")
	assert.Contains(t, out, "900 characters removed")
}

func TestTruncateToolOutputPreservesRuneBoundaries(t *testing.T) {
	// Three-byte runes with a limit whose halves land mid-rune at both cuts.
	input := strings.Repeat("嗨", 100)
	out := truncateToolOutput(input, 100)

	assert.True(t, utf8.ValidString(out), "clamped output must stay valid UTF-8")
	assert.Contains(t, out, "truncated")
	assert.True(t, strings.HasPrefix(out, "嗨"))
	assert.True(t, strings.HasSuffix(out, "嗨"))
}

func TestTruncateToolOutputZeroLimitUsesDefault(t *testing.T) {
	small := "hello"
	assert.Equal(t, small, truncateToolOutput(small, 0))

	big := strings.Repeat("b", defaultToolOutputLimit+1000)
	out := truncateToolOutput(big, 0)
	assert.Less(t, len(out), len(big))
}
