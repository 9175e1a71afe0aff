package assistant

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/jgreely/concierge/llm"
)

// callGuard tracks tool-call signatures within one exchange and flags a
// repeating pattern so the orchestrator can steer the model off it before the
// iteration ceiling burns down. Signatures are name plus an argument hash:
// the same tool with different arguments is not a repeat.
type callGuard struct {
	window int
	sigs   []string
}

func newCallGuard(window int) *callGuard {
	return &callGuard{window: window}
}

func callSignature(name string, arguments json.RawMessage) string {
	h := sha256.Sum256(arguments)
	return fmt.Sprintf("%s:%x", name, h[:8])
}

// record adds the round's tool calls and reports whether the last window
// calls repeat a pattern of length 1, 2 or 3.
func (g *callGuard) record(calls []llm.ToolCall) bool {
	for _, tc := range calls {
		g.sigs = append(g.sigs, callSignature(tc.Name, tc.Arguments))
	}
	if g.window <= 0 || len(g.sigs) < g.window {
		return false
	}

	recent := g.sigs[len(g.sigs)-g.window:]
	for patternLen := 1; patternLen <= 3; patternLen++ {
		if g.window%patternLen != 0 {
			continue
		}
		pattern := recent[:patternLen]
		allMatch := true
		for i := patternLen; i < g.window && allMatch; i += patternLen {
			for j := 0; j < patternLen; j++ {
				if recent[i+j] != pattern[j] {
					allMatch = false
					break
				}
			}
		}
		if allMatch {
			return true
		}
	}
	return false
}
