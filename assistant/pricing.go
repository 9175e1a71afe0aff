package assistant

import "github.com/jgreely/concierge/llm"

// Default price point applied when a model is missing from the catalog, so
// accounting degrades to an estimate instead of failing.
const (
	defaultInputCostPerMillion  = 3.0
	defaultOutputCostPerMillion = 15.0
)

// Cost computes the USD cost of an exchange from token counts using the
// model catalog's per-million-token prices. Pure function; used for live
// done events and for persisted usage.
func Cost(model string, inputTokens, outputTokens int) float64 {
	inPerM := defaultInputCostPerMillion
	outPerM := defaultOutputCostPerMillion
	if info := llm.GetModelInfo(model); info != nil {
		inPerM = info.InputCostPerMillion
		outPerM = info.OutputCostPerMillion
	}
	return float64(inputTokens)/1e6*inPerM + float64(outputTokens)/1e6*outPerM
}
