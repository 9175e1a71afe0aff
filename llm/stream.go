package llm

import "strings"

// StreamAccumulator collects stream events into a complete Response. The
// caller forwards deltas live and asks the accumulator for the final response
// once the stream finishes.
type StreamAccumulator struct {
	text         strings.Builder
	toolCalls    []ToolCall
	finishReason *FinishReason
	usage        *Usage
	response     *Response
}

// NewStreamAccumulator creates a new StreamAccumulator.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{}
}

// Process ingests a single stream event.
func (sa *StreamAccumulator) Process(event StreamEvent) {
	switch event.Type {
	case TextDelta:
		sa.text.WriteString(event.Delta)
	case ToolCallEnd:
		if event.ToolCall != nil {
			sa.toolCalls = append(sa.toolCalls, *event.ToolCall)
		}
	case StreamFinish:
		sa.finishReason = event.FinishReason
		sa.usage = event.Usage
		sa.response = event.Response
	}
}

// Response returns the accumulated response. If the provider supplied a full
// response on finish, that is returned; otherwise one is rebuilt from the
// accumulated parts.
func (sa *StreamAccumulator) Response() *Response {
	if sa.response != nil {
		return sa.response
	}

	var content []ContentPart
	if text := sa.text.String(); text != "" {
		content = append(content, TextPart(text))
	}
	for _, tc := range sa.toolCalls {
		content = append(content, ToolCallPart(tc.ID, tc.Name, tc.Arguments))
	}

	fr := FinishReason{Reason: "stop"}
	if sa.finishReason != nil {
		fr = *sa.finishReason
	}

	usage := Usage{}
	if sa.usage != nil {
		usage = *sa.usage
	}

	return &Response{
		Message:      Message{Role: RoleAssistant, Content: content},
		FinishReason: fr,
		Usage:        usage,
	}
}
