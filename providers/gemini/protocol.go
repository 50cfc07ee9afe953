package gemini

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JECH20102004/dayugame/audio"
	"github.com/JECH20102004/dayugame/logger"
	"github.com/JECH20102004/dayugame/types"
)

// decoder turns server messages into inbound events. It numbers audio
// fragments in arrival order.
type decoder struct {
	seq int64
}

func (d *decoder) decode(msg *ServerMessage) []types.InboundEvent {
	var out []types.InboundEvent

	if msg.ToolCall != nil {
		for _, fc := range msg.ToolCall.FunctionCalls {
			out = append(out, types.ToolCallRequest{ID: fc.ID, Name: fc.Name, Args: fc.Args})
		}
	}
	if msg.ToolCallCancellation != nil {
		logger.Debug("Gemini tool calls cancelled", "ids", msg.ToolCallCancellation.IDs)
	}
	if msg.GoAway != nil {
		logger.Warn("Gemini server going away", "time_left", msg.GoAway.TimeLeft)
	}
	if msg.ServerContent != nil {
		out = append(out, d.decodeContent(msg.ServerContent)...)
	}
	if u := msg.UsageMetadata; u != nil {
		out = append(out, types.Usage{
			PromptTokens:   u.PromptTokenCount,
			ResponseTokens: u.ResponseTokenCount,
			TotalTokens:    u.TotalTokenCount,
		})
	}
	return out
}

func (d *decoder) decodeContent(c *ServerContent) []types.InboundEvent {
	var out []types.InboundEvent

	if c.Interrupted {
		out = append(out, types.Interrupted{})
	}
	if c.InputTranscription != nil && c.InputTranscription.Text != "" {
		out = append(out, types.Transcript{Source: types.TranscriptInput, Text: c.InputTranscription.Text})
	}
	if c.OutputTranscription != nil && c.OutputTranscription.Text != "" {
		out = append(out, types.Transcript{Source: types.TranscriptOutput, Text: c.OutputTranscription.Text})
	}
	if c.ModelTurn != nil {
		for _, part := range c.ModelTurn.Parts {
			if part.InlineData == nil || !strings.HasPrefix(part.InlineData.MimeType, "audio/") {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				logger.Debug("Gemini audio part is not valid base64", "error", err)
				continue
			}
			d.seq++
			out = append(out, types.AudioFragment{Data: data, MIMEType: part.InlineData.MimeType, Seq: d.seq})
		}
	}
	if c.TurnComplete {
		out = append(out, types.TurnComplete{})
	}
	return out
}

// encodeMedia builds the realtime input message for one chunk.
func encodeMedia(chunk types.MediaChunk) ([]byte, error) {
	var mimeType string
	switch chunk.Kind {
	case types.MediaAudio:
		mimeType = audio.PCMMimeType(chunk.SampleRate)
	case types.MediaFrame:
		mimeType = chunk.MIMEType
	default:
		return nil, fmt.Errorf("unknown media kind %d", chunk.Kind)
	}
	return json.Marshal(realtimeInputMessage{
		RealtimeInput: realtimeInput{MediaChunks: []mediaChunk{{
			MimeType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(chunk.Data),
		}}},
	})
}

// encodeToolResult builds the tool response message for one result.
func encodeToolResult(r types.ToolCallResult) ([]byte, error) {
	response := r.Result
	if response == nil {
		response = map[string]any{}
	}
	return json.Marshal(toolResponseMessage{
		ToolResponse: toolResponse{FunctionResponses: []functionResponse{{
			ID:       r.ID,
			Name:     r.Name,
			Response: response,
			Error:    r.IsError,
		}}},
	})
}

// truncateInlineData shortens base64 payloads before a message is logged.
func truncateInlineData(v any) {
	switch val := v.(type) {
	case map[string]any:
		if data, ok := val["data"].(string); ok && len(data) > 100 {
			val["data"] = fmt.Sprintf("[%d bytes base64]", len(data))
		}
		for _, child := range val {
			truncateInlineData(child)
		}
	case []any:
		for _, item := range val {
			truncateInlineData(item)
		}
	}
}

func logRawMessage(raw []byte) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	truncateInlineData(m)
	logBytes, _ := json.Marshal(m)
	logger.Debug("Gemini message", "keys", keys, "content", string(logBytes))
}
