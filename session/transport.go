package session

import (
	"context"

	"github.com/JECH20102004/dayugame/providers/gemini"
	"github.com/JECH20102004/dayugame/tools"
	"github.com/JECH20102004/dayugame/types"
)

// Stream is an open live connection. *gemini.LiveStream satisfies it.
type Stream interface {
	Events() <-chan types.InboundEvent
	Send(chunk types.MediaChunk) error
	SendToolResult(result types.ToolCallResult) error
	Close() error
}

// Transport opens live streams. onDrop is called for every outbound media
// chunk the stream drops under backpressure.
type Transport interface {
	Open(ctx context.Context, cfg gemini.LiveConfig, onDrop func(types.MediaChunk)) Stream
}

// GeminiTransport adapts a gemini.LiveTransport.
func GeminiTransport(t *gemini.LiveTransport) Transport {
	return geminiTransport{t: t}
}

type geminiTransport struct {
	t *gemini.LiveTransport
}

func (g geminiTransport) Open(ctx context.Context, cfg gemini.LiveConfig, onDrop func(types.MediaChunk)) Stream {
	lt := *g.t
	lt.OnDrop = onDrop
	return lt.Open(ctx, cfg)
}

// functionDeclarations exports registry tools for the setup message.
func functionDeclarations(reg *tools.Registry) []gemini.FunctionDeclaration {
	descs := reg.Declarations()
	out := make([]gemini.FunctionDeclaration, 0, len(descs))
	for _, d := range descs {
		out = append(out, gemini.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.InputSchema,
		})
	}
	return out
}
