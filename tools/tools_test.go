package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JECH20102004/dayugame/types"
)

type recordedCommand struct {
	name string
	args map[string]any
}

type commandRecorder struct {
	ch chan recordedCommand
}

func newCommandRecorder() *commandRecorder {
	return &commandRecorder{ch: make(chan recordedCommand, 8)}
}

func (r *commandRecorder) HandleCommand(name string, args map[string]any) {
	r.ch <- recordedCommand{name: name, args: args}
}

func (r *commandRecorder) next(t *testing.T) recordedCommand {
	t.Helper()
	select {
	case c := <-r.ch:
		return c
	case <-time.After(time.Second):
		t.Fatal("command not forwarded")
		return recordedCommand{}
	}
}

func newUIBridge(t *testing.T, h CommandHandler) *Bridge {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, RegisterUITools(reg, func() CommandHandler { return h }))
	return NewBridge(reg)
}

func TestDispatch_ChangeView(t *testing.T) {
	rec := newCommandRecorder()
	b := newUIBridge(t, rec)

	res := b.Dispatch(context.Background(), types.ToolCallRequest{
		ID: "c1", Name: ToolChangeView, Args: map[string]any{"view": "Vision Studio"},
	})
	assert.Equal(t, "c1", res.ID)
	assert.Equal(t, ToolChangeView, res.Name)
	assert.False(t, res.IsError)
	assert.Equal(t, map[string]any{"result": ResultExecuted}, res.Result)

	cmd := rec.next(t)
	assert.Equal(t, ToolChangeView, cmd.name)
	assert.Equal(t, "Vision Studio", cmd.args["view"])
}

func TestDispatch_UnmatchedArgumentStillSucceeds(t *testing.T) {
	rec := newCommandRecorder()
	b := newUIBridge(t, rec)

	res := b.Dispatch(context.Background(), types.ToolCallRequest{
		ID: "c2", Name: ToolSystemAction, Args: map[string]any{"action": "reboot"},
	})
	assert.False(t, res.IsError)
	assert.Contains(t, res.Result["result"], "no action matched")
	assert.Equal(t, "reboot", rec.next(t).args["action"])
}

func TestDispatch_UnknownTool(t *testing.T) {
	b := newUIBridge(t, nil)
	res := b.Dispatch(context.Background(), types.ToolCallRequest{ID: "c3", Name: "launch_missiles"})

	assert.Equal(t, "c3", res.ID)
	assert.True(t, res.IsError)
	assert.Equal(t, "unknown tool: launch_missiles", res.Result["error"])
}

func TestDispatch_InvalidArgs(t *testing.T) {
	b := newUIBridge(t, nil)
	res := b.Dispatch(context.Background(), types.ToolCallRequest{ID: "c4", Name: ToolChangeView, Args: map[string]any{}})

	assert.True(t, res.IsError)
	assert.Contains(t, res.Result["error"], "args_invalid")
}

func TestDispatch_HandlerErrorAndPanic(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&ToolDescriptor{Name: "fails", Description: "always fails"},
		HandlerFunc(func(context.Context, map[string]any) (map[string]any, error) {
			return nil, errors.New("disk on fire")
		})))
	require.NoError(t, reg.Register(&ToolDescriptor{Name: "panics", Description: "always panics"},
		HandlerFunc(func(context.Context, map[string]any) (map[string]any, error) {
			panic("boom")
		})))
	require.NoError(t, reg.Register(&ToolDescriptor{Name: "quiet", Description: "returns nothing"},
		HandlerFunc(func(context.Context, map[string]any) (map[string]any, error) {
			return nil, nil
		})))
	b := NewBridge(reg)

	res := b.Dispatch(context.Background(), types.ToolCallRequest{ID: "1", Name: "fails"})
	assert.True(t, res.IsError)
	assert.Equal(t, "disk on fire", res.Result["error"])

	res = b.Dispatch(context.Background(), types.ToolCallRequest{ID: "2", Name: "panics"})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Result["error"], "boom")

	res = b.Dispatch(context.Background(), types.ToolCallRequest{ID: "3", Name: "quiet"})
	assert.False(t, res.IsError)
	assert.NotNil(t, res.Result)
}

func TestDispatch_EveryCallAnsweredOnce(t *testing.T) {
	b := newUIBridge(t, CommandHandlerFunc(func(string, map[string]any) {}))
	reqs := []types.ToolCallRequest{
		{ID: "a", Name: ToolChangeView, Args: map[string]any{"view": "chat"}},
		{ID: "b", Name: "nope"},
		{ID: "c", Name: ToolSystemAction, Args: map[string]any{"action": 7}},
		{ID: "d", Name: ToolSystemAction, Args: map[string]any{"action": "new_chat"}},
	}
	seen := map[string]int{}
	for _, r := range reqs {
		seen[b.Dispatch(context.Background(), r).ID]++
	}
	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1, "d": 1}, seen)
}

func TestDispatch_ReadsLatestCommandHandler(t *testing.T) {
	var mu sync.Mutex
	var current CommandHandler
	reg := NewRegistry()
	require.NoError(t, RegisterUITools(reg, func() CommandHandler {
		mu.Lock()
		defer mu.Unlock()
		return current
	}))
	b := NewBridge(reg)

	first, second := newCommandRecorder(), newCommandRecorder()
	mu.Lock()
	current = first
	mu.Unlock()
	b.Dispatch(context.Background(), types.ToolCallRequest{ID: "1", Name: ToolChangeView, Args: map[string]any{"view": "veo"}})
	first.next(t)

	mu.Lock()
	current = second
	mu.Unlock()
	b.Dispatch(context.Background(), types.ToolCallRequest{ID: "2", Name: ToolChangeView, Args: map[string]any{"view": "veo"}})
	second.next(t)
	assert.Empty(t, first.ch)
}

func TestMatchView(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Chat", ViewChat, true},
		{"open the vision studio", ViewVision, true},
		{"Veo Director", ViewVeo, true},
		{"video", ViewVeo, true},
		{"System Bridge", ViewSystem, true},
		{"bridge", ViewSystem, true},
		{"chat about video", ViewChat, true},
		{"settings", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := MatchView(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchAction(t *testing.T) {
	got, ok := MatchAction("NEW_CHAT")
	assert.True(t, ok)
	assert.Equal(t, ActionNewChat, got)

	_, ok = MatchAction("new chat")
	assert.False(t, ok)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	h := HandlerFunc(func(context.Context, map[string]any) (map[string]any, error) { return nil, nil })

	assert.ErrorIs(t, reg.Register(&ToolDescriptor{}, h), ErrToolNameRequired)
	assert.ErrorIs(t, reg.Register(&ToolDescriptor{Name: "x"}, h), ErrToolDescriptionRequired)
	assert.ErrorIs(t, reg.Register(&ToolDescriptor{Name: "x", Description: "d"}, nil), ErrHandlerRequired)

	err := reg.Register(&ToolDescriptor{Name: "x", Description: "d", InputSchema: json.RawMessage(`{bad`)}, h)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "schema_invalid", verr.Type)

	_, err = reg.Get("x")
	assert.ErrorIs(t, err, ErrToolNotFound)

	require.NoError(t, RegisterUITools(reg, nil))
	assert.Equal(t, []string{ToolChangeView, ToolSystemAction}, reg.List())

	decls := reg.Declarations()
	require.Len(t, decls, 2)
	assert.Equal(t, "Navigate to a different application view or studio.", decls[0].Description)
	assert.True(t, json.Valid(decls[1].InputSchema))
}

func TestSchemaValidator_ValidateArgs(t *testing.T) {
	validator := NewSchemaValidator()
	descriptor := &ToolDescriptor{
		Name: "test-tool",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {"name": {"type": "string"}, "age": {"type": "number"}},
			"required": ["name"]
		}`),
	}

	assert.NoError(t, validator.ValidateArgs(descriptor, json.RawMessage(`{"name": "Alice", "age": 30}`)))

	err := validator.ValidateArgs(descriptor, json.RawMessage(`{"age": "thirty"}`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "args_invalid", verr.Type)
	assert.Equal(t, "test-tool", verr.Tool)

	assert.NoError(t, validator.ValidateArgs(&ToolDescriptor{Name: "free"}, json.RawMessage(`{"anything": 1}`)))
}

type orderedRecorder struct {
	mu    sync.Mutex
	names []string
}

func (r *orderedRecorder) HandleCommand(name string, args map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := args["view"].(string); ok {
		name += ":" + v
	}
	if a, ok := args["action"].(string); ok {
		name += ":" + a
	}
	r.names = append(r.names, name)
}

func (r *orderedRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func TestDispatch_CommandsDeliveredInArrivalOrder(t *testing.T) {
	rec := &orderedRecorder{}
	b := newUIBridge(t, rec)

	var want []string
	for i := 0; i < 500; i++ {
		view := fmt.Sprintf("chat-%d", i)
		b.Dispatch(context.Background(), types.ToolCallRequest{
			ID: fmt.Sprintf("v%d", i), Name: ToolChangeView, Args: map[string]any{"view": view},
		})
		b.Dispatch(context.Background(), types.ToolCallRequest{
			ID: fmt.Sprintf("a%d", i), Name: ToolSystemAction, Args: map[string]any{"action": ActionNewChat},
		})
		want = append(want, ToolChangeView+":"+view, ToolSystemAction+":"+ActionNewChat)
	}

	require.Eventually(t, func() bool { return len(rec.snapshot()) == len(want) }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, want, rec.snapshot())
}

func TestDispatch_SlowHandlerDoesNotBlockDispatch(t *testing.T) {
	release := make(chan struct{})
	delivered := make(chan string, 4)
	b := newUIBridge(t, CommandHandlerFunc(func(name string, _ map[string]any) {
		<-release
		delivered <- name
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Dispatch(context.Background(), types.ToolCallRequest{ID: "1", Name: ToolChangeView, Args: map[string]any{"view": "chat"}})
		b.Dispatch(context.Background(), types.ToolCallRequest{ID: "2", Name: ToolSystemAction, Args: map[string]any{"action": "new_chat"}})
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch blocked on the command handler")
	}

	close(release)
	assert.Equal(t, ToolChangeView, <-delivered)
	assert.Equal(t, ToolSystemAction, <-delivered)
}

func TestDispatch_HandlerPanicKeepsQueueRunning(t *testing.T) {
	delivered := make(chan string, 2)
	b := newUIBridge(t, CommandHandlerFunc(func(name string, args map[string]any) {
		if args["view"] == "chat" {
			panic("ui crashed")
		}
		delivered <- name
	}))

	b.Dispatch(context.Background(), types.ToolCallRequest{ID: "1", Name: ToolChangeView, Args: map[string]any{"view": "chat"}})
	b.Dispatch(context.Background(), types.ToolCallRequest{ID: "2", Name: ToolSystemAction, Args: map[string]any{"action": "new_chat"}})

	select {
	case name := <-delivered:
		assert.Equal(t, ToolSystemAction, name)
	case <-time.After(time.Second):
		t.Fatal("command after a panicking one was not delivered")
	}
}
