package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/JECH20102004/dayugame/logger"
)

// Built-in UI tool names.
const (
	ToolChangeView   = "change_view"
	ToolSystemAction = "system_action"
)

// Views the shell can switch to.
const (
	ViewChat   = "chat"
	ViewVision = "vision"
	ViewVeo    = "veo"
	ViewSystem = "system"
)

// Actions the shell can perform.
const (
	ActionNewChat       = "new_chat"
	ActionToggleSidebar = "toggle_sidebar"
)

// ResultExecuted is the reply for every forwarded UI command.
const ResultExecuted = "Command executed successfully."

// viewAliases maps substrings to views, checked in order.
var viewAliases = []struct {
	substr string
	view   string
}{
	{"chat", ViewChat},
	{"vision", ViewVision},
	{"veo", ViewVeo},
	{"video", ViewVeo},
	{"system", ViewSystem},
	{"bridge", ViewSystem},
}

var knownActions = []string{ActionNewChat, ActionToggleSidebar}

var changeViewDescriptor = &ToolDescriptor{
	Name:        ToolChangeView,
	Description: "Navigate to a different application view or studio.",
	InputSchema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"view": {
				"type": "string",
				"description": "The target view name. Options: 'chat', 'vision', 'veo', 'system'."
			}
		},
		"required": ["view"]
	}`),
}

var systemActionDescriptor = &ToolDescriptor{
	Name:        ToolSystemAction,
	Description: "Perform a general system action.",
	InputSchema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {
				"type": "string",
				"description": "The action to perform. Options: 'new_chat', 'toggle_sidebar'."
			}
		},
		"required": ["action"]
	}`),
}

// MatchView resolves a spoken view name by case-insensitive substring.
func MatchView(raw string) (string, bool) {
	v := strings.ToLower(raw)
	for _, a := range viewAliases {
		if strings.Contains(v, a.substr) {
			return a.view, true
		}
	}
	return "", false
}

// MatchAction resolves an action name by case-insensitive exact match.
func MatchAction(raw string) (string, bool) {
	a := strings.ToLower(strings.TrimSpace(raw))
	for _, known := range knownActions {
		if a == known {
			return known, true
		}
	}
	return "", false
}

// RegisterUITools registers change_view and system_action. Each call
// hands (name, args) to the handler current returns at that moment.
// Delivery happens off the caller's goroutine, in dispatch order. A nil
// handler drops the command.
func RegisterUITools(registry *Registry, current func() CommandHandler) error {
	q := &commandQueue{}
	if err := registry.Register(changeViewDescriptor, uiHandler(ToolChangeView, "view", MatchView, current, q)); err != nil {
		return err
	}
	return registry.Register(systemActionDescriptor, uiHandler(ToolSystemAction, "action", MatchAction, current, q))
}

func uiHandler(
	name, argKey string,
	match func(string) (string, bool),
	current func() CommandHandler,
	q *commandQueue,
) Handler {
	return HandlerFunc(func(ctx context.Context, args map[string]any) (map[string]any, error) {
		raw, _ := args[argKey].(string)
		forward(ctx, q, current, name, args)

		if _, ok := match(raw); !ok {
			return map[string]any{
				"result": fmt.Sprintf("%s Unrecognised %s %q; no %s matched.", ResultExecuted, argKey, raw, argKey),
			}, nil
		}
		return map[string]any{"result": ResultExecuted}, nil
	})
}

func forward(ctx context.Context, q *commandQueue, current func() CommandHandler, name string, args map[string]any) {
	var h CommandHandler
	if current != nil {
		h = current()
	}
	if h == nil {
		logger.DebugContext(ctx, "No command handler; dropping UI command", "command", name)
		return
	}
	q.push(command{handler: h, name: name, args: args})
}

type command struct {
	handler CommandHandler
	name    string
	args    map[string]any
}

// commandQueue delivers commands FIFO on a single goroutine. The goroutine
// runs while commands are pending and exits once the queue drains, so push
// never blocks on a slow handler.
type commandQueue struct {
	mu      sync.Mutex
	pending []command
	running bool
}

func (q *commandQueue) push(c command) {
	q.mu.Lock()
	q.pending = append(q.pending, c)
	start := !q.running
	q.running = true
	q.mu.Unlock()

	if start {
		go q.drain()
	}
}

func (q *commandQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		c := q.pending[0]
		q.pending[0] = command{}
		q.pending = q.pending[1:]
		q.mu.Unlock()

		deliver(c)
	}
}

func deliver(c command) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("UI command handler panicked", "command", c.name, "panic", r)
		}
	}()
	c.handler.HandleCommand(c.name, c.args)
}
