package types

import "strings"

// Prebuilt voices offered by the Live API.
const (
	VoicePuck   = "Puck"
	VoiceCharon = "Charon"
	VoiceKore   = "Kore"
	VoiceFenrir = "Fenrir"
	VoiceZephyr = "Zephyr"
)

// Voices lists the selectable voices in display order.
var Voices = []string{VoicePuck, VoiceCharon, VoiceKore, VoiceFenrir, VoiceZephyr}

// DefaultVoice is used when a profile names no voice or an unknown one.
const DefaultVoice = VoiceKore

// desktopSuffix is appended to every agent-specific instruction.
const desktopSuffix = "\nYou are part of the Dayugame Desktop environment. You can control the UI via tools."

// FallbackInstruction is sent when the profile carries no instruction.
const FallbackInstruction = "You are Dayugame, a desktop assistant. You can control this app. " +
	"Use the `change_view` tool when the user wants to switch to Chat, Vision Studio, or Veo Director. " +
	"Use `system_action` for new chats or UI toggles. Be concise."

// AgentProfile is an immutable snapshot of the configured agent. Two
// snapshots are the same agent iff their IDs match.
type AgentProfile struct {
	ID                string
	DisplayName       string
	Description       string
	IconID            string
	Voice             string
	SystemInstruction string
}

// DefaultAgent is the built-in assistant profile.
var DefaultAgent = AgentProfile{
	ID:          "default",
	DisplayName: "Dayugame",
	Description: "Your helpful desktop assistant.",
	IconID:      "fa-bolt",
	Voice:       VoiceKore,
	SystemInstruction: "You are Dayugame, a helpful, clever, and efficient desktop assistant. " +
		"You help the user with tasks, analysis, and creativity.",
}

// SameAgent reports whether a and b share an identity key. A nil profile
// only matches another nil profile.
func SameAgent(a, b *AgentProfile) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}

// VoiceName returns the profile's voice, falling back to DefaultVoice.
func (p *AgentProfile) VoiceName() string {
	if p == nil {
		return DefaultVoice
	}
	for _, v := range Voices {
		if strings.EqualFold(v, p.Voice) {
			return v
		}
	}
	return DefaultVoice
}

// Instruction builds the system instruction sent at session setup.
func (p *AgentProfile) Instruction() string {
	if p == nil || strings.TrimSpace(p.SystemInstruction) == "" {
		return FallbackInstruction
	}
	return p.SystemInstruction + desktopSuffix
}

// Icon returns the profile icon, or the microphone icon when unset.
func (p *AgentProfile) Icon() string {
	if p == nil || p.IconID == "" {
		return "fa-microphone"
	}
	return p.IconID
}
