package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSameAgent(t *testing.T) {
	a := &AgentProfile{ID: "default", Voice: VoiceKore}
	renamed := &AgentProfile{ID: "default", DisplayName: "Renamed", Voice: VoicePuck}
	other := &AgentProfile{ID: "researcher"}

	assert.True(t, SameAgent(a, renamed), "identity is the id, not the contents")
	assert.False(t, SameAgent(a, other))
	assert.False(t, SameAgent(a, nil))
	assert.True(t, SameAgent(nil, nil))
}

func TestVoiceName(t *testing.T) {
	assert.Equal(t, VoiceFenrir, (&AgentProfile{Voice: "fenrir"}).VoiceName())
	assert.Equal(t, DefaultVoice, (&AgentProfile{Voice: "Alloy"}).VoiceName())
	assert.Equal(t, DefaultVoice, (*AgentProfile)(nil).VoiceName())
}

func TestInstruction(t *testing.T) {
	withInstruction := &AgentProfile{SystemInstruction: "You are a pirate."}
	got := withInstruction.Instruction()
	assert.True(t, strings.HasPrefix(got, "You are a pirate.\n"))
	assert.Contains(t, got, "You can control the UI via tools.")

	assert.Equal(t, FallbackInstruction, (&AgentProfile{SystemInstruction: "  "}).Instruction())
	assert.Equal(t, FallbackInstruction, (*AgentProfile)(nil).Instruction())
}

func TestDefaultAgent(t *testing.T) {
	assert.Equal(t, "default", DefaultAgent.ID)
	assert.Equal(t, VoiceKore, DefaultAgent.VoiceName())
	assert.Equal(t, "fa-bolt", DefaultAgent.Icon())
	assert.Equal(t, "fa-microphone", (&AgentProfile{}).Icon())
}

func TestToolCallRequestArgsJSON(t *testing.T) {
	req := ToolCallRequest{ID: "1", Name: "change_view", Args: map[string]any{"view": "chat"}}
	assert.JSONEq(t, `{"view":"chat"}`, string(req.ArgsJSON()))

	empty := ToolCallRequest{ID: "2", Name: "system_action"}
	assert.JSONEq(t, `{}`, string(empty.ArgsJSON()))
}

func TestMediaChunkConstructors(t *testing.T) {
	audio := NewAudioChunk([]byte{1, 2}, 16000)
	assert.Equal(t, MediaAudio, audio.Kind)
	assert.Equal(t, 16000, audio.SampleRate)
	assert.Equal(t, "audio", audio.Kind.String())

	frame := NewFrameChunk([]byte{0xff, 0xd8}, "image/jpeg")
	assert.Equal(t, MediaFrame, frame.Kind)
	assert.Equal(t, "image/jpeg", frame.MIMEType)
	assert.Equal(t, "frame", frame.Kind.String())
	assert.False(t, frame.Timestamp.IsZero())
}
