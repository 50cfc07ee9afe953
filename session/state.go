package session

import (
	"github.com/JECH20102004/dayugame/audio"
)

// State is the controller's connection state.
type State string

// Connection states. CLOSED may be re-activated.
const (
	StateIdle       State = "IDLE"
	StateConnecting State = "CONNECTING"
	StateOpen       State = "OPEN"
	StateClosing    State = "CLOSING"
	StateClosed     State = "CLOSED"
)

func (s State) String() string { return string(s) }

// DeviceState is the capture configuration read on every capture tick.
// Values are immutable snapshots; change them with Controller.SetDeviceState.
type DeviceState struct {
	MicMuted      bool
	CameraMuted   bool
	ScreenSharing bool
	// InputGain is the microphone gain in [audio.MinGain, audio.MaxGain].
	InputGain float64
}

// DefaultDeviceState has every device live at unity gain.
func DefaultDeviceState() DeviceState {
	return DeviceState{InputGain: 1}
}

// DeviceStatePatch changes the fields it sets and leaves nil fields alone.
type DeviceStatePatch struct {
	MicMuted      *bool
	CameraMuted   *bool
	ScreenSharing *bool
	InputGain     *float64
}

// Apply returns s with p's fields applied. The gain is clamped.
func (s DeviceState) Apply(p DeviceStatePatch) DeviceState {
	if p.MicMuted != nil {
		s.MicMuted = *p.MicMuted
	}
	if p.CameraMuted != nil {
		s.CameraMuted = *p.CameraMuted
	}
	if p.ScreenSharing != nil {
		s.ScreenSharing = *p.ScreenSharing
	}
	if p.InputGain != nil {
		s.InputGain = *p.InputGain
	}
	s.InputGain = audio.ClampGain(s.InputGain)
	return s
}

// SendsFrames reports whether the video loop produces frames.
func (s DeviceState) SendsFrames() bool {
	return !s.CameraMuted || s.ScreenSharing
}

// Capabilities summarises what the remote model can currently perceive.
type Capabilities struct {
	Audio  bool
	Vision bool
	Screen bool
}

// Capabilities derives the capability snapshot from s.
func (s DeviceState) Capabilities() Capabilities {
	return Capabilities{
		Audio:  !s.MicMuted,
		Vision: !s.CameraMuted,
		Screen: s.ScreenSharing,
	}
}

// Bool returns a pointer to v, for building patches.
func Bool(v bool) *bool { return &v }

// Gain returns a pointer to v, for building patches.
func Gain(v float64) *float64 { return &v }
