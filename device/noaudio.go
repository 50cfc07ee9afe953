//go:build !portaudio

package device

import (
	"context"

	pkgerrors "github.com/JECH20102004/dayugame/pkg/errors"
)

func openMicrophone(context.Context, int) (Microphone, error) {
	return nil, pkgerrors.Device("OpenMicrophone", ErrNoAudioBackend)
}

func openSpeaker(context.Context, Renderer) (Speaker, error) {
	return nil, pkgerrors.Device("OpenSpeaker", ErrNoAudioBackend)
}
