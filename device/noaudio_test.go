//go:build !portaudio

package device

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	pkgerrors "github.com/JECH20102004/dayugame/pkg/errors"
)

func TestLocal_NoAudioBackend(t *testing.T) {
	l := NewLocal()

	_, err := l.OpenMicrophone(context.Background(), 16000)
	assert.ErrorIs(t, err, ErrNoAudioBackend)
	assert.ErrorIs(t, err, pkgerrors.ErrDeviceAcquisition)

	_, err = l.OpenSpeaker(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoAudioBackend)
}
