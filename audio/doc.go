// Package audio provides the sample-level building blocks of the live
// session: PCM16 codec helpers, sample-rate conversion, a click-free gain
// ramp for microphone input, and an RMS level meter for rendered output.
//
// # Capture path
//
// Microphone samples arrive as float32 in [-1, 1]. The capture loop runs
// them through a GainRamp, resamples them to the session input rate when
// the device runs at a different rate, and quantizes them to PCM16:
//
//	ramp := audio.NewGainRamp(100*time.Millisecond, 1.0)
//	ramp.SetTarget(0) // mute, ramped
//	ramp.Process(samples, 48000)
//	pcm := audio.Float32ToPCM16(samples)
//	pcm, _ = audio.ResamplePCM16(pcm, 48000, audio.SampleRate16kHz)
//
// # Playback path
//
// Response audio is decoded with PCM16ToFloat32 and measured with a
// LevelMeter that drives the speaking indicator.
package audio
