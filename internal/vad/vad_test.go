// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_vad

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_audio "github.com/rapidaai/voice-gateway/internal/audio"
	"github.com/rapidaai/voice-gateway/pkg/commons"
)

// ============================================================================
// Test helpers
// ============================================================================

func newTestDetector(t *testing.T, opts ...Option) *Detector {
	t.Helper()
	logger, err := commons.NewApplicationLogger()
	require.NoError(t, err)
	return NewDetector(logger, opts...)
}

func sine(freq float64, amplitude int, ms, sampleRate int) []byte {
	samples := sampleRate * ms / 1000
	out := make([]byte, samples*internal_audio.SampleWidth)
	for i := 0; i < samples; i++ {
		v := int16(float64(amplitude) * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

func silence(ms, sampleRate int) []byte {
	return make([]byte, sampleRate*ms/1000*internal_audio.SampleWidth)
}

// ============================================================================
// HasSpeech
// ============================================================================

func TestHasSpeech_SilenceIsFalse(t *testing.T) {
	d := newTestDetector(t)
	assert.False(t, d.HasSpeech(silence(3000, 8000), 8000))
}

func TestHasSpeech_LoudToneIsTrue(t *testing.T) {
	d := newTestDetector(t)
	// 1 kHz sine well above the energy threshold for 200 ms
	assert.True(t, d.HasSpeech(sine(1000, 10000, 200, 8000), 8000))
}

func TestHasSpeech_ShortBurstFailsDuration(t *testing.T) {
	d := newTestDetector(t)
	// 100 ms of tone inside 3 s of silence: ratio and duration both fail
	pcm := append(sine(1000, 10000, 100, 8000), silence(2900, 8000)...)
	assert.False(t, d.HasSpeech(pcm, 8000))
}

func TestHasSpeech_SubFrameBufferIsFalse(t *testing.T) {
	d := newTestDetector(t)
	tiny := sine(1000, 10000, 5, 8000) // shorter than one 20ms frame
	assert.False(t, d.HasSpeech(tiny, 8000))
	assert.Equal(t, SpeechStats{}, d.Stats(tiny, 8000))
	assert.Empty(t, d.FilterSpeech(tiny, 8000))
}

// ============================================================================
// Stats
// ============================================================================

func TestStats_CountsFrames(t *testing.T) {
	d := newTestDetector(t)
	// 200 ms tone then 200 ms silence = 20 frames of 20 ms
	pcm := append(sine(1000, 10000, 200, 8000), silence(200, 8000)...)
	st := d.Stats(pcm, 8000)

	assert.Equal(t, 20, st.TotalFrames)
	assert.InDelta(t, 10, st.SpeechFrames, 1, "about half the frames are tone")
	assert.InDelta(t, 0.5, st.SpeechRatio, 0.06)
	assert.InDelta(t, 200.0, st.SpeechDurationMs, 20.0)
}

// ============================================================================
// FilterSpeech
// ============================================================================

func TestFilterSpeech_KeepsOnlySpeechInOrder(t *testing.T) {
	d := newTestDetector(t)
	tone := sine(1000, 10000, 200, 8000)
	pcm := append(append([]byte{}, tone...), silence(200, 8000)...)

	filtered := d.FilterSpeech(pcm, 8000)
	assert.NotEmpty(t, filtered)
	assert.Less(t, len(filtered), len(pcm), "silent frames must be removed")
	assert.Equal(t, tone[:len(filtered)], filtered, "speech frames keep arrival order")
}

// ============================================================================
// Energy classifier
// ============================================================================

func TestEnergyClassifier_Threshold(t *testing.T) {
	c := NewEnergyClassifier(300)
	defer c.Close()

	frameBytes := 8000 * 2 * 20 / 1000
	loud := sine(1000, 10000, 20, 8000)
	quiet := sine(1000, 50, 20, 8000)

	flags, err := c.Classify(append(loud, quiet...), 8000, frameBytes)
	require.NoError(t, err)
	require.Len(t, flags, 2)
	assert.True(t, flags[0], "loud frame is speech")
	assert.False(t, flags[1], "quiet frame is not")
}

func TestDetector_FrameMsOption(t *testing.T) {
	d := newTestDetector(t, WithFrameMs(10))
	st := d.Stats(sine(1000, 10000, 100, 8000), 8000)
	assert.Equal(t, 10, st.TotalFrames, "100 ms at 10 ms frames")

	// invalid frame sizes keep the default
	d = newTestDetector(t, WithFrameMs(25))
	st = d.Stats(sine(1000, 10000, 100, 8000), 8000)
	assert.Equal(t, 5, st.TotalFrames, "100 ms at default 20 ms frames")
}
