// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWAV_RoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		pcm        []byte
		sampleRate int
		channels   int
	}{
		{"empty", []byte{}, 8000, 1},
		{"short", []byte{1, 0, 2, 0}, 8000, 1},
		{"tone", sinePCM(440, 9000, 80, 8000), 8000, 1},
		{"wideband", sinePCM(440, 9000, 80, 16000), 16000, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wav, err := PCMToWAV(tt.pcm, tt.sampleRate, tt.channels)
			require.NoError(t, err)
			assert.True(t, IsWAV(wav))

			pcm, sr, ch, err := ParseWAV(wav)
			require.NoError(t, err)
			assert.Equal(t, tt.pcm, pcm)
			assert.Equal(t, tt.sampleRate, sr)
			assert.Equal(t, tt.channels, ch)
		})
	}
}

func TestPCMToWAV_PadsOddLength(t *testing.T) {
	wav, err := PCMToWAV([]byte{1, 2, 3}, 8000, 1)
	require.NoError(t, err)
	pcm, err := PCMFromWAV(wav)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 0}, pcm, "tail should be zero padded to sample width")
}

func TestPCMToWAV_InvalidParams(t *testing.T) {
	_, err := PCMToWAV([]byte{1, 2}, 0, 1)
	assert.ErrorIs(t, err, ErrBadAudio)
	_, err = PCMToWAV([]byte{1, 2}, 8000, 0)
	assert.ErrorIs(t, err, ErrBadAudio)
}

func TestParseWAV_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not riff", []byte("definitely not a wav file")},
		{"too short", []byte("RIFF")},
		{"riff without chunks", append([]byte("RIFF\x00\x00\x00\x00WAVE"), 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := ParseWAV(tt.data)
			assert.ErrorIs(t, err, ErrBadAudio)
		})
	}
}

func TestParseWAV_RejectsNonPCMFormat(t *testing.T) {
	wav, err := PCMToWAV([]byte{1, 0, 2, 0}, 8000, 1)
	require.NoError(t, err)
	wav[20] = 7 // format code 7 = mu-law
	_, _, _, err = ParseWAV(wav)
	assert.ErrorIs(t, err, ErrBadAudio)
}
