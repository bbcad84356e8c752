// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_audio

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/zaf/g711"
)

// Telephony wire encodings carried in the stream "start" frame.
const (
	EncodingL16   = "audio/l16"
	EncodingMuLaw = "audio/mulaw"
)

const (
	// DefaultSampleRate is the telephony wire rate.
	DefaultSampleRate = 8000
	// DefaultChannels is mono.
	DefaultChannels = 1
	// SampleWidth is bytes per 16-bit linear PCM sample.
	SampleWidth = 2
)

// ErrBadAudio marks undecodable or misaligned audio payloads. Callers drop
// the offending chunk and continue.
var ErrBadAudio = errors.New("audio: bad audio payload")

// AudioConfig describes one direction of a media stream.
type AudioConfig struct {
	Encoding   string
	SampleRate int
	Channels   int
}

// DefaultTelephonyConfig is linear16 8kHz mono, the teler wire format.
func DefaultTelephonyConfig() AudioConfig {
	return AudioConfig{Encoding: EncodingL16, SampleRate: DefaultSampleRate, Channels: DefaultChannels}
}

// sampleWidth returns bytes per sample for the encoding.
func (c AudioConfig) sampleWidth() int {
	if c.Encoding == EncodingMuLaw {
		return 1
	}
	return SampleWidth
}

// BytesPerMs returns the wire byte rate per millisecond.
func (c AudioConfig) BytesPerMs() int {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	return c.SampleRate * c.sampleWidth() * c.Channels / 1000
}

// DurationMs returns the play duration of n bytes in this config.
func (c AudioConfig) DurationMs(n int) float64 {
	bpm := c.BytesPerMs()
	if bpm == 0 {
		return 0
	}
	return float64(n) / float64(bpm)
}

// DecodeBase64 decodes a base64 audio payload.
func DecodeBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadAudio, err)
	}
	return b, nil
}

// EncodeBase64 encodes raw audio bytes for a wire frame.
func EncodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Concat joins chunks in order into one buffer.
func Concat(chunks [][]byte) []byte {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	out := make([]byte, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// Align zero-pads the tail of pcm so its length is a multiple of n.
// One round of padding at most; n <= 0 returns pcm unchanged.
func Align(pcm []byte, n int) []byte {
	if n <= 0 {
		return pcm
	}
	rem := len(pcm) % n
	if rem == 0 {
		return pcm
	}
	return append(pcm, make([]byte, n-rem)...)
}

// PCMStats summarizes a linear16 buffer.
type PCMStats struct {
	RMS        float64
	Peak       int
	DurationMs float64
}

// Stats computes RMS, absolute peak and duration over 16-bit LE samples.
func Stats(pcm []byte, sampleRate int) PCMStats {
	samples := len(pcm) / SampleWidth
	if samples == 0 || sampleRate <= 0 {
		return PCMStats{}
	}
	var sum float64
	peak := 0
	for i := 0; i+1 < len(pcm); i += SampleWidth {
		s := int(int16(binary.LittleEndian.Uint16(pcm[i:])))
		sum += float64(s) * float64(s)
		if a := abs(s); a > peak {
			peak = a
		}
	}
	return PCMStats{
		RMS:        math.Sqrt(sum / float64(samples)),
		Peak:       peak,
		DurationMs: float64(samples) / float64(sampleRate) * 1000,
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// MuLawToL16 expands 8-bit mu-law to 16-bit linear PCM.
func MuLawToL16(in []byte) []byte {
	return g711.DecodeUlaw(in)
}

// L16ToMuLaw compresses 16-bit linear PCM to 8-bit mu-law.
func L16ToMuLaw(in []byte) []byte {
	return g711.EncodeUlaw(in)
}

// Resample converts 16-bit mono PCM between rates with linear
// interpolation. Identity when the rates already match.
func Resample(pcm []byte, fromRate, toRate int) []byte {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 || len(pcm) < SampleWidth {
		return pcm
	}
	in := bytesToSamples(Align(pcm, SampleWidth))
	outLen := int(float64(len(in)) * float64(toRate) / float64(fromRate))
	if outLen == 0 {
		return nil
	}
	out := make([]int16, outLen)
	ratio := float64(len(in)-1) / float64(max(outLen-1, 1))
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = int16(float64(in[idx])*(1-frac) + float64(in[idx+1])*frac)
	}
	return samplesToBytes(out)
}

func bytesToSamples(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/SampleWidth)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*SampleWidth:]))
	}
	return out
}

func samplesToBytes(in []int16) []byte {
	out := make([]byte, len(in)*SampleWidth)
	for i, s := range in {
		binary.LittleEndian.PutUint16(out[i*SampleWidth:], uint16(s))
	}
	return out
}

// IsWAV reports whether the buffer carries a RIFF/WAVE header.
func IsWAV(b []byte) bool {
	return len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WAVE"))
}
