// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const wavHeaderSize = 44

// PCMToWAV wraps 16-bit LE PCM in a minimal RIFF/WAVE container with one
// PCM fmt chunk and one data chunk, the shape STT uploads expect.
func PCMToWAV(pcm []byte, sampleRate, channels int) ([]byte, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: invalid wav parameters rate=%d channels=%d", ErrBadAudio, sampleRate, channels)
	}
	pcm = Align(pcm, SampleWidth*channels)

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))
	byteRate := sampleRate * channels * SampleWidth
	blockAlign := channels * SampleWidth

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(16)) // bits per sample
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes(), nil
}

// ParseWAV extracts raw PCM plus format from a RIFF/WAVE buffer. Only
// uncompressed 16-bit PCM (format code 1) is accepted.
func ParseWAV(wav []byte) (pcm []byte, sampleRate, channels int, err error) {
	if !IsWAV(wav) {
		return nil, 0, 0, fmt.Errorf("%w: not a RIFF/WAVE buffer", ErrBadAudio)
	}

	pos := 12
	var haveFmt bool
	for pos+8 <= len(wav) {
		id := string(wav[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(wav) {
			size = len(wav) - body
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, 0, fmt.Errorf("%w: short fmt chunk", ErrBadAudio)
			}
			format := binary.LittleEndian.Uint16(wav[body:])
			bits := binary.LittleEndian.Uint16(wav[body+14:])
			if format != 1 || bits != 16 {
				return nil, 0, 0, fmt.Errorf("%w: unsupported wav format=%d bits=%d", ErrBadAudio, format, bits)
			}
			channels = int(binary.LittleEndian.Uint16(wav[body+2:]))
			sampleRate = int(binary.LittleEndian.Uint32(wav[body+4:]))
			haveFmt = true
		case "data":
			pcm = wav[body : body+size]
		}
		// chunks are word aligned
		pos = body + size
		if size%2 == 1 {
			pos++
		}
	}

	if !haveFmt || pcm == nil {
		return nil, 0, 0, fmt.Errorf("%w: missing fmt or data chunk", ErrBadAudio)
	}
	return pcm, sampleRate, channels, nil
}

// PCMFromWAV returns just the data chunk of a WAV buffer.
func PCMFromWAV(wav []byte) ([]byte, error) {
	pcm, _, _, err := ParseWAV(wav)
	return pcm, err
}
