// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_vad

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/streamer45/silero-vad-go/speech"

	internal_audio "github.com/rapidaai/voice-gateway/internal/audio"
)

// sileroClassifier runs the silero onnx model over the buffer and maps
// the detected speech segments back onto frame flags. The detector is
// stateful, so calls are serialized and the state reset per buffer.
type sileroClassifier struct {
	mu       sync.Mutex
	detector *speech.Detector
}

// NewSileroClassifier loads the silero model at modelPath for 8kHz or
// 16kHz input.
func NewSileroClassifier(modelPath string, sampleRate int) (Classifier, error) {
	detector, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:            modelPath,
		SampleRate:           sampleRate,
		Threshold:            0.5,
		MinSilenceDurationMs: 100,
		SpeechPadMs:          30,
	})
	if err != nil {
		return nil, fmt.Errorf("vad: loading silero model: %w", err)
	}
	return &sileroClassifier{detector: detector}, nil
}

func (s *sileroClassifier) Name() string {
	return "silero"
}

func (s *sileroClassifier) Classify(pcm []byte, sampleRate int, frameBytes int) ([]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	samples := make([]float32, len(pcm)/internal_audio.SampleWidth)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*internal_audio.SampleWidth:]))) / 32768.0
	}

	if err := s.detector.Reset(); err != nil {
		return nil, fmt.Errorf("vad: silero reset: %w", err)
	}
	segments, err := s.detector.Detect(samples)
	if err != nil {
		return nil, fmt.Errorf("vad: silero detect: %w", err)
	}

	frames := len(pcm) / frameBytes
	flags := make([]bool, frames)
	frameSec := float64(frameBytes) / float64(internal_audio.SampleWidth) / float64(sampleRate)
	totalSec := float64(len(samples)) / float64(sampleRate)
	for _, seg := range segments {
		end := seg.SpeechEndAt
		if end <= 0 {
			// open segment runs to the end of the buffer
			end = totalSec
		}
		for i := range frames {
			start := float64(i) * frameSec
			if start+frameSec > seg.SpeechStartAt && start < end {
				flags[i] = true
			}
		}
	}
	return flags, nil
}

func (s *sileroClassifier) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detector.Destroy()
}
