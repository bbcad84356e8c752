// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_vad

import (
	internal_audio "github.com/rapidaai/voice-gateway/internal/audio"
)

// energyClassifier marks a frame as speech when its RMS clears the
// threshold. It is the zero-dependency fallback when no silero model
// is configured.
type energyClassifier struct {
	threshold float64
}

// NewEnergyClassifier builds the RMS oracle. A non-positive threshold
// falls back to the default.
func NewEnergyClassifier(threshold float64) Classifier {
	if threshold <= 0 {
		threshold = DefaultEnergyThreshold
	}
	return &energyClassifier{threshold: threshold}
}

func (e *energyClassifier) Name() string {
	return "energy"
}

func (e *energyClassifier) Classify(pcm []byte, sampleRate int, frameBytes int) ([]bool, error) {
	frames := len(pcm) / frameBytes
	flags := make([]bool, frames)
	for i := range frames {
		frame := pcm[i*frameBytes : (i+1)*frameBytes]
		flags[i] = internal_audio.Stats(frame, sampleRate).RMS >= e.threshold
	}
	return flags, nil
}

func (e *energyClassifier) Close() error {
	return nil
}
