// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_vad

import (
	"github.com/rapidaai/voice-gateway/pkg/commons"

	internal_audio "github.com/rapidaai/voice-gateway/internal/audio"
)

// Decision thresholds: a buffer counts as speech only when at least one
// frame is speech, the speech ratio clears MinSpeechRatio and the speech
// span clears MinSpeechDurationMs. Borderline ratios resolve to non-speech.
const (
	MinSpeechRatio      = 0.05
	MinSpeechDurationMs = 150.0

	DefaultFrameMs         = 20
	DefaultEnergyThreshold = 300.0
)

// Classifier is the per-frame speech oracle. Classify returns one flag per
// complete frame of frameBytes; a trailing partial frame is ignored.
type Classifier interface {
	Name() string
	Classify(pcm []byte, sampleRate int, frameBytes int) ([]bool, error)
	Close() error
}

// SpeechStats describes the speech content of a buffer.
type SpeechStats struct {
	SpeechFrames     int
	TotalFrames      int
	SpeechRatio      float64
	SpeechDurationMs float64
}

// Detector frames a PCM buffer and consults the classifier oracle.
// Frame sizes of 10, 20 and 30 ms are supported.
type Detector struct {
	logger     commons.Logger
	classifier Classifier
	frameMs    int
}

type Option func(*Detector)

// WithFrameMs overrides the 20ms default frame size.
func WithFrameMs(ms int) Option {
	return func(d *Detector) {
		if ms == 10 || ms == 20 || ms == 30 {
			d.frameMs = ms
		}
	}
}

// WithClassifier replaces the energy oracle.
func WithClassifier(c Classifier) Option {
	return func(d *Detector) {
		if c != nil {
			d.classifier = c
		}
	}
}

// NewDetector builds a detector with the energy oracle unless overridden.
func NewDetector(logger commons.Logger, opts ...Option) *Detector {
	d := &Detector{
		logger:     logger,
		classifier: NewEnergyClassifier(DefaultEnergyThreshold),
		frameMs:    DefaultFrameMs,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ClassifierName reports which oracle is active.
func (d *Detector) ClassifierName() string {
	return d.classifier.Name()
}

// Close releases the oracle.
func (d *Detector) Close() error {
	return d.classifier.Close()
}

func (d *Detector) frameBytes(sampleRate int) int {
	return sampleRate * internal_audio.SampleWidth * d.frameMs / 1000
}

func (d *Detector) classify(pcm []byte, sampleRate int) []bool {
	fb := d.frameBytes(sampleRate)
	if fb <= 0 || len(pcm) < fb {
		return nil
	}
	flags, err := d.classifier.Classify(pcm, sampleRate, fb)
	if err != nil {
		d.logger.Warnw("vad: oracle failed, treating buffer as non-speech",
			"oracle", d.classifier.Name(), "error", err)
		return nil
	}
	return flags
}

// Stats frames the buffer and counts speech frames. Buffers shorter than
// one frame yield zero stats.
func (d *Detector) Stats(pcm []byte, sampleRate int) SpeechStats {
	flags := d.classify(pcm, sampleRate)
	stats := SpeechStats{TotalFrames: len(flags)}
	for _, speech := range flags {
		if speech {
			stats.SpeechFrames++
		}
	}
	if stats.TotalFrames > 0 {
		stats.SpeechRatio = float64(stats.SpeechFrames) / float64(stats.TotalFrames)
	}
	stats.SpeechDurationMs = float64(stats.SpeechFrames * d.frameMs)
	return stats
}

// HasSpeech applies the decision thresholds to Stats.
func (d *Detector) HasSpeech(pcm []byte, sampleRate int) bool {
	stats := d.Stats(pcm, sampleRate)
	return stats.SpeechFrames >= 1 &&
		stats.SpeechRatio >= MinSpeechRatio &&
		stats.SpeechDurationMs >= MinSpeechDurationMs
}

// FilterSpeech returns the speech-classified frames concatenated in
// arrival order. Sub-frame buffers return an empty slice.
func (d *Detector) FilterSpeech(pcm []byte, sampleRate int) []byte {
	flags := d.classify(pcm, sampleRate)
	if len(flags) == 0 {
		return nil
	}
	fb := d.frameBytes(sampleRate)
	out := make([]byte, 0, len(pcm))
	for i, speech := range flags {
		if speech {
			out = append(out, pcm[i*fb:(i+1)*fb]...)
		}
	}
	return out
}
