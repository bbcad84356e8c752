// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transformer_sarvam

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	internal_audio "github.com/rapidaai/voice-gateway/internal/audio"
	internal_language "github.com/rapidaai/voice-gateway/internal/language"
	internal_transformer "github.com/rapidaai/voice-gateway/internal/transformer"
	"github.com/rapidaai/voice-gateway/pkg/commons"
)

type textToSpeech struct {
	logger commons.Logger
	client *resty.Client
	apiKey string
}

// NewTextToSpeech builds the sarvam bulbul synthesizer.
func NewTextToSpeech(opts Options) internal_transformer.TextToSpeech {
	opts.normalize()
	return &textToSpeech{
		logger: opts.Logger,
		client: newClient(opts),
		apiKey: opts.APIKey,
	}
}

func (t *textToSpeech) Name() string {
	return "sarvam-bulbul"
}

func (t *textToSpeech) Available() bool {
	return t.apiKey != ""
}

type ttsRequest struct {
	Inputs              []string `json:"inputs"`
	TargetLanguageCode  string   `json:"target_language_code"`
	Speaker             string   `json:"speaker"`
	Pitch               float64  `json:"pitch"`
	Pace                float64  `json:"pace"`
	Loudness            float64  `json:"loudness"`
	SpeechSampleRate    int      `json:"speech_sample_rate"`
	EnablePreprocessing bool     `json:"enable_preprocessing"`
	Model               string   `json:"model"`
}

type ttsResponse struct {
	Audios []string `json:"audios"`
}

// Synthesize renders text to linear16 PCM at the requested rate. The
// provider returns base64 WAV; the container is stripped and the PCM
// resampled when the provider rate differs.
func (t *textToSpeech) Synthesize(ctx context.Context, text string, language string, sampleRate int) ([]byte, error) {
	if !t.Available() {
		return nil, fmt.Errorf("%w: sarvam tts has no api key", internal_transformer.ErrProviderUnavailable)
	}

	var out ttsResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(ttsRequest{
			Inputs:              []string{text},
			TargetLanguageCode:  language,
			Speaker:             internal_language.SpeakerFor(language),
			Pitch:               0,
			Pace:                1.0,
			Loudness:            1.0,
			SpeechSampleRate:    sampleRate,
			EnablePreprocessing: true,
			Model:               ttsModel,
		}).
		SetResult(&out).
		Post("/text-to-speech")
	if err != nil {
		return nil, fmt.Errorf("%w: sarvam tts: %v", internal_transformer.ErrProviderTimeout, err)
	}
	if resp.IsError() {
		return nil, classifyStatus("tts", resp.StatusCode(), resp.String())
	}
	if len(out.Audios) == 0 {
		return nil, fmt.Errorf("%w: sarvam tts returned no audio", internal_transformer.ErrProviderUnavailable)
	}

	raw, err := internal_audio.DecodeBase64(out.Audios[0])
	if err != nil {
		return nil, err
	}

	pcm := raw
	if internal_audio.IsWAV(raw) {
		var rate int
		pcm, rate, _, err = internal_audio.ParseWAV(raw)
		if err != nil {
			return nil, err
		}
		if rate != sampleRate {
			pcm = internal_audio.Resample(pcm, rate, sampleRate)
		}
	}

	t.logger.Debugw("sarvam tts synthesized",
		"chars", len(text), "language", language, "audio_ms", internal_audio.Stats(pcm, sampleRate).DurationMs)
	return internal_audio.Align(pcm, internal_audio.SampleWidth), nil
}
