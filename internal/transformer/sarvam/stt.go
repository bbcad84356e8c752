// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transformer_sarvam

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	internal_audio "github.com/rapidaai/voice-gateway/internal/audio"
	internal_language "github.com/rapidaai/voice-gateway/internal/language"
	internal_transformer "github.com/rapidaai/voice-gateway/internal/transformer"
	"github.com/rapidaai/voice-gateway/pkg/commons"
)

type speechToText struct {
	logger commons.Logger
	client *resty.Client
	apiKey string
}

// NewSpeechToText builds the sarvam saaras transcriber. Without an API
// key the adapter reports unavailable and every call errors.
func NewSpeechToText(opts Options) internal_transformer.SpeechToText {
	opts.normalize()
	return &speechToText{
		logger: opts.Logger,
		client: newClient(opts),
		apiKey: opts.APIKey,
	}
}

func (s *speechToText) Name() string {
	return "sarvam-saaras"
}

func (s *speechToText) Available() bool {
	return s.apiKey != ""
}

type sttResponse struct {
	Transcript   string `json:"transcript"`
	LanguageCode string `json:"language_code"`
}

// Transcribe uploads the utterance as a WAV multipart part. The provider
// auto-detects language; the hint narrows it.
func (s *speechToText) Transcribe(ctx context.Context, pcm []byte, sampleRate int, language string) (*internal_transformer.Transcript, error) {
	if !s.Available() {
		return nil, fmt.Errorf("%w: sarvam stt has no api key", internal_transformer.ErrProviderUnavailable)
	}
	wav, err := internal_audio.PCMToWAV(pcm, sampleRate, internal_audio.DefaultChannels)
	if err != nil {
		return nil, err
	}

	var out sttResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetMultipartField("file", "audio.wav", "audio/wav", bytes.NewReader(wav)).
		SetFormData(map[string]string{
			"model":         sttModel,
			"language_code": language,
		}).
		SetResult(&out).
		Post("/speech-to-text")
	if err != nil {
		return nil, fmt.Errorf("%w: sarvam stt: %v", internal_transformer.ErrProviderTimeout, err)
	}
	if resp.IsError() {
		return nil, classifyStatus("stt", resp.StatusCode(), resp.String())
	}

	detected := language
	if out.LanguageCode != "" {
		detected = internal_language.Normalize(out.LanguageCode)
	}
	s.logger.Debugw("sarvam stt transcribed",
		"chars", len(out.Transcript), "language", detected, "audio_ms", internal_audio.Stats(pcm, sampleRate).DurationMs)
	return &internal_transformer.Transcript{Text: out.Transcript, Language: detected}, nil
}
