// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transformer_sarvam

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_audio "github.com/rapidaai/voice-gateway/internal/audio"
	internal_language "github.com/rapidaai/voice-gateway/internal/language"
	internal_transformer "github.com/rapidaai/voice-gateway/internal/transformer"
	"github.com/rapidaai/voice-gateway/pkg/commons"
)

func testOptions(t *testing.T, baseURL string) Options {
	t.Helper()
	logger, err := commons.NewApplicationLogger()
	require.NoError(t, err)
	return Options{Logger: logger, APIKey: "test-key", BaseURL: baseURL}
}

// ============================================================================
// STT
// ============================================================================

func TestSTT_Transcribe(t *testing.T) {
	var gotKey, gotModel, gotLang, gotPath string
	var gotFile []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("API-Subscription-Key")
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotModel = r.FormValue("model")
		gotLang = r.FormValue("language_code")
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "audio.wav", header.Filename)
		gotFile, _ = io.ReadAll(file)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"transcript":    "नमस्ते आप कैसे हैं",
			"language_code": "hi-IN",
		})
	}))
	defer server.Close()

	stt := NewSpeechToText(testOptions(t, server.URL))
	require.True(t, stt.Available())

	pcm := make([]byte, 8000*2) // 1s of silence is still a valid upload
	tr, err := stt.Transcribe(context.Background(), pcm, 8000, internal_language.Hindi)
	require.NoError(t, err)

	assert.Equal(t, "/speech-to-text", gotPath, "transcription endpoint, not the translate variant")
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "saaras:v1", gotModel)
	assert.Equal(t, internal_language.Hindi, gotLang)
	assert.True(t, internal_audio.IsWAV(gotFile), "upload must be a WAV container")
	assert.Equal(t, "नमस्ते आप कैसे हैं", tr.Text)
	assert.Equal(t, internal_language.Hindi, tr.Language)
}

func TestSTT_InputErrorNotRetried(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"bad audio"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	stt := NewSpeechToText(testOptions(t, server.URL))
	_, err := stt.Transcribe(context.Background(), make([]byte, 3200), 8000, internal_language.Hindi)
	require.Error(t, err)
	assert.ErrorIs(t, err, internal_transformer.ErrProviderInput)
	assert.Equal(t, int64(1), calls.Load(), "4xx must not be retried")
}

func TestSTT_ServerErrorRetried(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	stt := NewSpeechToText(testOptions(t, server.URL))
	_, err := stt.Transcribe(context.Background(), make([]byte, 3200), 8000, internal_language.Hindi)
	require.Error(t, err)
	assert.ErrorIs(t, err, internal_transformer.ErrProviderUnavailable)
	assert.Equal(t, int64(3), calls.Load(), "5xx retried twice after the first attempt")
}

func TestSTT_NoAPIKey(t *testing.T) {
	logger, err := commons.NewApplicationLogger()
	require.NoError(t, err)
	stt := NewSpeechToText(Options{Logger: logger})
	assert.False(t, stt.Available())
	_, err = stt.Transcribe(context.Background(), make([]byte, 320), 8000, internal_language.Hindi)
	assert.ErrorIs(t, err, internal_transformer.ErrProviderUnavailable)
}

// ============================================================================
// TTS
// ============================================================================

func TestTTS_Synthesize(t *testing.T) {
	pcm := make([]byte, 1600) // 100ms at 8k
	wav, err := internal_audio.PCMToWAV(pcm, 8000, 1)
	require.NoError(t, err)

	var gotReq ttsRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string][]string{
			"audios": {internal_audio.EncodeBase64(wav)},
		})
	}))
	defer server.Close()

	tts := NewTextToSpeech(testOptions(t, server.URL))
	out, err := tts.Synthesize(context.Background(), "नमस्ते", internal_language.Hindi, 8000)
	require.NoError(t, err)

	assert.Equal(t, []string{"नमस्ते"}, gotReq.Inputs)
	assert.Equal(t, internal_language.Hindi, gotReq.TargetLanguageCode)
	assert.Equal(t, "meera", gotReq.Speaker)
	assert.Equal(t, 8000, gotReq.SpeechSampleRate)
	assert.Equal(t, 1.0, gotReq.Pace)
	assert.True(t, gotReq.EnablePreprocessing)
	assert.Equal(t, "bulbul:v1", gotReq.Model)
	assert.Equal(t, pcm, out, "WAV container must be stripped to raw PCM")
}

func TestTTS_ResamplesProviderRate(t *testing.T) {
	// provider answers at 16k although 8k was requested
	pcm16k := make([]byte, 3200) // 100ms at 16k
	wav, err := internal_audio.PCMToWAV(pcm16k, 16000, 1)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string][]string{"audios": {internal_audio.EncodeBase64(wav)}})
	}))
	defer server.Close()

	tts := NewTextToSpeech(testOptions(t, server.URL))
	out, err := tts.Synthesize(context.Background(), "hello", internal_language.English, 8000)
	require.NoError(t, err)
	assert.InDelta(t, len(pcm16k)/2, len(out), 4, "16k PCM must be resampled to 8k")
}

func TestTTS_EmptyAudios(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string][]string{"audios": {}})
	}))
	defer server.Close()

	tts := NewTextToSpeech(testOptions(t, server.URL))
	_, err := tts.Synthesize(context.Background(), "hello", internal_language.English, 8000)
	assert.ErrorIs(t, err, internal_transformer.ErrProviderUnavailable)
}
