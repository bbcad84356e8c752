// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_audio "github.com/rapidaai/voice-gateway/internal/audio"
	internal_language "github.com/rapidaai/voice-gateway/internal/language"
	internal_session "github.com/rapidaai/voice-gateway/internal/session"
	internal_transformer "github.com/rapidaai/voice-gateway/internal/transformer"
	internal_vad "github.com/rapidaai/voice-gateway/internal/vad"
	"github.com/rapidaai/voice-gateway/pkg/commons"
)

// ============================================================================
// Test doubles
// ============================================================================

type echoSTT struct{}

func (echoSTT) Name() string    { return "echo-stt" }
func (echoSTT) Available() bool { return true }
func (echoSTT) Transcribe(ctx context.Context, pcm []byte, sampleRate int, language string) (*internal_transformer.Transcript, error) {
	return &internal_transformer.Transcript{Text: "kya haal hai", Language: language}, nil
}

type echoLLM struct{}

func (echoLLM) Name() string    { return "echo-llm" }
func (echoLLM) Available() bool { return true }
func (echoLLM) Reply(ctx context.Context, userText string, history []internal_transformer.Message, language string) (string, error) {
	return "sab theek hai", nil
}

type toneTTS struct{}

func (toneTTS) Name() string    { return "tone-tts" }
func (toneTTS) Available() bool { return true }
func (toneTTS) Synthesize(ctx context.Context, text string, language string, sampleRate int) ([]byte, error) {
	return make([]byte, sampleRate/10*internal_audio.SampleWidth), nil
}

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	logger, err := commons.NewApplicationLogger()
	require.NoError(t, err)
	return NewGateway(Options{
		Logger: logger,
		Session: internal_session.Config{
			DefaultLanguage:        internal_language.Hindi,
			SilenceWarningInterval: time.Hour,
			MinAccumulation:        200 * time.Millisecond,
			ShutdownGrace:          10 * time.Millisecond,
		},
		STT:      echoSTT{},
		Dialogue: echoLLM{},
		TTS:      toneTTS{},
		VAD:      internal_vad.NewDetector(logger),
	})
}

func dialMediaStream(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/media-stream"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	return conn
}

// ============================================================================
// Upgrade and greeting
// ============================================================================

func TestGateway_EndToEndGreeting(t *testing.T) {
	gw := newTestGateway(t)
	server := httptest.NewServer(http.HandlerFunc(gw.HandleMediaStream))
	defer server.Close()

	conn := dialMediaStream(t, server)
	defer conn.Close()

	require.Eventually(t, func() bool { return gw.Count() == 1 }, time.Second, 5*time.Millisecond)

	start := map[string]interface{}{
		"type": "start", "call_id": "C1", "stream_id": "S1",
		"data": map[string]interface{}{"encoding": "audio/l16", "sample_rate": 8000, "channels": 1},
	}
	require.NoError(t, conn.WriteJSON(start))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame struct {
		Type     string `json:"type"`
		AudioB64 string `json:"audio_b64"`
		ChunkID  uint64 `json:"chunk_id"`
	}
	require.NoError(t, conn.ReadJSON(&frame))

	assert.Equal(t, "audio", frame.Type)
	assert.Equal(t, uint64(1), frame.ChunkID, "greeting is the first chunk")
	pcm, err := internal_audio.DecodeBase64(frame.AudioB64)
	require.NoError(t, err)
	assert.NotEmpty(t, pcm)

	// session visible in the registry with the provider call id
	sess, ok := gw.SessionByCallID("C1")
	require.True(t, ok)
	assert.Equal(t, "S1", sess.StreamID())
}

func TestGateway_DisconnectTearsDownSession(t *testing.T) {
	gw := newTestGateway(t)
	server := httptest.NewServer(http.HandlerFunc(gw.HandleMediaStream))
	defer server.Close()

	conn := dialMediaStream(t, server)
	require.Eventually(t, func() bool { return gw.Count() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return gw.Count() == 0 }, 2*time.Second, 5*time.Millisecond,
		"session must be removed on disconnect")
}

func TestGateway_NonWebsocketRequestIs4xx(t *testing.T) {
	gw := newTestGateway(t)
	server := httptest.NewServer(http.HandlerFunc(gw.HandleMediaStream))
	defer server.Close()

	resp, err := http.Get(server.URL + "/media-stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, gw.Count(), "failed upgrade must not create a session")
}

// ============================================================================
// Drain
// ============================================================================

func TestGateway_DrainRefusesNewStreams(t *testing.T) {
	gw := newTestGateway(t)
	server := httptest.NewServer(http.HandlerFunc(gw.HandleMediaStream))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	gw.Drain(ctx)

	resp, err := http.Get(server.URL + "/media-stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestGateway_DrainSaysGoodbye(t *testing.T) {
	gw := newTestGateway(t)
	server := httptest.NewServer(http.HandlerFunc(gw.HandleMediaStream))
	defer server.Close()

	conn := dialMediaStream(t, server)
	defer conn.Close()
	require.Eventually(t, func() bool { return gw.Count() == 1 }, time.Second, 5*time.Millisecond)

	start := map[string]interface{}{
		"type": "start", "call_id": "C2", "stream_id": "S2",
		"data": map[string]interface{}{"encoding": "audio/l16", "sample_rate": 8000, "channels": 1},
	}
	require.NoError(t, conn.WriteJSON(start))

	// consume the greeting first
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go gw.Drain(ctx)

	// farewell audio then a close frame
	sawFarewell := false
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var f struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(raw, &f) == nil && f.Type == "audio" {
			sawFarewell = true
		}
	}
	assert.True(t, sawFarewell, "drain must deliver a farewell utterance")
}
