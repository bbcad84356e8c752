// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_session

import (
	internal_audio "github.com/rapidaai/voice-gateway/internal/audio"
)

// Inbound frame types from the telephony stream.
const (
	FrameStart = "start"
	FrameAudio = "audio"
	FrameStop  = "stop"
)

// Outbound frame types to the telephony stream.
const (
	frameKindAudio     = "audio"
	frameKindInterrupt = "interrupt"
	frameKindClear     = "clear"
)

// InboundFrame is one text-JSON message from the provider. Unknown
// types are logged and ignored.
type InboundFrame struct {
	Type      string      `json:"type"`
	AccountID string      `json:"account_id,omitempty"`
	CallAppID string      `json:"call_app_id,omitempty"`
	CallID    string      `json:"call_id,omitempty"`
	StreamID  string      `json:"stream_id,omitempty"`
	MessageID string      `json:"message_id,omitempty"`
	Data      InboundData `json:"data,omitempty"`
}

// InboundData carries the start-frame media description or an audio
// payload.
type InboundData struct {
	Encoding   string `json:"encoding,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
	AudioB64   string `json:"audio_b64,omitempty"`
}

// StreamMetadata is the media description captured from the start frame.
type StreamMetadata struct {
	AccountID string
	CallAppID string
	CallID    string
	StreamID  string
	Audio     internal_audio.AudioConfig
}

type outboundAudioFrame struct {
	Type     string `json:"type"`
	AudioB64 string `json:"audio_b64"`
	ChunkID  uint64 `json:"chunk_id"`
}

type outboundInterruptFrame struct {
	Type    string `json:"type"`
	ChunkID uint64 `json:"chunk_id"`
}

type outboundClearFrame struct {
	Type string `json:"type"`
}

// outFrame is a queued outbound frame. Audio chunk ids are assigned at
// serialization time by the writer, not at enqueue.
type outFrame struct {
	kind    string
	pcm     []byte
	chunkID uint64
}

// State is the session's position in the turn state machine.
type State string

const (
	StateConnected    State = "connected"
	StateGreeting     State = "greeting"
	StateListening    State = "listening"
	StateAccumulating State = "accumulating"
	StateProcessing   State = "processing"
	StateEnding       State = "ending"
	StateEnded        State = "ended"
)
