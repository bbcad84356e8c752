// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transformer

import (
	"context"
)

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Transcript is the STT result for one utterance.
type Transcript struct {
	Text     string
	Language string
}

// SpeechToText transcribes a linear16 PCM utterance.
type SpeechToText interface {
	Name() string
	Available() bool
	Transcribe(ctx context.Context, pcm []byte, sampleRate int, language string) (*Transcript, error)
}

// Dialogue produces the assistant reply for a user turn given prior
// history. Implementations degrade to canned replies rather than
// propagate provider failures.
type Dialogue interface {
	Name() string
	Available() bool
	Reply(ctx context.Context, userText string, history []Message, language string) (string, error)
}

// TextToSpeech synthesizes linear16 PCM at the requested sample rate.
type TextToSpeech interface {
	Name() string
	Available() bool
	Synthesize(ctx context.Context, text string, language string, sampleRate int) ([]byte, error)
}
