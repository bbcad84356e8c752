// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transformer_claude

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_language "github.com/rapidaai/voice-gateway/internal/language"
	internal_transformer "github.com/rapidaai/voice-gateway/internal/transformer"
	"github.com/rapidaai/voice-gateway/pkg/commons"
)

func newTestDialogue(t *testing.T, apiKey string) internal_transformer.Dialogue {
	t.Helper()
	logger, err := commons.NewApplicationLogger()
	require.NoError(t, err)
	return NewDialogue(Options{Logger: logger, APIKey: apiKey})
}

func TestDialogue_Availability(t *testing.T) {
	assert.False(t, newTestDialogue(t, "").Available())
	assert.True(t, newTestDialogue(t, "sk-test").Available())
}

func TestDialogue_DefaultModel(t *testing.T) {
	d := newTestDialogue(t, "sk-test")
	m, ok := d.(interface{ Model() string })
	require.True(t, ok)
	assert.Equal(t, "claude-3-5-sonnet-20241022", m.Model())
}

// Without credentials the adapter answers from the keyword table and
// never returns an error.
func TestDialogue_KeywordFallbacks(t *testing.T) {
	d := newTestDialogue(t, "")

	reply, err := d.Reply(context.Background(), "hello there", nil, internal_language.English)
	require.NoError(t, err)
	assert.Contains(t, reply, "Hello")

	reply, err = d.Reply(context.Background(), "thank you so much", nil, internal_language.English)
	require.NoError(t, err)
	assert.Contains(t, reply, "welcome")

	reply, err = d.Reply(context.Background(), "what is the gdp of france", nil, internal_language.English)
	require.NoError(t, err)
	assert.Contains(t, internal_language.FallbackReplies(internal_language.English), reply)
}

func TestDialogue_FallbackUsesCallerLanguage(t *testing.T) {
	d := newTestDialogue(t, "")
	reply, err := d.Reply(context.Background(), "मौसम कैसा है", nil, internal_language.Hindi)
	require.NoError(t, err)
	assert.Contains(t, internal_language.FallbackReplies(internal_language.Hindi), reply)
}

func TestBuildPrompt_InlinesHistory(t *testing.T) {
	history := []internal_transformer.Message{
		{Role: internal_transformer.RoleAssistant, Content: "Hello!"},
		{Role: internal_transformer.RoleUser, Content: "hi"},
	}
	prompt := buildPrompt("what can you do", history, internal_language.English)

	assert.True(t, strings.Contains(prompt, "assistant: Hello!"))
	assert.True(t, strings.Contains(prompt, "user: hi"))
	assert.True(t, strings.HasSuffix(prompt, "user: what can you do"))
	assert.Contains(t, prompt, internal_language.English)
}

func TestBuildPrompt_NoHistory(t *testing.T) {
	prompt := buildPrompt("hello", nil, internal_language.Hindi)
	assert.False(t, strings.Contains(prompt, "Conversation so far"))
	assert.True(t, strings.HasSuffix(prompt, "user: hello"))
}
