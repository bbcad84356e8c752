// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transformer_claude

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	internal_language "github.com/rapidaai/voice-gateway/internal/language"
	internal_transformer "github.com/rapidaai/voice-gateway/internal/transformer"
	"github.com/rapidaai/voice-gateway/pkg/commons"
)

const (
	defaultModel = "claude-3-5-sonnet-20241022"
	maxTokens    = 500
	temperature  = 0.7
)

const systemPrompt = "You are a helpful voice assistant on a phone call. " +
	"Keep replies short, conversational and suitable for speech synthesis: " +
	"no markdown, no lists, at most two sentences. " +
	"Reply in the same language the caller is using."

// Options configures the claude dialogue adapter.
type Options struct {
	Logger commons.Logger
	APIKey string
	Model  string
}

type dialogue struct {
	logger commons.Logger
	client anthropic.Client
	apiKey string
	model  string
}

// NewDialogue builds the claude-backed dialogue adapter. Provider
// failures never propagate: the adapter answers with a keyword or canned
// fallback in the caller's language instead.
func NewDialogue(opts Options) internal_transformer.Dialogue {
	model := opts.Model
	if model == "" {
		model = defaultModel
	}
	return &dialogue{
		logger: opts.Logger,
		client: anthropic.NewClient(option.WithAPIKey(opts.APIKey)),
		apiKey: opts.APIKey,
		model:  model,
	}
}

func (d *dialogue) Name() string {
	return "claude"
}

func (d *dialogue) Available() bool {
	return d.apiKey != ""
}

// Model reports the configured model id for status endpoints.
func (d *dialogue) Model() string {
	return d.model
}

// buildPrompt inlines the history into a single user prompt, oldest
// turn first.
func buildPrompt(userText string, history []internal_transformer.Message, language string) string {
	var b strings.Builder
	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "The caller is speaking %s.\n", language)
	fmt.Fprintf(&b, "user: %s", userText)
	return b.String()
}

func (d *dialogue) Reply(ctx context.Context, userText string, history []internal_transformer.Message, language string) (string, error) {
	if !d.Available() {
		return keywordFallback(userText, language), nil
	}

	msg, err := d.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(d.model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(userText, history, language))),
		},
	})
	if err != nil {
		d.logger.Warnw("claude request failed, using fallback reply", "error", err)
		return keywordFallback(userText, language), nil
	}

	var reply strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(reply.String())
	if text == "" {
		d.logger.Warnw("claude returned empty content, using fallback reply")
		return keywordFallback(userText, language), nil
	}
	return text, nil
}

// keyword fallbacks keep the call conversational when the provider is
// down. Unmatched input gets the canned apology.
var keywordReplies = map[string]map[string]string{
	internal_language.English: {
		"hello":   "Hello! How can I help you today?",
		"hi":      "Hello! How can I help you today?",
		"thank":   "You're welcome! Is there anything else I can help with?",
		"goodbye": "Goodbye! Have a great day.",
		"bye":     "Goodbye! Have a great day.",
	},
	internal_language.Hindi: {
		"नमस्ते":  "नमस्ते! मैं आपकी क्या सहायता कर सकती हूँ?",
		"hello":   "नमस्ते! मैं आपकी क्या सहायता कर सकती हूँ?",
		"धन्यवाद": "आपका स्वागत है! क्या मैं और कुछ मदद कर सकती हूँ?",
		"thank":   "आपका स्वागत है! क्या मैं और कुछ मदद कर सकती हूँ?",
		"अलविदा":  "अलविदा! आपका दिन शुभ हो।",
		"bye":     "अलविदा! आपका दिन शुभ हो।",
	},
}

func keywordFallback(userText, language string) string {
	lower := strings.ToLower(userText)
	table, ok := keywordReplies[language]
	if !ok {
		table = keywordReplies[internal_language.DefaultLanguage]
	}
	for keyword, reply := range table {
		if strings.Contains(lower, keyword) {
			return reply
		}
	}
	return internal_language.FallbackReply(language)
}
