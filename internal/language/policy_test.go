// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_language

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// Switch detection
// ============================================================================

func TestDetectSwitchRequest(t *testing.T) {
	tests := []struct {
		text   string
		want   string
		wantOk bool
	}{
		{"please speak in english", English, true},
		{"SWITCH TO HINDI now", Hindi, true},
		{"can you talk in english", English, true},
		{"hindi me baat karo", Hindi, true},
		{"speak in tamil please", Tamil, true},
		{"switch to bengali", Bengali, true},
		{"what is the weather", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := DetectSwitchRequest(tt.text)
			assert.Equal(t, tt.wantOk, ok)
			if tt.wantOk {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// ============================================================================
// Script detection
// ============================================================================

func TestDetectFromText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		fallback string
		want     string
	}{
		{"devanagari", "आप कैसे हैं", English, Hindi},
		{"tamil", "நீங்கள் எப்படி இருக்கிறீர்கள்", Hindi, Tamil},
		{"bengali", "আপনি কেমন আছেন", Hindi, Bengali},
		{"english markers", "what is the weather today please", Hindi, English},
		{"romanized hindi keeps fallback", "kya haal hai aapka", Hindi, Hindi},
		{"empty keeps fallback", "", Tamil, Tamil},
		{"unknown fallback defaults", "", "xx-XX", DefaultLanguage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFromText(tt.text, tt.fallback))
		})
	}
}

// ============================================================================
// Normalize / speakers
// ============================================================================

func TestNormalize(t *testing.T) {
	assert.Equal(t, Hindi, Normalize("hi"))
	assert.Equal(t, Hindi, Normalize("hi-IN"))
	assert.Equal(t, English, Normalize("EN-in"))
	assert.Equal(t, Tamil, Normalize("ta"))
	assert.Equal(t, DefaultLanguage, Normalize(""))
	assert.Equal(t, DefaultLanguage, Normalize("zz"))
}

func TestSpeakerFor(t *testing.T) {
	assert.Equal(t, "meera", SpeakerFor(Hindi))
	assert.Equal(t, "meera", SpeakerFor("unknown"))
}

// ============================================================================
// Texts
// ============================================================================

func TestTextsExistForAllLanguages(t *testing.T) {
	for _, lang := range []string{Hindi, English, Tamil, Bengali, Telugu, Marathi} {
		assert.NotEmpty(t, GreetingFor(lang), lang)
		assert.NotEmpty(t, FarewellFor(lang), lang)
		assert.NotEmpty(t, SwitchConfirmation(lang), lang)
		assert.NotEmpty(t, FallbackReply(lang), lang)
		assert.NotEmpty(t, SilencePrompt(lang, 0), lang)
		assert.NotEmpty(t, SilencePrompt(lang, 1), lang)
	}
}

func TestFallbackReply_RotatesThroughPool(t *testing.T) {
	pool := FallbackReplies(English)
	assert.GreaterOrEqual(t, len(pool), 2, "fallback pool must offer variety")

	seen := map[string]bool{}
	for i := 0; i < len(pool)*2; i++ {
		reply := FallbackReply(English)
		assert.Contains(t, pool, reply)
		seen[reply] = true
	}
	assert.Len(t, seen, len(pool), "every pooled reply must eventually be used")

	assert.Equal(t, FallbackReplies(DefaultLanguage), FallbackReplies("xx-XX"),
		"unknown language uses the default pool")
}

func TestSilencePrompt_ClampsIndex(t *testing.T) {
	assert.Equal(t, SilencePrompt(English, 1), SilencePrompt(English, 99))
	assert.Equal(t, SilencePrompt(English, 0), SilencePrompt(English, -1))
	assert.NotEmpty(t, SilencePrompt("xx-XX", 0), "unknown language uses default prompts")
}
