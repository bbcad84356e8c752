// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package ai_api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rapidaai/voice-gateway/config"
	internal_language "github.com/rapidaai/voice-gateway/internal/language"
	internal_transformer "github.com/rapidaai/voice-gateway/internal/transformer"
	"github.com/rapidaai/voice-gateway/pkg/commons"
)

// AiApi exposes dialogue status and a text-only conversation endpoint
// for testing the LLM path without a live call.
type AiApi struct {
	cfg    *config.AppConfig
	logger commons.Logger
	llm    internal_transformer.Dialogue
}

func NewAiApi(cfg *config.AppConfig, logger commons.Logger, llm internal_transformer.Dialogue) *AiApi {
	return &AiApi{cfg: cfg, logger: logger, llm: llm}
}

// Status reports dialogue provider readiness.
//
// @Router /api/ai/status [get]
func (api *AiApi) Status(c *gin.Context) {
	data := gin.H{
		"llm_available": api.llm.Available(),
		"service":       api.llm.Name(),
	}
	if m, ok := api.llm.(interface{ Model() string }); ok {
		data["model"] = m.Model()
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

type conversationRequest struct {
	History      []internal_transformer.Message `json:"history"`
	CurrentInput string                         `json:"current_input"`
	CallID       string                         `json:"call_id"`
	Context      string                         `json:"context"`
}

// Conversation runs one dialogue turn over HTTP.
//
// @Router /api/ai/conversation [post]
func (api *AiApi) Conversation(c *gin.Context) {
	if !api.llm.Available() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "LLM service unavailable"})
		return
	}
	var req conversationRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.CurrentInput) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing required field: current_input"})
		return
	}

	lang := internal_language.DetectFromText(req.CurrentInput, api.cfg.DefaultLanguage)
	reply, err := api.llm.Reply(c.Request.Context(), req.CurrentInput, req.History, lang)
	if err != nil {
		api.logger.Warnw("conversation turn failed", "call", req.CallID, "error", err)
		reply = internal_language.FallbackReply(lang)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
		"response":  reply,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}})
}
