// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package voice_routers

import (
	"github.com/gin-gonic/gin"

	aiApi "github.com/rapidaai/voice-gateway/api/ai-api"
	callApi "github.com/rapidaai/voice-gateway/api/call-api"
	"github.com/rapidaai/voice-gateway/config"
	internal_callstore "github.com/rapidaai/voice-gateway/internal/callstore"
	internal_gateway "github.com/rapidaai/voice-gateway/internal/gateway"
	internal_telephony_teler "github.com/rapidaai/voice-gateway/internal/telephony/teler"
	internal_transformer "github.com/rapidaai/voice-gateway/internal/transformer"
	"github.com/rapidaai/voice-gateway/pkg/commons"
)

func CallRoutes(
	cfg *config.AppConfig,
	engine *gin.Engine,
	logger commons.Logger,
	teler internal_telephony_teler.Client,
	store internal_callstore.Store,
	gateway *internal_gateway.Gateway,
) {
	logger.Info("Call routes added to engine.")
	cApi := callApi.NewCallApi(cfg, logger, teler, store, gateway)

	engine.GET("/health", cApi.Health)
	engine.POST("/flow", cApi.Flow)
	engine.POST("/webhook", cApi.Webhook)

	calls := engine.Group("/api/calls")
	{
		calls.POST("/initiate", cApi.Initiate)
		calls.GET("/history", cApi.History)
		calls.GET("/active", cApi.Active)
		calls.GET("/:id", cApi.Details)
		calls.GET("/:id/status", cApi.Status)
	}
}

func AiRoutes(
	cfg *config.AppConfig,
	engine *gin.Engine,
	logger commons.Logger,
	llm internal_transformer.Dialogue,
) {
	logger.Info("AI routes added to engine.")
	api := aiApi.NewAiApi(cfg, logger, llm)

	ai := engine.Group("/api/ai")
	{
		ai.GET("/status", api.Status)
		ai.POST("/conversation", api.Conversation)
	}
}
