// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package voice_routers

import (
	"github.com/gin-gonic/gin"

	streamApi "github.com/rapidaai/voice-gateway/api/stream-api"
	"github.com/rapidaai/voice-gateway/config"
	internal_gateway "github.com/rapidaai/voice-gateway/internal/gateway"
	internal_vad "github.com/rapidaai/voice-gateway/internal/vad"
	"github.com/rapidaai/voice-gateway/pkg/commons"
)

func StreamRoutes(
	cfg *config.AppConfig,
	engine *gin.Engine,
	logger commons.Logger,
	gateway *internal_gateway.Gateway,
	vad *internal_vad.Detector,
) {
	logger.Info("Stream routes added to engine.")
	sApi := streamApi.NewStreamApi(cfg, logger, gateway, vad)

	engine.GET("/media-stream", sApi.MediaStream)

	ws := engine.Group("/api/websocket")
	{
		ws.GET("/streams", sApi.Streams)
		ws.GET("/conversation/:id", sApi.Conversation)
		ws.POST("/interrupt/:id", sApi.Interrupt)
		ws.POST("/clear/:id", sApi.Clear)
	}

	engine.GET("/api/audio/status", sApi.AudioStatus)
}
