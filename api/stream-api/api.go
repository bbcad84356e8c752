// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package stream_api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rapidaai/voice-gateway/config"
	internal_audio "github.com/rapidaai/voice-gateway/internal/audio"
	internal_gateway "github.com/rapidaai/voice-gateway/internal/gateway"
	internal_session "github.com/rapidaai/voice-gateway/internal/session"
	internal_telephony_teler "github.com/rapidaai/voice-gateway/internal/telephony/teler"
	internal_vad "github.com/rapidaai/voice-gateway/internal/vad"
	"github.com/rapidaai/voice-gateway/pkg/commons"
)

// StreamApi exposes the media websocket plus introspection and control
// over live streams.
type StreamApi struct {
	cfg     *config.AppConfig
	logger  commons.Logger
	gateway *internal_gateway.Gateway
	vad     *internal_vad.Detector
}

func NewStreamApi(cfg *config.AppConfig, logger commons.Logger, gateway *internal_gateway.Gateway, vad *internal_vad.Detector) *StreamApi {
	return &StreamApi{cfg: cfg, logger: logger, gateway: gateway, vad: vad}
}

// MediaStream upgrades the telephony media websocket.
//
// @Router /media-stream [get]
func (api *StreamApi) MediaStream(c *gin.Context) {
	api.gateway.HandleMediaStream(c.Writer, c.Request)
}

// Streams lists live media streams.
//
// @Router /api/websocket/streams [get]
func (api *StreamApi) Streams(c *gin.Context) {
	snaps := api.gateway.ActiveSessions()
	c.JSON(http.StatusOK, gin.H{"success": true, "data": snaps, "count": len(snaps)})
}

func (api *StreamApi) lookup(id string) (*internal_session.Session, bool) {
	if sess, ok := api.gateway.SessionByConnectionID(id); ok {
		return sess, true
	}
	return api.gateway.SessionByCallID(id)
}

// Conversation returns the transcript history of a live stream. The id
// may be a connection id or a provider call id.
//
// @Router /api/websocket/conversation/:id [get]
func (api *StreamApi) Conversation(c *gin.Context) {
	sess, ok := api.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "stream not found"})
		return
	}
	history := sess.History()
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
		"connection_id": sess.ID(),
		"call_id":       sess.CallID(),
		"language":      sess.Language(),
		"history":       history,
		"count":         len(history),
	}})
}

// Interrupt stops caller-side playback at the latest chunk.
//
// @Router /api/websocket/interrupt/:id [post]
func (api *StreamApi) Interrupt(c *gin.Context) {
	sess, ok := api.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "stream not found"})
		return
	}
	sess.Interrupt()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "interrupt sent"})
}

// Clear drops the caller-side playback buffer.
//
// @Router /api/websocket/clear/:id [post]
func (api *StreamApi) Clear(c *gin.Context) {
	sess, ok := api.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "stream not found"})
		return
	}
	sess.ClearPlayback()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "clear sent"})
}

// AudioStatus describes the audio pipeline configuration.
//
// @Router /api/audio/status [get]
func (api *StreamApi) AudioStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
		"sample_rate":    internal_audio.DefaultSampleRate,
		"channels":       internal_audio.DefaultChannels,
		"sample_width":   internal_audio.SampleWidth,
		"chunk_size":     internal_telephony_teler.StreamChunkSize,
		"vad_classifier": api.vad.ClassifierName(),
		"active_streams": api.gateway.Count(),
	}})
}
