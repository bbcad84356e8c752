// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package call_api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rapidaai/voice-gateway/config"
	internal_callstore "github.com/rapidaai/voice-gateway/internal/callstore"
	internal_gateway "github.com/rapidaai/voice-gateway/internal/gateway"
	internal_telephony_teler "github.com/rapidaai/voice-gateway/internal/telephony/teler"
	"github.com/rapidaai/voice-gateway/pkg/commons"
)

const initiateTimeout = 30 * time.Second

// CallApi serves call setup, status webhooks and call history.
type CallApi struct {
	cfg     *config.AppConfig
	logger  commons.Logger
	teler   internal_telephony_teler.Client
	store   internal_callstore.Store
	gateway *internal_gateway.Gateway
}

func NewCallApi(
	cfg *config.AppConfig,
	logger commons.Logger,
	teler internal_telephony_teler.Client,
	store internal_callstore.Store,
	gateway *internal_gateway.Gateway,
) *CallApi {
	return &CallApi{cfg: cfg, logger: logger, teler: teler, store: store, gateway: gateway}
}

// bindLoose accepts JSON or form-encoded bodies; telephony providers
// send both. Malformed bodies yield an empty map, never an error.
func bindLoose(c *gin.Context) map[string]interface{} {
	out := map[string]interface{}{}
	if strings.Contains(c.ContentType(), "json") {
		body, err := io.ReadAll(c.Request.Body)
		if err == nil && len(body) > 0 {
			_ = json.Unmarshal(body, &out)
		}
		return out
	}
	if err := c.Request.ParseForm(); err == nil {
		for k, v := range c.Request.PostForm {
			if len(v) > 0 {
				out[k] = v[0]
			}
		}
	}
	return out
}

func stringField(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// Health reports liveness and provider readiness.
//
// @Router /health [get]
func (api *CallApi) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"message":         api.cfg.Name + " is running",
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"teler_available": api.teler.Available(),
	})
}

// Flow answers the provider's flow fetch with the stream directive.
// It is on the call-setup critical path: pure construction, always 200.
//
// @Router /flow [post]
func (api *CallApi) Flow(c *gin.Context) {
	payload := bindLoose(c)
	api.logger.Infow("flow requested", "call", stringField(payload, "call_id", "CallSid", "id"))
	c.JSON(http.StatusOK, internal_telephony_teler.StreamFlow(api.cfg.BackendDomain))
}

type initiateRequest struct {
	FromNumber        string `json:"from_number"`
	ToNumber          string `json:"to_number"`
	FlowURL           string `json:"flow_url"`
	StatusCallbackURL string `json:"status_callback_url"`
	Record            *bool  `json:"record"`
}

// Initiate starts an outbound call through teler. When the provider is
// unreachable the call record falls back to a locally generated id so
// the dev flow keeps working, flagged provider_failed.
//
// @Router /api/calls/initiate [post]
func (api *CallApi) Initiate(c *gin.Context) {
	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid JSON body"})
		return
	}
	for _, field := range []struct{ name, value string }{
		{"from_number", req.FromNumber},
		{"to_number", req.ToNumber},
		{"flow_url", req.FlowURL},
	} {
		if strings.TrimSpace(field.value) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing required field: " + field.name})
			return
		}
	}

	record := true
	if req.Record != nil {
		record = *req.Record
	}
	callbackURL := req.StatusCallbackURL
	if callbackURL == "" {
		callbackURL = api.cfg.WebhookURL()
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), initiateTimeout)
	defer cancel()
	resp, err := api.teler.CreateCall(ctx, internal_telephony_teler.CreateCallParams{
		FromNumber:        req.FromNumber,
		ToNumber:          req.ToNumber,
		FlowURL:           req.FlowURL,
		StatusCallbackURL: callbackURL,
		Record:            record,
	})

	rec := &internal_callstore.CallRecord{
		FromNumber:        req.FromNumber,
		ToNumber:          req.ToNumber,
		FlowURL:           req.FlowURL,
		StatusCallbackURL: callbackURL,
		Record:            record,
		Timestamp:         time.Now(),
	}
	if err != nil {
		api.logger.Warnw("call initiation degraded to local id", "error", err)
		rec.CallID = internal_telephony_teler.MockCallID()
		rec.Status = "initiated"
		rec.ProviderFailed = true
	} else {
		rec.CallID = stringField(resp, "call_id", "id")
		if rec.CallID == "" {
			rec.CallID = internal_telephony_teler.MockCallID()
		}
		rec.Status = stringField(resp, "status")
		if rec.Status == "" {
			rec.Status = "initiated"
		}
		rec.ResponseData = internal_callstore.JSONMap(resp)
	}
	if err := api.store.Save(rec); err != nil {
		api.logger.Warnw("saving call record failed", "call", rec.CallID, "error", err)
	}

	data := gin.H{
		"call_id":     rec.CallID,
		"status":      rec.Status,
		"from_number": rec.FromNumber,
		"to_number":   rec.ToNumber,
		"flow_url":    rec.FlowURL,
		"record":      rec.Record,
		"timestamp":   rec.Timestamp.UTC().Format(time.RFC3339),
	}
	if rec.ProviderFailed {
		data["provider_failed"] = true
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// Webhook ingests provider status callbacks. Always 200 so the
// provider never retries on our bugs.
//
// @Router /webhook [post]
func (api *CallApi) Webhook(c *gin.Context) {
	payload := bindLoose(c)
	callID := stringField(payload, "call_id", "CallSid", "id")
	if callID == "" {
		api.logger.Warnw("webhook without call id", "payload_keys", len(payload))
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "ignored: no call id"})
		return
	}
	status := stringField(payload, "status", "CallStatus")

	if _, err := api.store.UpsertStatus(callID, status, internal_callstore.JSONMap(payload)); err != nil {
		api.logger.Warnw("webhook store update failed", "call", callID, "error", err)
	}
	if sess, ok := api.gateway.SessionByCallID(callID); ok {
		sess.ApplyWebhook(status, payload)
	}
	api.logger.Infow("webhook processed", "call", callID, "status", status)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "status recorded"})
}

// History lists tracked calls newest-first.
//
// @Router /api/calls/history [get]
func (api *CallApi) History(c *gin.Context) {
	recs, err := api.store.List(0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "history unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": recs, "count": len(recs)})
}

// Active lists live media sessions.
//
// @Router /api/calls/active [get]
func (api *CallApi) Active(c *gin.Context) {
	snaps := api.gateway.ActiveSessions()
	c.JSON(http.StatusOK, gin.H{"success": true, "data": snaps, "count": len(snaps)})
}

// Details returns one call record.
//
// @Router /api/calls/:id [get]
func (api *CallApi) Details(c *gin.Context) {
	rec, err := api.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "call not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rec})
}

// Status returns just the status slice of a call record.
//
// @Router /api/calls/:id/status [get]
func (api *CallApi) Status(c *gin.Context) {
	rec, err := api.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "call not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
		"call_id":      rec.CallID,
		"status":       rec.Status,
		"timestamp":    rec.Timestamp.UTC().Format(time.RFC3339),
		"webhook_data": rec.WebhookData,
	}})
}
