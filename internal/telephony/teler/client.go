// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_telephony_teler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rapidaai/voice-gateway/pkg/commons"
)

const (
	DefaultBaseURL = "https://api.teler.ai"

	apiKeyHeader = "X-Api-Key"

	// StreamChunkSize is the outbound media chunk size teler plays.
	StreamChunkSize = 500

	requestTimeout = 15 * time.Second
)

// CreateCallParams is the outbound call request.
type CreateCallParams struct {
	FromNumber        string `json:"from_number"`
	ToNumber          string `json:"to_number"`
	FlowURL           string `json:"flow_url"`
	StatusCallbackURL string `json:"status_callback_url"`
	Record            bool   `json:"record"`
}

// CallResponse is the provider's call object, passed through untyped.
type CallResponse map[string]interface{}

// Client initiates calls against the teler REST API.
type Client interface {
	Name() string
	Available() bool
	CreateCall(ctx context.Context, params CreateCallParams) (CallResponse, error)
}

// Options configures the teler client.
type Options struct {
	Logger  commons.Logger
	APIKey  string
	BaseURL string
}

type client struct {
	logger commons.Logger
	http   *resty.Client
	apiKey string
}

// NewClient builds the teler REST client. Without an API key the client
// reports unavailable and CreateCall errors; callers fall back to a
// local mock call id.
func NewClient(opts Options) Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &client{
		logger: opts.Logger,
		apiKey: opts.APIKey,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(requestTimeout).
			SetHeader(apiKeyHeader, opts.APIKey),
	}
}

func (c *client) Name() string {
	return "teler"
}

func (c *client) Available() bool {
	return c.apiKey != ""
}

type createCallEnvelope struct {
	Data CallResponse `json:"data"`
}

func (c *client) CreateCall(ctx context.Context, params CreateCallParams) (CallResponse, error) {
	if !c.Available() {
		return nil, fmt.Errorf("teler: no api key configured")
	}

	var out createCallEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(params).
		SetResult(&out).
		Post("/calls/initiate")
	if err != nil {
		return nil, fmt.Errorf("teler: create call: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("teler: create call status=%d body=%s", resp.StatusCode(), resp.String())
	}
	if out.Data == nil {
		return nil, fmt.Errorf("teler: create call returned no data")
	}

	c.logger.Infow("teler call created", "to", params.ToNumber, "call", out.Data["call_id"])
	return out.Data, nil
}

// StreamFlow builds the flow document teler fetches to start streaming
// media to this service. localhost domains stay ws:// for local runs.
func StreamFlow(backendDomain string) map[string]interface{} {
	scheme := "wss"
	if strings.HasPrefix(backendDomain, "localhost") || strings.HasPrefix(backendDomain, "127.0.0.1") {
		scheme = "ws"
	}
	return map[string]interface{}{
		"action":     "stream",
		"ws_url":     fmt.Sprintf("%s://%s/media-stream", scheme, backendDomain),
		"chunk_size": StreamChunkSize,
		"record":     true,
	}
}

// MockCallID generates the fallback id used when the provider is
// unreachable, so the rest of the pipeline still functions.
func MockCallID() string {
	return fmt.Sprintf("call_%d", time.Now().Unix())
}
