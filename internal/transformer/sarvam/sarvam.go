// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transformer_sarvam

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	internal_transformer "github.com/rapidaai/voice-gateway/internal/transformer"
	"github.com/rapidaai/voice-gateway/pkg/commons"
)

const (
	DefaultBaseURL = "https://api.sarvam.ai"

	sttModel = "saaras:v1"
	ttsModel = "bulbul:v1"

	apiKeyHeader = "API-Subscription-Key"

	requestTimeout = 30 * time.Second
	retryCount     = 2
	retryWait      = 250 * time.Millisecond
	retryMaxWait   = 2 * time.Second
)

// Options configures the sarvam adapters.
type Options struct {
	Logger  commons.Logger
	APIKey  string
	BaseURL string
}

func (o *Options) normalize() {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
}

// newClient builds the shared resty client. Connection errors and 5xx
// responses are retried; 4xx rejections are not.
func newClient(opts Options) *resty.Client {
	return resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(requestTimeout).
		SetRetryCount(retryCount).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(retryMaxWait).
		SetHeader(apiKeyHeader, opts.APIKey).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
}

// classifyStatus maps an HTTP failure onto the transformer error set.
func classifyStatus(op string, code int, body string) error {
	if code >= http.StatusInternalServerError {
		return fmt.Errorf("%w: sarvam %s status=%d body=%s", internal_transformer.ErrProviderUnavailable, op, code, body)
	}
	return fmt.Errorf("%w: sarvam %s status=%d body=%s", internal_transformer.ErrProviderInput, op, code, body)
}
