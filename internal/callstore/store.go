// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_callstore

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound marks a lookup for an unknown call id.
var ErrNotFound = errors.New("callstore: call not found")

// JSONMap stores loosely-typed provider payloads as a JSON column.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("callstore: cannot scan %T into JSONMap", value)
	}
	return json.Unmarshal(raw, m)
}

// CallRecord is one tracked call with its latest provider state.
type CallRecord struct {
	ID                uint      `gorm:"primaryKey" json:"-"`
	CallID            string    `gorm:"uniqueIndex;size:128" json:"call_id"`
	Status            string    `gorm:"size:64" json:"status"`
	FromNumber        string    `gorm:"size:32" json:"from_number"`
	ToNumber          string    `gorm:"size:32" json:"to_number"`
	FlowURL           string    `json:"flow_url,omitempty"`
	StatusCallbackURL string    `json:"status_callback_url,omitempty"`
	Record            bool      `json:"record"`
	ProviderFailed    bool      `json:"provider_failed,omitempty"`
	ResponseData      JSONMap   `gorm:"type:text" json:"response_data,omitempty"`
	WebhookData       JSONMap   `gorm:"type:text" json:"webhook_data,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Store tracks calls keyed by provider call id.
type Store interface {
	// Save inserts or fully replaces a record.
	Save(record *CallRecord) error
	// Get returns the record for a call id or ErrNotFound.
	Get(callID string) (*CallRecord, error)
	// List returns records newest-first, capped at limit when limit > 0.
	List(limit int) ([]*CallRecord, error)
	// UpsertStatus merges a webhook status update, creating the record
	// if the call was never initiated through this service.
	UpsertStatus(callID, status string, webhookData JSONMap) (*CallRecord, error)
	// Count returns the number of tracked calls.
	Count() (int, error)
	Close() error
}
