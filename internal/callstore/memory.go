// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_callstore

import (
	"sort"
	"sync"
	"time"

	"github.com/rapidaai/voice-gateway/pkg/commons"
)

type memoryStore struct {
	logger    commons.Logger
	mu        sync.RWMutex
	records   map[string]*CallRecord
	retention int
}

// NewMemoryStore builds the in-process store. retention > 0 evicts the
// oldest records past that count.
func NewMemoryStore(logger commons.Logger, retention int) Store {
	return &memoryStore{
		logger:    logger,
		records:   make(map[string]*CallRecord),
		retention: retention,
	}
}

func (s *memoryStore) Save(record *CallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	record.UpdatedAt = time.Now()
	cp := *record
	s.records[record.CallID] = &cp
	s.evictLocked()
	return nil
}

func (s *memoryStore) Get(callID string) (*CallRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[callID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *memoryStore) List(limit int) ([]*CallRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*CallRecord, 0, len(s.records))
	for _, rec := range s.records {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) UpsertStatus(callID, status string, webhookData JSONMap) (*CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[callID]
	if !ok {
		rec = &CallRecord{CallID: callID, Timestamp: time.Now()}
		s.records[callID] = rec
	}
	if status != "" {
		rec.Status = status
	}
	if webhookData != nil {
		rec.WebhookData = webhookData
	}
	rec.UpdatedAt = time.Now()
	s.evictLocked()
	cp := *rec
	return &cp, nil
}

func (s *memoryStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *memoryStore) Close() error {
	return nil
}

// evictLocked trims the oldest records past retention. Caller holds the
// write lock.
func (s *memoryStore) evictLocked() {
	if s.retention <= 0 || len(s.records) <= s.retention {
		return
	}
	type aged struct {
		id string
		ts time.Time
	}
	all := make([]aged, 0, len(s.records))
	for id, rec := range s.records {
		all = append(all, aged{id: id, ts: rec.Timestamp})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ts.Before(all[j].ts) })
	for _, a := range all[:len(all)-s.retention] {
		delete(s.records, a.id)
	}
}
