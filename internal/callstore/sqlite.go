// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_callstore

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rapidaai/voice-gateway/pkg/commons"
)

type sqliteStore struct {
	logger    commons.Logger
	db        *gorm.DB
	retention int
}

// NewSqliteStore opens (or creates) the sqlite call database at path and
// migrates the schema. retention > 0 evicts the oldest rows past that
// count on every write.
func NewSqliteStore(logger commons.Logger, path string, retention int) (Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("callstore: opening sqlite at %s: %w", path, err)
	}
	if err := db.AutoMigrate(&CallRecord{}); err != nil {
		return nil, fmt.Errorf("callstore: migrating schema: %w", err)
	}
	logger.Infow("call store ready", "driver", "sqlite", "path", path)
	return &sqliteStore{logger: logger, db: db, retention: retention}, nil
}

func (s *sqliteStore) Save(record *CallRecord) error {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	record.UpdatedAt = time.Now()
	err := s.db.Where("call_id = ?", record.CallID).
		Assign(record).
		FirstOrCreate(&CallRecord{}).Error
	if err != nil {
		return fmt.Errorf("callstore: saving call %s: %w", record.CallID, err)
	}
	s.evict()
	return nil
}

func (s *sqliteStore) Get(callID string) (*CallRecord, error) {
	var rec CallRecord
	err := s.db.Where("call_id = ?", callID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("callstore: loading call %s: %w", callID, err)
	}
	return &rec, nil
}

func (s *sqliteStore) List(limit int) ([]*CallRecord, error) {
	q := s.db.Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recs []*CallRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("callstore: listing calls: %w", err)
	}
	return recs, nil
}

func (s *sqliteStore) UpsertStatus(callID, status string, webhookData JSONMap) (*CallRecord, error) {
	rec, err := s.Get(callID)
	if errors.Is(err, ErrNotFound) {
		rec = &CallRecord{CallID: callID, Timestamp: time.Now()}
	} else if err != nil {
		return nil, err
	}
	if status != "" {
		rec.Status = status
	}
	if webhookData != nil {
		rec.WebhookData = webhookData
	}
	if err := s.Save(rec); err != nil {
		return nil, err
	}
	return s.Get(callID)
}

func (s *sqliteStore) Count() (int, error) {
	var n int64
	if err := s.db.Model(&CallRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("callstore: counting calls: %w", err)
	}
	return int(n), nil
}

func (s *sqliteStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func (s *sqliteStore) evict() {
	if s.retention <= 0 {
		return
	}
	var n int64
	if err := s.db.Model(&CallRecord{}).Count(&n).Error; err != nil || int(n) <= s.retention {
		return
	}
	err := s.db.Exec(
		"DELETE FROM call_records WHERE id IN (SELECT id FROM call_records ORDER BY timestamp ASC LIMIT ?)",
		int(n)-s.retention,
	).Error
	if err != nil {
		s.logger.Warnw("call store eviction failed", "error", err)
	}
}
