// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package experiment

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// reportPrefix namespaces report keys.
const reportPrefix = "report/"

// CacheConfig holds configuration for a report cache.
type CacheConfig struct {
	// Dir is the directory for BadgerDB files.
	// Required unless InMemory is true.
	Dir string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	// Default: true
	SyncWrites bool

	// Logger receives BadgerDB's internal logging. Nil disables it.
	Logger *slog.Logger
}

// DefaultCacheConfig returns the configuration for a persistent cache in dir.
func DefaultCacheConfig(dir string) CacheConfig {
	return CacheConfig{
		Dir:        dir,
		SyncWrites: true,
	}
}

// InMemoryCacheConfig returns configuration for a throwaway cache.
func InMemoryCacheConfig() CacheConfig {
	return CacheConfig{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Cache stores experiment reports in BadgerDB.
//
// Thread Safety: Safe for concurrent use.
type Cache struct {
	db *badger.DB
}

// OpenCache opens a report cache.
//
// Description:
//
//	Opens a BadgerDB database in cfg.Dir, creating the directory if
//	needed, or in memory if cfg.InMemory is true.
//
// Outputs:
//
//	*Cache - The cache. Caller must call Close() when done.
//	error - Non-nil if Dir is missing or the database cannot be opened.
func OpenCache(cfg CacheConfig) (*Cache, error) {
	if !cfg.InMemory && cfg.Dir == "" {
		return nil, errors.New("cache directory is required for a persistent cache")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Dir, err)
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open report cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Key derives the cache key of a report from the document content and the
// parameters that influence its scores.
//
// Outputs:
//
//	string - "report/" followed by the hex SHA-256 of content and params.
//	error - Non-nil if params cannot be encoded as JSON.
func Key(content []byte, params any) (string, error) {
	encoded, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode cache parameters: %w", err)
	}

	h := sha256.New()
	h.Write(content)
	h.Write([]byte{0})
	h.Write(encoded)
	return reportPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

// Get loads the report stored under key.
//
// Outputs:
//
//	*Report - The cached report.
//	error - ErrCacheMiss if nothing is stored under key.
func (c *Cache) Get(key string) (*Report, error) {
	var report Report
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &report)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("read cached report %s: %w", key, err)
	}
	return &report, nil
}

// Put stores report under key, replacing any previous report.
func (c *Cache) Put(key string, report *Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Keys returns every report key in the cache.
func (c *Cache) Keys() ([]string, error) {
	keys := make([]string, 0)
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(reportPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}
