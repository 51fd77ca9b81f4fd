// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(breadYAML), 0o644))

	fired := make(chan string, 10)
	w, err := NewWatcher(path, func(_ context.Context, p string) {
		fired <- p
	}, &WatcherOptions{DebounceWindow: 50 * time.Millisecond})
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	assert.True(t, w.IsWatching())

	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o644))

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte(breadYAML), 0o644))
	}

	select {
	case p := <-fired:
		assert.Equal(t, w.Path(), p)
	case <-time.After(5 * time.Second):
		t.Fatal("handler not called")
	}

	// The burst collapses into one call.
	select {
	case <-fired:
		t.Fatal("handler called twice for one burst")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_StopIsFinal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.xml")
	w, err := NewWatcher(path, nil, nil)
	require.NoError(t, err)

	w.Stop()
	w.Stop()

	assert.False(t, w.IsWatching())
	assert.ErrorIs(t, w.Start(context.Background()), ErrWatcherClosed)
}
