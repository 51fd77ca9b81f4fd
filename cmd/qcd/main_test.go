// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/qcd/services/concept/experiment"
)

const breadXML = `<document>
  <section>
    <title>Bread</title>
    <entity>wheat</entity>
    <entity>oven</entity>
    <annotations>
      <annotation tag="a priori">oven</annotation>
      <annotation tag="forward">bread</annotation>
    </annotations>
  </section>
  <section>
    <title>Wheat</title>
    <entity>grain</entity>
    <entity>bread</entity>
    <annotations>
      <annotation tag="emerging">grain</annotation>
      <annotation tag="backward">wheat</annotation>
    </annotations>
  </section>
</document>`

const plainYAML = `sections:
  - title: Bread
    entities:
      - text: wheat
  - title: Wheat
    entities:
      - text: bread
`

// lockedBuffer is a bytes.Buffer safe for the watcher goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// fixture writes body to name in a temp dir and returns its path.
func fixture(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

// qcd runs the command line with an isolated config and returns the exit
// code and both outputs.
func qcd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cfgPath := filepath.Join(t.TempDir(), "qcd.yaml")
	args = append([]string{"--config", cfgPath}, args...)
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := qcd(t, "version")
	assert.Equal(t, ExitOK, code)
	assert.True(t, strings.HasPrefix(out, "qcd dev"))
}

func TestAnalyze_Text(t *testing.T) {
	path := fixture(t, "bread.xml", breadXML)

	code, out, errOut := qcd(t, "analyze", path)
	require.Equal(t, ExitOK, code, errOut)

	assert.Contains(t, out, "# Concept graph: bread")
	assert.Contains(t, out, "nodes\t4\n")
	assert.Contains(t, out, "forward references\t1\n")
	assert.Contains(t, out, "backward references\t1\n")
}

func TestAnalyze_JSON(t *testing.T) {
	path := fixture(t, "bread.xml", breadXML)

	code, out, errOut := qcd(t, "analyze", path, "--format", "json", "--check")
	require.Equal(t, ExitOK, code, errOut)

	var got analyzeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "bread", got.Document)
	assert.Equal(t, 4, got.Summary.Nodes)
	assert.Equal(t, 4, got.Summary.Edges)
	assert.Equal(t, []string{"bread", "wheat"}, got.Summary.Sections)
	require.NotNil(t, got.Valid)
	assert.True(t, *got.Valid)
}

func TestAnalyze_NoMark(t *testing.T) {
	path := fixture(t, "bread.xml", breadXML)

	code, out, errOut := qcd(t, "analyze", path, "--no-mark", "--format", "json")
	require.Equal(t, ExitOK, code, errOut)

	var got analyzeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Zero(t, got.Summary.ForwardReferences)
	assert.Zero(t, got.Summary.BackwardReferences)
}

func TestAnalyze_Check(t *testing.T) {
	path := fixture(t, "notes.yaml", plainYAML)

	code, out, errOut := qcd(t, "analyze", path, "--check")
	require.Equal(t, ExitOK, code, errOut)
	assert.Contains(t, out, "OK: graph invariants hold")
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    func(t *testing.T) []string
		wantErr string
	}{
		{
			name:    "missing file",
			args:    func(t *testing.T) []string { return []string{"analyze", filepath.Join(t.TempDir(), "absent.xml")} },
			wantErr: "absent.xml",
		},
		{
			name:    "unsupported format",
			args:    func(t *testing.T) []string { return []string{"analyze", fixture(t, "doc.txt", "x")} },
			wantErr: "unsupported",
		},
		{
			name:    "malformed document",
			args:    func(t *testing.T) []string { return []string{"analyze", fixture(t, "doc.xml", "<document><section>")} },
			wantErr: "analyze",
		},
		{
			name:    "no argument",
			args:    func(t *testing.T) []string { return []string{"analyze"} },
			wantErr: "accepts 1 arg",
		},
		{
			name:    "bad format",
			args:    func(t *testing.T) []string { return []string{"analyze", fixture(t, "b.xml", breadXML), "--format", "csv"} },
			wantErr: "unknown output format",
		},
		{
			name:    "bad log level",
			args:    func(t *testing.T) []string { return []string{"analyze", fixture(t, "b.xml", breadXML), "--log-level", "loud"} },
			wantErr: "invalid configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := qcd(t, tt.args(t)...)
			assert.Equal(t, ExitError, code)
			assert.Contains(t, errOut, tt.wantErr)
		})
	}
}

func TestAnalyze_Watch(t *testing.T) {
	path := fixture(t, "notes.yaml", plainYAML)
	cfgPath := filepath.Join(t.TempDir(), "qcd.yaml")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stdout, stderr lockedBuffer
	done := make(chan int, 1)
	go func() {
		done <- execute(ctx, []string{"--config", cfgPath, "analyze", path, "--watch"}, &stdout, &stderr)
	}()

	require.Eventually(t, func() bool {
		return strings.Count(stdout.String(), "# Concept graph") >= 1 &&
			strings.Contains(stderr.String(), "watching")
	}, 5*time.Second, 20*time.Millisecond)

	updated := plainYAML + `  - title: Oven
    entities:
      - text: bread
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0600))

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "sections\t3\n")
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, ExitOK, code)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
}

func TestExperiment_JSON(t *testing.T) {
	path := fixture(t, "bread.xml", breadXML)

	code, out, errOut := qcd(t, "experiment", path, "--format", "json", "--workers", "2")
	require.Equal(t, ExitOK, code, errOut)

	var report experiment.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "bread", report.Document)
	assert.Equal(t, 2, report.Total)
	assert.Len(t, report.Results, 2)
	assert.False(t, report.Truncated)
	assert.Equal(t, []string{"bread", "wheat"}, report.Original.Ordering)
}

func TestExperiment_Text(t *testing.T) {
	path := fixture(t, "bread.xml", breadXML)

	code, out, errOut := qcd(t, "experiment", path, "--top", "1")
	require.Equal(t, ExitOK, code, errOut)
	assert.Contains(t, out, "# Section-order experiment: bread")
	assert.Contains(t, out, "# Top orderings")
}

func TestExperiment_PermutationLimit(t *testing.T) {
	path := fixture(t, "bread.xml", breadXML)

	code, _, errOut := qcd(t, "experiment", path, "--max-permutations", "1")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, errOut, "permutations")

	code, out, errOut := qcd(t, "experiment", path, "--max-permutations", "1", "--truncate", "--format", "json")
	require.Equal(t, ExitOK, code, errOut)

	var report experiment.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Truncated)
	assert.Len(t, report.Results, 1)
}

func TestExperiment_Cache(t *testing.T) {
	path := fixture(t, "bread.xml", breadXML)
	cacheDir := filepath.Join(t.TempDir(), "cache")

	code, first, errOut := qcd(t, "experiment", path, "--cache", cacheDir, "--format", "json")
	require.Equal(t, ExitOK, code, errOut)

	code, second, errOut := qcd(t, "experiment", path, "--cache", cacheDir, "--format", "json")
	require.Equal(t, ExitOK, code, errOut)
	assert.Contains(t, errOut, "using cached report")

	var a, b experiment.Report
	require.NoError(t, json.Unmarshal([]byte(first), &a))
	require.NoError(t, json.Unmarshal([]byte(second), &b))
	assert.Equal(t, a.RunID, b.RunID)

	code, third, errOut := qcd(t, "experiment", path, "--cache", cacheDir, "--no-cache", "--format", "json")
	require.Equal(t, ExitOK, code, errOut)
	var c experiment.Report
	require.NoError(t, json.Unmarshal([]byte(third), &c))
	assert.NotEqual(t, a.RunID, c.RunID)
}

func TestExperiment_CacheKeyedByDocument(t *testing.T) {
	bread := fixture(t, "bread.xml", breadXML)
	rye := fixture(t, "rye.xml", breadXML)
	cacheDir := filepath.Join(t.TempDir(), "cache")

	code, first, errOut := qcd(t, "experiment", bread, "--cache", cacheDir, "--format", "json")
	require.Equal(t, ExitOK, code, errOut)

	code, second, errOut := qcd(t, "experiment", rye, "--cache", cacheDir, "--format", "json")
	require.Equal(t, ExitOK, code, errOut)
	assert.NotContains(t, errOut, "using cached report")

	var a, b experiment.Report
	require.NoError(t, json.Unmarshal([]byte(first), &a))
	require.NoError(t, json.Unmarshal([]byte(second), &b))
	assert.Equal(t, "bread", a.Document)
	assert.Equal(t, "rye", b.Document)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestExperiment_NoMark(t *testing.T) {
	path := fixture(t, "bread.xml", breadXML)

	code, out, errOut := qcd(t, "experiment", path, "--no-mark", "--no-implicit", "--format", "json")
	require.Equal(t, ExitOK, code, errOut)

	var report experiment.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Results, 2)
	for _, r := range report.Results {
		assert.Zero(t, r.ForwardReferences, "%v", r.Ordering)
		assert.Zero(t, r.BackwardReferences, "%v", r.Ordering)
	}

	code, out, errOut = qcd(t, "experiment", path, "--format", "json")
	require.Equal(t, ExitOK, code, errOut)
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Original.ForwardReferences)
}

func TestEvaluate(t *testing.T) {
	path := fixture(t, "bread.xml", breadXML)

	code, out, errOut := qcd(t, "evaluate", path)
	require.Equal(t, ExitOK, code, errOut)
	assert.Contains(t, out, "# Evaluation: bread")
	assert.Contains(t, out, "Forward References\t1.0000\t1.0000\t1.0000")

	code, out, errOut = qcd(t, "evaluate", path, "--format", "json")
	require.Equal(t, ExitOK, code, errOut)
	var got evaluateOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got.Rows, 7)
}

func TestEvaluate_OutputDir(t *testing.T) {
	path := fixture(t, "bread.xml", breadXML)
	dir := filepath.Join(t.TempDir(), "results")

	code, out, errOut := qcd(t, "evaluate", path, "--output-dir", dir)
	require.Equal(t, ExitOK, code, errOut)

	csvPath := filepath.Join(dir, "bread.csv")
	assert.Contains(t, out, "OK: wrote "+csvPath)

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "category,precision,recall,f1", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "A Priori Concepts,"), lines[1])
	assert.Equal(t, "Forward References,1,1,1", lines[4])
}

func TestEvaluate_NoAnnotations(t *testing.T) {
	path := fixture(t, "notes.yaml", plainYAML)

	code, _, errOut := qcd(t, "evaluate", path)
	assert.Equal(t, ExitError, code)
	assert.Contains(t, errOut, "no annotations")
}

func TestConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "nested", "qcd.yaml")
	var stdout, stderr bytes.Buffer

	code := execute(context.Background(), []string{"--config", cfgPath, "config", "init"}, &stdout, &stderr)
	require.Equal(t, ExitOK, code, stderr.String())
	assert.FileExists(t, cfgPath)

	stdout.Reset()
	code = execute(context.Background(), []string{"--config", cfgPath, "config", "show"}, &stdout, &stderr)
	require.Equal(t, ExitOK, code, stderr.String())
	assert.Contains(t, stdout.String(), "implicit_references: true")

	code = execute(context.Background(), []string{"--config", cfgPath, "config", "init"}, &stdout, &stderr)
	assert.Equal(t, ExitError, code)
}

func TestConfigFileApplies(t *testing.T) {
	doc := fixture(t, "bread.xml", breadXML)
	cfgPath := fixture(t, "qcd.yaml", "graph:\n  mark_references: false\n")

	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), []string{"--config", cfgPath, "analyze", doc, "--format", "json"}, &stdout, &stderr)
	require.Equal(t, ExitOK, code, stderr.String())

	var got analyzeOutput
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.Zero(t, got.Summary.ForwardReferences)
}

func TestDocumentName(t *testing.T) {
	assert.Equal(t, "bread", documentName("/tmp/x/bread.xml"))
	assert.Equal(t, "notes.v2", documentName("notes.v2.yaml"))
}
