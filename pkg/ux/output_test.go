// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectMode_NonTerminal(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, ModePlain, DetectMode(&buf))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, ModePlain, DetectMode(f))
}

func TestNewPrinter_BufferIsPlain(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, ModePlain, NewPrinter(&buf).Mode())
}

func TestPrinter_PlainLines(t *testing.T) {
	tests := []struct {
		name  string
		print func(p *Printer)
		want  string
	}{
		{"title", func(p *Printer) { p.Title("Heading") }, "# Heading\n"},
		{"success", func(p *Printer) { p.Success("done") }, "OK: done\n"},
		{"warning", func(p *Printer) { p.Warning("careful") }, "WARN: careful\n"},
		{"error", func(p *Printer) { p.Error("failed") }, "ERROR: failed\n"},
		{"info", func(p *Printer) { p.Info("note") }, "note\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.print(NewPrinterMode(&buf, ModePlain))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPrinter_StyledKeepsText(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterMode(&buf, ModeStyled)

	p.Title("Heading")
	p.Success("done")
	p.Warning("careful")
	p.Error("failed")
	p.Info("note")

	out := buf.String()
	for _, want := range []string{"Heading", "done", "careful", "failed", "note", string(IconSuccess), string(IconError)} {
		assert.Contains(t, out, want)
	}
}

func TestIcon_Render(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconArrow} {
		assert.Contains(t, icon.Render(), string(icon))
	}
}
