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
	"fmt"
	"path/filepath"
	"strings"
)

// Open returns the entity source for the document at path, chosen by file
// extension: .xml for XML, .yaml or .yml for YAML.
func Open(path string, opts ...Option) (EntitySource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return NewXMLSource(path, opts...), nil
	case ".yaml", ".yml":
		return NewYAMLSource(path, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}
