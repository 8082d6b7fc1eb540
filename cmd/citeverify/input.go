// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/citeverify/pkg/types"
)

// citationFile is the wrapped input form: {citations: [...]}.
type citationFile struct {
	Citations []types.Citation `json:"citations" yaml:"citations"`
}

// readCitations loads a YAML or JSON citation list. The file may hold a bare
// list or a document with a top-level citations key. Entries without a key
// are numbered by position; repeated keys are an error.
func readCitations(path string) ([]types.Citation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading citations: %w", err)
	}

	var cits []types.Citation
	if strings.EqualFold(filepath.Ext(path), ".json") {
		cits, err = decodeJSON(data)
	} else {
		cits, err = decodeYAML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	seen := make(map[string]int, len(cits))
	for i := range cits {
		c := &cits[i]
		c.Key = strings.TrimSpace(c.Key)
		if c.Key == "" {
			c.Key = fmt.Sprintf("#%d", i+1)
		}
		if prev, dup := seen[c.Key]; dup {
			return nil, fmt.Errorf("citation key %q repeated at entries %d and %d", c.Key, prev+1, i+1)
		}
		seen[c.Key] = i
	}
	return cits, nil
}

func decodeJSON(data []byte) ([]types.Citation, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var f citationFile
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return nil, err
		}
		return f.Citations, nil
	}
	var cits []types.Citation
	if err := json.Unmarshal(trimmed, &cits); err != nil {
		return nil, err
	}
	return cits, nil
}

func decodeYAML(data []byte) ([]types.Citation, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	if node.Content[0].Kind == yaml.MappingNode {
		var f citationFile
		if err := node.Decode(&f); err != nil {
			return nil, err
		}
		return f.Citations, nil
	}
	var cits []types.Citation
	if err := node.Decode(&cits); err != nil {
		return nil, err
	}
	return cits, nil
}
