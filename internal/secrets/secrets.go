// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and contact addresses for the registries.
// Each file in the secrets directory holds one secret: the filename is the key
// name and the file contents (trimmed) are the value. A .env file may supply
// the same keys as upper-case variables (SEMANTIC_SCHOLAR_API_KEY); files win.
//
// Supported keys: semantic-scholar-api-key, openalex-email, crossref-mailto.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pdiddy/citeverify/pkg/types"
)

// Key names understood by Apply.
const (
	SemanticScholarAPIKey = "semantic-scholar-api-key"
	OpenAlexEmail         = "openalex-email"
	CrossrefMailto        = "crossref-mailto"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string, log *zap.Logger) (map[string]string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadEnv reads a dotenv file and returns its entries under file-style key
// names. A missing file yields an empty map.
func LoadEnv(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		if v = strings.TrimSpace(v); v != "" {
			out[KeyName(k)] = v
		}
	}
	return out, nil
}

// KeyName maps an environment variable name to its file-style key:
// SEMANTIC_SCHOLAR_API_KEY becomes semantic-scholar-api-key.
func KeyName(env string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(env)), "_", "-")
}

// LoadAll merges envPath under dir; a value from a file replaces the same
// key from the dotenv file.
func LoadAll(dir, envPath string, log *zap.Logger) (map[string]string, error) {
	merged, err := LoadEnv(envPath)
	if err != nil {
		return nil, err
	}
	files, err := Load(dir, log)
	if err != nil {
		return nil, err
	}
	for k, v := range files {
		merged[k] = v
	}
	return merged, nil
}

// Apply fills empty credential fields of the registry configs from s.
// Values already set in configuration are kept.
func Apply(regs []types.RegistryConfig, s map[string]string) {
	for i := range regs {
		r := &regs[i]
		switch r.Name {
		case types.RegistrySemanticScholar:
			if r.APIKey == "" {
				r.APIKey = s[SemanticScholarAPIKey]
			}
		case types.RegistryOpenAlex:
			if r.Email == "" {
				r.Email = s[OpenAlexEmail]
			}
		case types.RegistryCrossref:
			if r.Email == "" {
				r.Email = s[CrossrefMailto]
			}
		}
	}
}
