// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads repository API tokens from a directory of plain-text
// files. Each file in the directory represents one secret: the filename is
// the key name and the file contents (trimmed) are the value. Environment
// variables override files.
//
// Supported key files: github-token, zenodo-token, figshare-token.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/dataset-engine/internal/logging"
)

// Known maps each supported secret to the environment variables that
// override it, in priority order.
var Known = map[string][]string{
	"github-token":   {"DATASET_ENGINE_GITHUB_TOKEN", "GITHUB_TOKEN"},
	"zenodo-token":   {"DATASET_ENGINE_ZENODO_TOKEN", "ZENODO_TOKEN"},
	"figshare-token": {"DATASET_ENGINE_FIGSHARE_TOKEN", "FIGSHARE_TOKEN"},
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string, log logging.Logger) (map[string]string, error) {
	log = logging.OrNop(log)
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
			log.Warn("could not read secret", logging.String("name", name), logging.Err(err))
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// ApplyEnv overlays environment overrides for the Known secrets onto
// secrets, using lookup (os.LookupEnv in production). Empty variables are
// ignored.
func ApplyEnv(secrets map[string]string, lookup func(string) (string, bool)) map[string]string {
	if secrets == nil {
		secrets = make(map[string]string)
	}
	for name, vars := range Known {
		for _, v := range vars {
			if val, ok := lookup(v); ok && strings.TrimSpace(val) != "" {
				secrets[name] = strings.TrimSpace(val)
				break
			}
		}
	}
	return secrets
}
