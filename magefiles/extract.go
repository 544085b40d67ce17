//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Extract scans every article under papers/ (HTML, text or PDF) and writes
// the dataset references to refs/<name>.yaml.
func Extract() error {
	mg.Deps(Build)

	entries, err := os.ReadDir("papers")
	if err != nil {
		return fmt.Errorf("reading papers/: %w", err)
	}
	if err := os.MkdirAll("refs", 0o755); err != nil {
		return fmt.Errorf("creating refs/: %w", err)
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || !isArticle(e.Name()) {
			continue
		}
		in := filepath.Join("papers", e.Name())
		out := filepath.Join("refs", strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))+".yaml")
		if err := sh.RunV(binPath, "extract", in, "--out", out); err != nil {
			return fmt.Errorf("extracting %s: %w", in, err)
		}
		n++
	}
	fmt.Printf("[extract] %d article(s) scanned.\n", n)
	return nil
}

func isArticle(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm", ".txt", ".pdf":
		return true
	}
	return false
}
