//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Download fetches every reference file under refs/ into datasets/.
func Download() error {
	mg.Deps(Build)

	files, err := filepath.Glob(filepath.Join("refs", "*.yaml"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("[download] No reference files in refs/; run mage extract first.")
		return nil
	}
	for _, f := range files {
		if err := sh.RunV(binPath, "download", "--refs", f); err != nil {
			return fmt.Errorf("downloading %s: %w", f, err)
		}
	}
	return nil
}
