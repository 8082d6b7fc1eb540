//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Verify builds the CLI and checks the citations in file.
func Verify(file string) error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "verify", file)
}

// Purge builds the CLI and removes expired cache entries.
func Purge() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "cache", "purge")
}
