// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets.
type Test mg.Namespace

// All runs all tests.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-v", "./...")
}

// Race runs all tests with the race detector.
func (Test) Race() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Postgres runs the persistence tests against the database named by
// ORPHANAGE_POSTGRES_DSN.
func (Test) Postgres() error {
	if os.Getenv("ORPHANAGE_POSTGRES_DSN") == "" {
		fmt.Println("ORPHANAGE_POSTGRES_DSN is not set; skipping.")
		return nil
	}
	return sh.RunV(binGo, "test", "-v", "-run", "Postgres", "./internal/persist/...")
}
