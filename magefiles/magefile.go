// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for the orphanage project using Mage.
//
// Usage:
//
//	mage build          Compile orphanage binary to bin/
//	mage test:all       Run all tests
//	mage test:postgres  Run persistence tests against ORPHANAGE_POSTGRES_DSN
//	mage reproduce      Build and run the orphan-removal scenario
//	mage lint           Run golangci-lint
//	mage clean          Remove build artifacts
//	mage install        Install orphanage to GOPATH/bin
//go:build mage

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "orphanage"
	binaryDir  = "bin"
	cmdDir     = "./cmd/orphanage"
)

// Build compiles the orphanage binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Install installs orphanage to GOPATH/bin.
func Install() error {
	return sh.RunV(binGo, "install", cmdDir)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Reproduce builds the binary and runs the scenario with both key encodings.
// The string encoding is expected to fail, so its exit status is ignored.
func Reproduce() error {
	mg.Deps(Build)
	bin := filepath.Join(binaryDir, binaryName)
	if err := sh.RunV(bin, "reproduce"); err != nil {
		return err
	}
	_ = sh.RunV(bin, "reproduce", "--key-encoding=string")
	return nil
}
