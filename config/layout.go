package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

const (
	packageName      = "kf-css"
	svelteKitBaseDir = "src/lib/kf-css"
)

// Layout is project file locations resolved once on start.
type Layout struct {
	Root           string // Working directory everything is relative to
	BaseDir        string // Directory with library sources, relative to Root when detected
	Entry          string // Absolute path to style entry point
	OutDir         string // Absolute path to output directory
	BasePath       string // Absolute path to compiled base stylesheet
	ResponsivePath string // Absolute path to generated responsive stylesheet
}

// ResolveLayout determines project layout. Explicitly configured base
// directory always wins, otherwise it is detected in order: SvelteKit
// project with library copy under src/lib, the library repository itself,
// library directory or installed package.
func ResolveLayout(root string, conf *ProjectConfig) (*Layout, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve project root: %w", err)
	}

	base := conf.BaseDir
	if base == "" {
		base = detectBaseDir(root)
	}

	l := &Layout{
		Root:    root,
		BaseDir: base,
		Entry:   resolveAgainst(root, base, conf.Entry),
		OutDir:  resolveAgainst(root, base, conf.OutDir),
	}
	l.BasePath = filepath.Join(l.OutDir, conf.BaseName)
	l.ResponsivePath = filepath.Join(l.OutDir, conf.ResponsiveName)
	return l, nil
}

// Abs returns path relative to base directory as absolute path.
func (l *Layout) Abs(path string) string {
	return resolveAgainst(l.Root, l.BaseDir, path)
}

func detectBaseDir(root string) string {
	if exists(filepath.Join(root, "svelte.config.js")) && isDir(filepath.Join(root, svelteKitBaseDir)) {
		return svelteKitBaseDir
	}
	if data, err := os.ReadFile(filepath.Join(root, "package.json")); err == nil {
		if gjson.GetBytes(data, "name").String() == packageName {
			return "."
		}
	}
	if !isDir(filepath.Join(root, packageName)) {
		if installed := filepath.Join("node_modules", packageName); isDir(filepath.Join(root, installed)) {
			return installed
		}
	}
	return packageName
}

func resolveAgainst(root, base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	if filepath.IsAbs(base) {
		return filepath.Join(base, path)
	}
	return filepath.Join(root, base, path)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
