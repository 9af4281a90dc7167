// Package transfer implements the final filesystem move/copy stage,
// adapted from the teacher's internal/filesystem organizer to render
// destinations from a path-format template instead of a fixed
// destination directory.
package transfer

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mediadedupe/mediadedupe/internal/mediamodel"
)

// Organizer performs safe file operations with conflict resolution.
type Organizer struct {
	logger *logrus.Logger
}

// New builds an Organizer.
func New(logger *logrus.Logger) *Organizer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Organizer{logger: logger}
}

// RenderPath expands a path-format template against fi's metadata.
// Supported placeholders: {year} {month} {day} {basename} {ext}.
func RenderPath(template string, fi mediamodel.FileInfo) string {
	date := fi.Stats.ModTime
	if fi.Metadata.ImageDate != nil {
		date = *fi.Metadata.ImageDate
	}

	base := filepath.Base(fi.Path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	replacer := strings.NewReplacer(
		"{year}", strconv.Itoa(date.Year()),
		"{month}", fmt.Sprintf("%02d", date.Month()),
		"{day}", fmt.Sprintf("%02d", date.Day()),
		"{basename}", name,
		"{ext}", ext,
	)
	return filepath.Clean(replacer.Replace(template))
}

// Move moves sourcePath to destPath (rendered from a template by the
// caller), resolving any filename conflict at the destination.
func (o *Organizer) Move(sourcePath, destPath string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return "", fmt.Errorf("creating destination directory: %w", err)
	}
	destPath = o.resolveConflict(destPath)
	if err := os.Rename(sourcePath, destPath); err != nil {
		return "", fmt.Errorf("moving %s to %s: %w", sourcePath, destPath, err)
	}
	o.logger.Debugf("moved %s -> %s", sourcePath, destPath)
	return destPath, nil
}

// Copy copies sourcePath to destPath, resolving any filename conflict.
func (o *Organizer) Copy(sourcePath, destPath string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return "", fmt.Errorf("creating destination directory: %w", err)
	}
	destPath = o.resolveConflict(destPath)

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return "", fmt.Errorf("reading source %s: %w", sourcePath, err)
	}
	if err := os.WriteFile(destPath, data, 0644); err != nil {
		return "", fmt.Errorf("writing destination %s: %w", destPath, err)
	}
	o.logger.Debugf("copied %s -> %s", sourcePath, destPath)
	return destPath, nil
}

func (o *Organizer) resolveConflict(originalPath string) string {
	if !fileExists(originalPath) {
		return originalPath
	}

	dir := filepath.Dir(originalPath)
	base := filepath.Base(originalPath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	for i := 1; i < 1000; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", name, i, ext))
		if !fileExists(candidate) {
			return candidate
		}
	}

	timestamp := time.Now().Format("20060102_150405")
	return filepath.Join(dir, fmt.Sprintf("%s_%s%s", name, timestamp, ext))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
