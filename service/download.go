package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/browser"
)

// Saver persists a downloaded report and returns where it ended up.
type Saver interface {
	Save(ctx context.Context, fileName string, data []byte) (string, error)
}

// Opener shows a report to the user.
type Opener interface {
	Open(ctx context.Context, fileName string, data []byte) error
}

// FileSaver writes reports into a local directory.
type FileSaver struct {
	Dir string
}

// Save writes data to Dir/fileName. Directory components in fileName are
// ignored.
func (s FileSaver) Save(_ context.Context, fileName string, data []byte) (string, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download dir: %w", err)
	}
	target := filepath.Join(dir, safeFileName(fileName))
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return target, nil
}

func safeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "report.pdf"
	}
	return name
}

// MultiSaver saves to every saver in turn and returns the first location.
// It stops at the first failure.
type MultiSaver []Saver

func (m MultiSaver) Save(ctx context.Context, fileName string, data []byte) (string, error) {
	var first string
	for i, s := range m {
		loc, err := s.Save(ctx, fileName, data)
		if err != nil {
			return first, err
		}
		if i == 0 {
			first = loc
		}
	}
	return first, nil
}

// SystemOpener writes the report to a temporary file and opens it with the
// system viewer.
type SystemOpener struct {
	TempDir string
	open    func(path string) error
}

func (o SystemOpener) Open(_ context.Context, fileName string, data []byte) error {
	dir, err := os.MkdirTemp(o.TempDir, "icornet-view-")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	target := filepath.Join(dir, safeFileName(fileName))
	if err := os.WriteFile(target, data, 0o600); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	open := o.open
	if open == nil {
		open = browser.OpenFile
	}
	if err := open(target); err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}
	return nil
}
