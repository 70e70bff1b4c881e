// Package bundle packages a scaffold manifest as a zip archive.
package bundle

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/iammorganparry/forgepilot/internal/model"
)

// DefaultProjectName names the archive when the caller gives none
const DefaultProjectName = "forgepilot_scaffold"

// ErrEmptyManifest is returned when there is nothing to package
var ErrEmptyManifest = errors.New("manifest has no files")

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeName turns a project name into something safe to use as a file
// name. Empty results fall back to DefaultProjectName.
func SanitizeName(name string) string {
	name = unsafeName.ReplaceAllString(strings.TrimSpace(name), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return DefaultProjectName
	}
	return name
}

// EntryName maps a manifest key onto a relative, slash-separated archive
// path. Keys that escape the archive root are rejected.
func EntryName(key string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == "." {
		return "", fmt.Errorf("invalid file name %q", key)
	}
	return clean, nil
}

// Build writes every manifest file into a zip archive, in manifest order
func Build(manifest model.Manifest) ([]byte, error) {
	if manifest.Len() == 0 {
		return nil, ErrEmptyManifest
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	modified := time.Now()

	for _, key := range manifest.Keys() {
		name, err := EntryName(key)
		if err != nil {
			return nil, err
		}
		content, _ := manifest.Get(key)

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, fmt.Errorf("add %s: %w", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes archive data to <dir>/<projectName>.zip and returns the path
func Save(dir, projectName string, data []byte) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	dest := filepath.Join(dir, SanitizeName(projectName)+".zip")
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("save bundle: %w", err)
	}
	return dest, nil
}
