package watcher

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"depsweep-go/pkg/logger"
)

// Unzip extracts the archive into outputDir/<archive-name> and returns
// the extracted project path. Entries that would escape the target
// directory are rejected.
func Unzip(zipPath, outputDir string) (string, error) {
	log := logger.GetLogger().WithField("component", "watcher")

	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive %s: %w", zipPath, err)
	}
	defer reader.Close()

	projectName := strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath))
	projectPath := filepath.Join(outputDir, projectName)

	for _, file := range reader.File {
		if err := extractOne(file, projectPath); err != nil {
			return "", err
		}
	}

	log.WithFields(map[string]interface{}{
		"archive": zipPath,
		"target":  projectPath,
	}).Info("Archive extracted")
	return projectPath, nil
}

func extractOne(file *zip.File, projectPath string) error {
	target := filepath.Join(projectPath, file.Name)

	// Zip-slip guard: the cleaned target must stay inside the project dir.
	if !strings.HasPrefix(target, filepath.Clean(projectPath)+string(os.PathSeparator)) {
		return fmt.Errorf("archive entry %q escapes extraction directory", file.Name)
	}

	if file.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", file.Name, err)
	}

	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to read archive entry %s: %w", file.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, file.Mode())
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to extract %s: %w", file.Name, err)
	}
	return nil
}
