package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

// definitionExts lists the file extensions of metric definition files.
var definitionExts = []string{".yaml", ".yml"}

// Entry is the outcome of loading one definition file.
// Exactly one of Definition and Err is set.
type Entry struct {
	File       string
	Definition *core.Definition
	Err        error
}

// Label returns the metric name if the file parsed, otherwise the file name.
func (e Entry) Label() string {
	if e.Definition != nil {
		return e.Definition.Label()
	}
	return filepath.Base(e.File)
}

// Discover returns the definition files directly inside dir in lexical file-name order.
// Subdirectories are not searched.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics directory %s: %w", dir, err)
	}

	// os.ReadDir returns entries sorted by file name
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !IsDefinitionFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}

// IsDefinitionFile reports whether name has a definition file extension.
func IsDefinitionFile(name string) bool {
	for _, ext := range definitionExts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// LoadDir discovers and parses every definition file in dir.
// A file that fails to parse yields an Entry with Err set and does not stop the others.
func LoadDir(dir string) ([]Entry, error) {
	files, err := Discover(dir)
	if err != nil {
		return nil, err
	}

	result := make([]Entry, 0, len(files))
	for _, file := range files {
		def, err := ParseFile(file)
		result = append(result, Entry{File: file, Definition: def, Err: err})
	}
	return result, nil
}
