package drestclient

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dynamic-rest/drest-go/internal/constants"
	"github.com/dynamic-rest/drest-go/pkg/drest"
)

// LoadMocksFile reads a YAML fixture of mock records grouped by resource
// name, suitable for drest.Config.Mocks:
//
//	users:
//	  - id: 1
//	    name: ada
//	groups:
//	  - id: 1
//	    name: staff
func LoadMocksFile(path string) (map[string][]drest.Fields, error) {
	cleaned, err := validateMocksPath(path)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(cleaned) // #nosec G304 -- path validated above
	if err != nil {
		return nil, fmt.Errorf("reading mocks file: %w", err)
	}

	var mocks map[string][]drest.Fields

	err = yaml.Unmarshal(raw, &mocks)
	if err != nil {
		return nil, fmt.Errorf("parsing mocks file %s: %w", cleaned, err)
	}

	return mocks, nil
}

// validateMocksPath validates that a fixture path is safe to read.
func validateMocksPath(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yml" && ext != ".yaml" {
		return "", fmt.Errorf("%w: %s", constants.ErrMockFileNotSupported, ext)
	}

	// Clean the path to resolve any path traversal attempts
	cleaned := filepath.Clean(path)

	if filepath.IsAbs(path) {
		if cleaned != path {
			return "", constants.ErrDirectoryTraversalDetected
		}
	} else if strings.HasPrefix(cleaned, "..") {
		return "", constants.ErrDirectoryTraversalDetected
	}

	info, err := os.Stat(cleaned)
	if err != nil {
		return "", fmt.Errorf("mocks file not accessible: %w", err)
	}

	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", constants.ErrNotRegularFile, cleaned)
	}

	return cleaned, nil
}
