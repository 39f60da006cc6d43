package connectivity

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ScansFile lists the scan ids available in a connectivity directory.
const ScansFile = "scans.txt"

// Source loads the graph of a scan. Loading may block on I/O.
type Source interface {
	LoadGraph(ctx context.Context, scanID string) (*Graph, error)
}

// DirSource reads <dir>/<scan>_connectivity.json files.
type DirSource struct {
	dir string
}

// NewDirSource creates a source rooted at a connectivity directory.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// Dir returns the connectivity directory.
func (s *DirSource) Dir() string {
	return s.dir
}

// GraphPath returns the connectivity file path of a scan.
func (s *DirSource) GraphPath(scanID string) string {
	return filepath.Join(s.dir, scanID+"_connectivity.json")
}

// LoadGraph reads and validates the connectivity file of a scan.
func (s *DirSource) LoadGraph(ctx context.Context, scanID string) (*Graph, error) {
	if err := ValidateScanID(scanID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.GraphPath(scanID)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrIOFailure, path, err)
	}
	defer f.Close()

	var records []Record
	if err := json.NewDecoder(f).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrIOFailure, path, err)
	}

	return NewGraph(scanID, records)
}

// ScanIDs returns the scan ids listed in scans.txt, in file order.
func (s *DirSource) ScanIDs() ([]string, error) {
	path := filepath.Join(s.dir, ScansFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrIOFailure, path, err)
	}
	return strings.Fields(string(data)), nil
}

// ValidateScanID rejects ids that could escape the connectivity directory.
func ValidateScanID(scanID string) error {
	if scanID == "" {
		return fmt.Errorf("%w: empty scan id", ErrIOFailure)
	}
	if strings.ContainsAny(scanID, `/\`) || strings.Contains(scanID, "..") {
		return fmt.Errorf("%w: invalid scan id %q", ErrIOFailure, scanID)
	}
	return nil
}
