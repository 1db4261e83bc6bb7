package evidence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/linnemanlabs/incidentd/internal/incident"
)

// Package is the single evidence document attached to a triage session.
// It is owned exclusively by one run, written once, and never mutated.
type Package struct {
	Incident    *incident.Incident `json:"incident"`
	Commits     []string           `json:"commits"`
	DiffSummary string             `json:"diffSummary"`
	BaseSHA     string             `json:"baseSha"`
	HeadSHA     string             `json:"headSha"`
	Logs        LogsResult         `json:"logs"`
}

// PackageResult locates a written evidence package on disk.
type PackageResult struct {
	// Dir is the per-incident working directory (bundling input).
	Dir string

	// EvidencePath is the evidence.json inside Dir.
	EvidencePath string

	Evidence *Package
}

// WritePackage assembles the evidence document and writes it to a fresh
// working directory keyed by incident ID under workRoot. Distinct incidents
// can never collide because IDs are generated fresh per run.
func WritePackage(workRoot string, inc *incident.Incident, commits CommitInfo, logs LogsResult) (*PackageResult, error) {
	pkg := &Package{
		Incident:    inc,
		Commits:     commits.Commits,
		DiffSummary: commits.DiffSummary,
		BaseSHA:     commits.BaseSHA,
		HeadSHA:     commits.HeadSHA,
		Logs:        logs,
	}

	dir := filepath.Join(workRoot, "incident-triage-"+inc.ID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create evidence dir: %w", err)
	}

	evidencePath := filepath.Join(dir, "evidence.json")
	if err := writeJSON(evidencePath, pkg); err != nil {
		return nil, fmt.Errorf("write evidence.json: %w", err)
	}

	return &PackageResult{
		Dir:          dir,
		EvidencePath: evidencePath,
		Evidence:     pkg,
	}, nil
}

// ReadPackage reads an evidence document back from disk.
func ReadPackage(evidencePath string) (*Package, error) {
	data, err := os.ReadFile(evidencePath)
	if err != nil {
		return nil, fmt.Errorf("read evidence: %w", err)
	}
	var pkg Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parse evidence: %w", err)
	}
	return &pkg, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o640)
}
