package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// fixtureRef is one signal fixture discovered under <fixtures>/signals/.
type fixtureRef struct {
	Source string // subdirectory name: prometheus, deploy, posthog, github
	Name   string // file name without the .json extension
	Path   string
}

// demoScenario binds a named demo to a signal fixture and the log scenario
// loaded alongside it.
type demoScenario struct {
	Source  string
	Fixture string
}

// demoScenarios are the canned end-to-end runs offered by `run --demo`.
// The key doubles as the log fixture scenario name.
var demoScenarios = map[string]demoScenario{
	"high-error-rate": {Source: "prometheus", Fixture: "high-error-rate"},
	"latency-spike":   {Source: "prometheus", Fixture: "latency-spike"},
	"deploy-failure":  {Source: "deploy", Fixture: "vercel-build-failure"},
}

// demoNames returns the demo scenario names in stable order.
func demoNames() []string {
	names := make([]string, 0, len(demoScenarios))
	for name := range demoScenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// listFixtures walks <fixtures>/signals/<source>/*.json and returns the
// discovered fixtures sorted by source then name.
func listFixtures(fixturesDir string) ([]fixtureRef, error) {
	signalsDir := filepath.Join(fixturesDir, "signals")
	sources, err := os.ReadDir(signalsDir)
	if err != nil {
		return nil, fmt.Errorf("read fixtures dir %s: %w", signalsDir, err)
	}

	var refs []fixtureRef
	for _, src := range sources {
		if !src.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(signalsDir, src.Name()))
		if err != nil {
			return nil, fmt.Errorf("read fixtures dir %s: %w", filepath.Join(signalsDir, src.Name()), err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}
			refs = append(refs, fixtureRef{
				Source: src.Name(),
				Name:   strings.TrimSuffix(e.Name(), ".json"),
				Path:   filepath.Join(signalsDir, src.Name(), e.Name()),
			})
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Source != refs[j].Source {
			return refs[i].Source < refs[j].Source
		}
		return refs[i].Name < refs[j].Name
	})
	return refs, nil
}

// findFixture locates a fixture by name across all signal sources. Names may
// be qualified as <source>/<name> to disambiguate.
func findFixture(fixturesDir, name string) (fixtureRef, error) {
	wantSource := ""
	if src, rest, ok := strings.Cut(name, "/"); ok {
		wantSource, name = src, rest
	}

	refs, err := listFixtures(fixturesDir)
	if err != nil {
		return fixtureRef{}, err
	}
	for _, ref := range refs {
		if ref.Name != name {
			continue
		}
		if wantSource != "" && ref.Source != wantSource {
			continue
		}
		return ref, nil
	}
	return fixtureRef{}, fmt.Errorf("fixture %q not found under %s", name, filepath.Join(fixturesDir, "signals"))
}

// loadFixturePayload reads a fixture file and verifies it holds valid JSON.
func loadFixturePayload(ref fixtureRef) (json.RawMessage, error) {
	data, err := os.ReadFile(ref.Path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", ref.Path, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("fixture %s is not valid JSON", ref.Path)
	}
	return data, nil
}
