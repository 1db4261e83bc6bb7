package evidence

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// LogsResult is the log slice of an evidence package. Entries are
// heterogeneous key/value records; timestamp, level, service, and message
// are common keys but none is required.
type LogsResult struct {
	Entries []map[string]any `json:"entries"`
}

// LoadLogs resolves scenarioOrPath either as a direct file path or as a
// named fixture under <fixturesRoot>/logs/<scenario>.json.
//
// Log availability is best-effort context, not a pipeline precondition:
// missing or unreadable files yield an empty result, never an error.
func LoadLogs(scenarioOrPath, fixturesRoot string) LogsResult {
	empty := LogsResult{Entries: []map[string]any{}}

	path := scenarioOrPath
	if _, err := os.Stat(path); err != nil {
		path = filepath.Join(fixturesRoot, "logs", scenarioOrPath+".json")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return empty
	}

	var result LogsResult
	if err := json.Unmarshal(data, &result); err != nil {
		return empty
	}
	if result.Entries == nil {
		result.Entries = []map[string]any{}
	}
	return result
}
