package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atlasrun/agentcore/internal/registry"
	"github.com/atlasrun/agentcore/internal/toolspec"
)

// manifestEntry is the on-disk shape of a hot-reloadable tool manifest
// file: metadata only. Its Loader always returns an error, since a JSON
// manifest can describe a tool's catalog presence but not its Go
// implementation; manifests exist so operators can adjust a tool's
// description, categories, or priority (stored on the catalog entry; neither
// search ranking nor cache eviction reads it) without restarting the
// process, not to hot-load new executable code.
type manifestEntry struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	Priority    int      `json:"priority"`
}

// scanManifestDir reads every *.json file in dir as a manifestEntry and
// converts it into a registry.Entry.
func scanManifestDir(dir string) ([]registry.Entry, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("agentcore: glob manifests: %w", err)
	}

	entries := make([]registry.Entry, 0, len(files))
	for _, f := range files {
		raw, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("agentcore: read manifest %s: %w", f, err)
		}
		var m manifestEntry
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("agentcore: decode manifest %s: %w", f, err)
		}
		name := m.Name
		entries = append(entries, registry.Entry{
			Name:        m.Name,
			Description: m.Description,
			Categories:  m.Categories,
			Priority:    m.Priority,
			Load: func() (toolspec.Tool, error) {
				return nil, fmt.Errorf("agentcore: manifest tool %q has no registered implementation", name)
			},
		})
	}
	return entries, nil
}
