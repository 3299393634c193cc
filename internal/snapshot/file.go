package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/taxonomy-import/internal/core"
)

// FileSource reads a snapshot exported to a JSON or YAML file. The format
// is chosen by extension (.yaml/.yml, anything else is JSON).
type FileSource struct {
	Path string
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Load implements Source.
func (s *FileSource) Load(ctx context.Context) (core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.Path)
		}
		return nil, fmt.Errorf("read snapshot %s: %w", s.Path, err)
	}

	if isYAML(s.Path) {
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("decode snapshot %s: %w", s.Path, err)
		}
	}

	entities, _, err := DecodeEntities(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}

	snap, skipped := Build(entities)
	if skipped > 0 {
		slog.Warn("snapshot entities without urn skipped", "path", s.Path, "skipped", skipped)
	}
	slog.Debug("snapshot loaded", "path", s.Path, "entities", len(snap))
	return snap, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// yamlToJSON re-encodes a YAML document as JSON so both formats share one
// decoder.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}
