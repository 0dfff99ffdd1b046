package mapbuilder

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/cortexmap/cortex/internal/mapmodel"
)

// Store persists sealed Maps to DATA_DIR/maps/<domain>.ctx.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore creates a Store rooted at dataDir/maps.
func NewStore(dataDir string, logger *zap.Logger) *Store {
	return &Store{
		dir:    filepath.Join(dataDir, "maps"),
		logger: logger,
	}
}

// Save encodes m and writes it atomically (temp file + rename), matching
// the write-then-rename pattern used elsewhere in Cortex for crash safety.
func (s *Store) Save(m *mapmodel.Map) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("mapbuilder: create maps dir: %w", err)
	}

	data, err := m.Encode()
	if err != nil {
		return fmt.Errorf("mapbuilder: encode map: %w", err)
	}

	path := s.pathFor(m.Domain)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		s.logger.Error("failed to write temp map file", zap.String("path", tempPath), zap.Error(err))
		return fmt.Errorf("mapbuilder: write temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		s.logger.Error("failed to rename temp map file", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("mapbuilder: rename temp file: %w", err)
	}

	s.logger.Debug("map persisted", zap.String("domain", m.Domain), zap.Int("bytes", len(data)))
	return nil
}

// Load reads and decodes the persisted Map for domain, if any.
func (s *Store) Load(domain string) (*mapmodel.Map, error) {
	path := s.pathFor(domain)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("mapbuilder: no persisted map for %s: %w", domain, err)
		}
		return nil, fmt.Errorf("mapbuilder: read map file: %w", err)
	}

	m, err := mapmodel.Decode(data)
	if err != nil {
		s.logger.Error("persisted map failed to decode", zap.String("domain", domain), zap.Error(err))
		return nil, err
	}
	return m, nil
}

// Delete removes the persisted Map for domain, if present.
func (s *Store) Delete(domain string) error {
	path := s.pathFor(domain)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("mapbuilder: delete map file: %w", err)
	}
	return nil
}

func (s *Store) pathFor(domain string) string {
	return filepath.Join(s.dir, domain+".ctx")
}
