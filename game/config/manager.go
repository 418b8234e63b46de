package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/gridsnake/game/service"
)

var (
	ErrCatalogNotFound = errors.New("catalog not found")
	ErrInvalidCatalog  = errors.New("invalid catalog")
)

// DefaultName is the catalog picked up as the default when present on disk
const DefaultName = "default"

var extensions = []string{".json", ".yaml", ".yml"}

// Manager handles message catalog loading and caching
type Manager struct {
	catalogDir     string
	defaultCatalog *service.Catalog
	catalogs       map[string]*service.Catalog
	mu             sync.RWMutex
}

// NewManager creates a catalog manager over a directory of .json/.yaml files
func NewManager(catalogDir string) (*Manager, error) {
	if _, err := os.Stat(catalogDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("catalog directory does not exist: %s", catalogDir)
	}

	m := &Manager{
		catalogDir: catalogDir,
		catalogs:   make(map[string]*service.Catalog),
	}

	if err := m.loadDefaultCatalog(); err != nil {
		return nil, fmt.Errorf("failed to load default catalog: %w", err)
	}

	return m, nil
}

// NewBuiltinManager creates a manager that only knows the built-in catalog
func NewBuiltinManager() *Manager {
	return &Manager{
		defaultCatalog: DefaultCatalog(),
		catalogs:       make(map[string]*service.Catalog),
	}
}

// LoadCatalog loads a catalog by name. Fields missing from the file keep
// their built-in values.
func (m *Manager) LoadCatalog(name string) (*service.Catalog, error) {
	m.mu.RLock()
	if c, exists := m.catalogs[name]; exists {
		m.mu.RUnlock()
		return c, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if c, exists := m.catalogs[name]; exists {
		return c, nil
	}

	if m.catalogDir == "" {
		if name == DefaultName {
			return m.defaultCatalog, nil
		}
		return nil, ErrCatalogNotFound
	}

	path, ok := m.findFile(name)
	if !ok {
		return nil, ErrCatalogNotFound
	}

	c, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	if c.Name == "" {
		c.Name = catalogID(filepath.Base(path))
	}

	m.catalogs[name] = c
	return c, nil
}

// ParseFile decodes and validates one catalog file
func ParseFile(path string) (*service.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCatalogNotFound
		}
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	c := DefaultCatalog()
	c.Name = ""
	c.Description = ""

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", filepath.Base(path), err)
	}

	if err := ValidateCatalog(c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return c, nil
}

// ListCatalogs returns information about every valid catalog on disk
func (m *Manager) ListCatalogs() ([]*service.CatalogInfo, error) {
	if m.catalogDir == "" {
		c := m.GetDefault()
		return []*service.CatalogInfo{{CatalogID: DefaultName, Name: c.Name, Description: c.Description}}, nil
	}

	entries, err := os.ReadDir(m.catalogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog directory: %w", err)
	}

	var infos []*service.CatalogInfo
	for _, entry := range entries {
		if entry.IsDir() || !supported(entry.Name()) {
			continue
		}

		id := catalogID(entry.Name())
		c, err := m.LoadCatalog(id)
		if err != nil {
			log.Debug().Err(err).Str("file", entry.Name()).Msg("Skipping invalid catalog")
			continue
		}

		infos = append(infos, &service.CatalogInfo{
			Filename:    entry.Name(),
			CatalogID:   id,
			Name:        c.Name,
			Description: c.Description,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].CatalogID < infos[j].CatalogID })
	return infos, nil
}

// GetDefault returns the default catalog
func (m *Manager) GetDefault() *service.Catalog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultCatalog
}

// SetDefault sets the default catalog by name
func (m *Manager) SetDefault(name string) error {
	c, err := m.LoadCatalog(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultCatalog = c
	return nil
}

// RefreshCache drops cached catalogs and reloads the default from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.catalogs = make(map[string]*service.Catalog)
	m.mu.Unlock()

	return m.loadDefaultCatalog()
}

// SaveCatalog validates and writes a catalog. A name ending in .yaml or .yml
// is written as YAML, anything else as JSON.
func (m *Manager) SaveCatalog(name string, c *service.Catalog) error {
	if err := ValidateCatalog(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if m.catalogDir == "" {
		return fmt.Errorf("no catalog directory configured")
	}

	filename := name
	if !supported(filename) {
		filename = name + ".json"
	}

	var (
		data []byte
		err  error
	)
	switch filepath.Ext(filename) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.catalogDir, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}

	m.mu.Lock()
	m.catalogs[catalogID(filename)] = c
	m.mu.Unlock()

	return nil
}

// loadDefaultCatalog uses default.{json,yaml} when present, the built-in texts otherwise
func (m *Manager) loadDefaultCatalog() error {
	c, err := m.LoadCatalog(DefaultName)
	switch {
	case err == nil:
	case errors.Is(err, ErrCatalogNotFound):
		c = DefaultCatalog()
	default:
		return err
	}

	m.mu.Lock()
	m.defaultCatalog = c
	m.mu.Unlock()
	return nil
}

func (m *Manager) findFile(name string) (string, bool) {
	candidates := []string{name}
	if !supported(name) {
		candidates = candidates[:0]
		for _, ext := range extensions {
			candidates = append(candidates, name+ext)
		}
	}

	for _, candidate := range candidates {
		path := filepath.Join(m.catalogDir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

func supported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// catalogID strips the extension from a catalog filename
func catalogID(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
