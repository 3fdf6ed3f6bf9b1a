package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/zhubert/navgroup/deeplink"
	"github.com/zhubert/navgroup/group"
	"github.com/zhubert/navgroup/groupstore"
	"github.com/zhubert/navgroup/paths"
)

// DefaultStoreBackend is used when store_backend is not set. SQLite is the
// only backend that several processes can share safely.
const DefaultStoreBackend = groupstore.KindSQLite

// MaxCloseDelay bounds close_delay_ms.
const MaxCloseDelay = time.Minute

// Config holds the application configuration
type Config struct {
	StoreBackend   string   `json:"store_backend,omitempty"`    // "memory", "file" or "sqlite"
	StorePath      string   `json:"store_path,omitempty"`       // Store file; defaults per backend under the data dir
	CloseDelayMS   int      `json:"close_delay_ms,omitempty"`   // Delay between posting a result and closing (default 5)
	Launcher       string   `json:"launcher,omitempty"`         // Command that opens a URL (default open / xdg-open)
	LauncherArgs   []string `json:"launcher_args,omitempty"`    // Arguments placed before the URL
	DevHostRewrite *bool    `json:"dev_host_rewrite,omitempty"` // Point wrapped targets at a dev host (default true)
	HostRulesFile  string   `json:"host_rules_file,omitempty"`  // YAML host rules; defaults to hosts.yaml in the config dir
	OrphanEviction bool     `json:"orphan_eviction,omitempty"`  // Opener evicts the store of children that vanish
	Debug          bool     `json:"debug,omitempty"`            // Debug logging

	mu       sync.RWMutex
	filePath string
}

// Load reads the config from disk, or creates a new one if it doesn't exist
func Load() (*Config, error) {
	path, err := paths.ConfigFilePath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom is Load from an explicit path.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{filePath: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the config is internally consistent.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.StoreBackend != "" && !groupstore.Kind(c.StoreBackend).Valid() {
		return fmt.Errorf("unknown store backend: %q", c.StoreBackend)
	}
	if c.StoreBackend == string(groupstore.KindMemory) && c.StorePath != "" {
		return fmt.Errorf("store_path is not used by the memory backend")
	}
	if c.CloseDelayMS < 0 {
		return fmt.Errorf("close_delay_ms must not be negative: %d", c.CloseDelayMS)
	}
	if time.Duration(c.CloseDelayMS)*time.Millisecond > MaxCloseDelay {
		return fmt.Errorf("close_delay_ms exceeds %s: %d", MaxCloseDelay, c.CloseDelayMS)
	}
	if c.Launcher != "" && strings.TrimSpace(c.Launcher) == "" {
		return fmt.Errorf("launcher is blank")
	}
	if c.StorePath != "" && c.HostRulesFile != "" && SamePath(c.StorePath, c.HostRulesFile) {
		return fmt.Errorf("store_path and host_rules_file point at the same file: %s", c.StorePath)
	}

	return nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.filePath), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.filePath, data, 0644)
}

// SetFilePath sets the config file path (for testing).
func (c *Config) SetFilePath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filePath = path
}

// FilePath returns where the config is saved.
func (c *Config) FilePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filePath
}

// GetStoreBackend returns the configured backend, defaulting to SQLite
func (c *Config) GetStoreBackend() groupstore.Kind {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.StoreBackend == "" {
		return DefaultStoreBackend
	}
	return groupstore.Kind(c.StoreBackend)
}

// SetStoreBackend sets the backend. An empty kind restores the default.
func (c *Config) SetStoreBackend(kind groupstore.Kind) error {
	if kind != "" && !kind.Valid() {
		return fmt.Errorf("unknown store backend: %q", kind)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.StoreBackend = string(kind)
	return nil
}

// GetStorePath returns the store location for the configured backend.
// The memory backend has no location.
func (c *Config) GetStorePath() (string, error) {
	kind := c.GetStoreBackend()

	c.mu.RLock()
	custom := c.StorePath
	c.mu.RUnlock()

	switch {
	case kind == groupstore.KindMemory:
		return "", nil
	case custom != "":
		return custom, nil
	case kind == groupstore.KindFile:
		return paths.StoreFilePath()
	default:
		return paths.StoreDBPath()
	}
}

// SetStorePath overrides the store location
func (c *Config) SetStorePath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.StorePath = path
}

// OpenStore opens the group store described by the config.
func (c *Config) OpenStore() (*groupstore.Store, error) {
	path, err := c.GetStorePath()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	return groupstore.Open(c.GetStoreBackend(), path)
}

// GetCloseDelay returns how long a closing group waits before tearing its
// context down
func (c *Config) GetCloseDelay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.CloseDelayMS <= 0 {
		return group.DefaultCloseDelay
	}
	return time.Duration(c.CloseDelayMS) * time.Millisecond
}

// SetCloseDelay sets the close delay, rounded down to milliseconds
func (c *Config) SetCloseDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CloseDelayMS = int(d / time.Millisecond)
}

// GetLauncher returns the command and leading arguments used to open URLs
func (c *Config) GetLauncher() (string, []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	args := make([]string, len(c.LauncherArgs))
	copy(args, c.LauncherArgs)

	if c.Launcher != "" {
		return c.Launcher, args
	}
	return DefaultLauncher(), args
}

// SetLauncher sets the launch command
func (c *Config) SetLauncher(name string, args ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Launcher = name
	c.LauncherArgs = args
}

// DefaultLauncher returns the platform's URL opener.
func DefaultLauncher() string {
	if runtime.GOOS == "darwin" {
		return "open"
	}
	return "xdg-open"
}

// GetDevHostRewrite returns whether wrapped targets are pointed at a dev host
func (c *Config) GetDevHostRewrite() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.DevHostRewrite == nil || *c.DevHostRewrite
}

// SetDevHostRewrite sets whether wrapped targets are pointed at a dev host
func (c *Config) SetDevHostRewrite(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.DevHostRewrite = &enabled
}

// GetHostRulesFile returns the host rules path
func (c *Config) GetHostRulesFile() (string, error) {
	c.mu.RLock()
	custom := c.HostRulesFile
	c.mu.RUnlock()

	if custom != "" {
		return custom, nil
	}
	return paths.HostRulesFilePath()
}

// SetHostRulesFile overrides the host rules path
func (c *Config) SetHostRulesFile(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.HostRulesFile = path
}

// LoadHostRules reads the host rules file. A missing file means no rules.
func (c *Config) LoadHostRules() (*deeplink.Rules, error) {
	path, err := c.GetHostRulesFile()
	if err != nil {
		return nil, err
	}
	return deeplink.LoadRules(path)
}

// GetOrphanEviction returns whether openers evict the stores of vanished children
func (c *Config) GetOrphanEviction() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.OrphanEviction
}

// SetOrphanEviction sets whether openers evict the stores of vanished children
func (c *Config) SetOrphanEviction(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.OrphanEviction = enabled
}

// GetDebug returns whether debug logging is enabled
func (c *Config) GetDebug() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Debug
}

// SetDebug sets whether debug logging is enabled
func (c *Config) SetDebug(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Debug = enabled
}
