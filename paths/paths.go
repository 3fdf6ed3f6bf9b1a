// Package paths resolves where navgroup keeps its files.
//
//   - Config (XDG_CONFIG_HOME): config.json, hosts.yaml
//   - Data (XDG_DATA_HOME): store.json or store.db, the persisted group stores
//   - State (XDG_STATE_HOME): logs/
//
// When none of the XDG variables are set everything lives under ~/.navgroup/.
// NAVGROUP_HOME overrides both layouts and is mostly useful in tests and CI.
package paths

import (
	"os"
	"path/filepath"
	"sync"
)

// HomeEnv names the environment variable that pins every directory to one root.
const HomeEnv = "NAVGROUP_HOME"

var (
	mu       sync.Mutex
	resolved *resolvedPaths
)

type resolvedPaths struct {
	configDir string
	dataDir   string
	stateDir  string
	flat      bool
}

// resolve computes the path layout once and caches it.
func resolve() (*resolvedPaths, error) {
	mu.Lock()
	defer mu.Unlock()

	if resolved != nil {
		return resolved, nil
	}

	if root := os.Getenv(HomeEnv); root != "" {
		resolved = flatLayout(root)
		return resolved, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	xdgData := os.Getenv("XDG_DATA_HOME")
	xdgState := os.Getenv("XDG_STATE_HOME")

	if xdgConfig == "" && xdgData == "" && xdgState == "" {
		resolved = flatLayout(filepath.Join(home, ".navgroup"))
		return resolved, nil
	}

	// Fill in XDG defaults for whichever variables are unset
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	if xdgData == "" {
		xdgData = filepath.Join(home, ".local", "share")
	}
	if xdgState == "" {
		xdgState = filepath.Join(home, ".local", "state")
	}
	resolved = &resolvedPaths{
		configDir: filepath.Join(xdgConfig, "navgroup"),
		dataDir:   filepath.Join(xdgData, "navgroup"),
		stateDir:  filepath.Join(xdgState, "navgroup"),
	}
	return resolved, nil
}

func flatLayout(root string) *resolvedPaths {
	return &resolvedPaths{
		configDir: root,
		dataDir:   root,
		stateDir:  root,
		flat:      true,
	}
}

// ConfigDir returns the directory for configuration files.
func ConfigDir() (string, error) {
	r, err := resolve()
	if err != nil {
		return "", err
	}
	return r.configDir, nil
}

// DataDir returns the directory for persistent data files.
func DataDir() (string, error) {
	r, err := resolve()
	if err != nil {
		return "", err
	}
	return r.dataDir, nil
}

// StateDir returns the directory for runtime state and logs.
func StateDir() (string, error) {
	r, err := resolve()
	if err != nil {
		return "", err
	}
	return r.stateDir, nil
}

// ConfigFilePath returns the full path to config.json.
func ConfigFilePath() (string, error) {
	return joinConfig("config.json")
}

// HostRulesFilePath returns the default location of the deep link host rules.
func HostRulesFilePath() (string, error) {
	return joinConfig("hosts.yaml")
}

// StoreFilePath returns the JSON file used by the file-backed group store.
func StoreFilePath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "store.json"), nil
}

// StoreDBPath returns the sqlite database used by the sqlite-backed group store.
func StoreDBPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "store.db"), nil
}

// LogsDir returns the directory for log files.
func LogsDir() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "logs"), nil
}

// IsFlatLayout returns true if every directory resolves to the same root.
func IsFlatLayout() bool {
	r, err := resolve()
	if err != nil {
		return true
	}
	return r.flat
}

// Reset clears the cached path resolution. This is intended for testing only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	resolved = nil
}

func joinConfig(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
