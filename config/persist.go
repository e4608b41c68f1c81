package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/emberline/curator/errors"
)

// createBackup creates rotating backups (.back1, .back2, .back3) before modifying config
func createBackup(configPath string) error {
	// Check if file exists before backing up
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil // No file to backup
	}

	// Rotate backups: .back3 -> delete, .back2 -> .back3, .back1 -> .back2, current -> .back1
	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	// Delete oldest backup if exists
	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		// Log deletion failures (but don't fail config save)
		fmt.Printf("⚠️  Failed to delete old backup %s: %v\n", back3, err)
	}

	// Rotate .back2 to .back3
	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}

	// Rotate .back1 to .back2
	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	// Copy current to .back1
	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}

	if err := os.WriteFile(back1, content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}

	return nil
}

// loadOrInitializeUserConfig loads the user config file, or starts an empty one
func loadOrInitializeUserConfig() (map[string]interface{}, string, error) {
	configPath := GetUserConfigPath()
	if configPath == "" {
		return nil, "", errors.New("could not determine home directory")
	}

	// Ensure ~/.curator directory exists
	curatorDir := filepath.Dir(configPath)
	if err := os.MkdirAll(curatorDir, 0750); err != nil {
		return nil, "", errors.Wrap(err, "failed to create .curator directory")
	}

	// Try to read existing config
	var config map[string]interface{}
	if data, err := os.ReadFile(configPath); err == nil {
		// File exists, parse it
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, "", errors.Wrap(err, "failed to parse user config")
		}
	} else {
		// File doesn't exist, create empty config
		config = make(map[string]interface{})
	}

	return config, configPath, nil
}

// saveUserConfig writes the config to the user config file with backup
func saveUserConfig(config map[string]interface{}, configPath string) error {
	// Create backup
	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	// Marshal to TOML
	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	// Mark this as our own write to prevent reload loops
	globalWatcherMu.Lock()
	if globalWatcher != nil {
		globalWatcher.MarkOwnWrite()
	}
	globalWatcherMu.Unlock()

	// Write to file
	if err := os.WriteFile(configPath, data, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to write user config")
	}

	return nil
}

// SetKey updates a single dotted key (e.g. "log.theme") in the user config
// file and persists it with a rotating backup. The cached config is reset
// so the next Load sees the new value.
func SetKey(key string, value interface{}) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("config key cannot be empty")
	}

	config, configPath, err := loadOrInitializeUserConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load user config")
	}

	// Walk the dotted path, creating intermediate tables as needed
	parts := strings.Split(key, ".")
	node := config
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]interface{})
		if !ok {
			child = make(map[string]interface{})
			node[part] = child
		}
		node = child
	}
	node[parts[len(parts)-1]] = value

	if err := saveUserConfig(config, configPath); err != nil {
		return err
	}

	// Force a reload on next access
	globalConfig = nil
	viperInstance = nil
	return nil
}

// InitUserConfig writes a starter user config file with the default values
// for the settings operators most often change. Refuses to overwrite an
// existing file.
func InitUserConfig() (string, error) {
	configPath := GetUserConfigPath()
	if configPath == "" {
		return "", errors.New("could not determine home directory")
	}
	if _, err := os.Stat(configPath); err == nil {
		return configPath, errors.Newf("config file already exists at %s", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return "", errors.Wrap(err, "failed to create .curator directory")
	}

	starter := map[string]interface{}{
		"zones": map[string]interface{}{
			"raw":       "data/raw",
			"validated": "data/validated",
			"archive":   "data/archive",
		},
		"database": map[string]interface{}{
			"path": "curator.db",
		},
		"log": map[string]interface{}{
			"theme": "everforest",
		},
	}

	data, err := toml.Marshal(starter)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal starter config")
	}
	if err := os.WriteFile(configPath, data, DefaultFilePermissions); err != nil {
		return "", errors.Wrap(err, "failed to write starter config")
	}
	return configPath, nil
}
