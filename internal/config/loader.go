package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"miladyos/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/miladyos"
	configFileName = "config.yaml"
)

func addr(host string, port int) string {
	return host + ":" + strconv.Itoa(port)
}

// GetDefaultConfigPath returns the per-user configuration directory.
func GetDefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadConfig loads configuration from the specified directory. The
// directory should contain config.yaml; a missing file is not an error
// and yields the defaults. Environment variables override whatever the
// file provided.
func LoadConfig(configPath string) (Config, error) {
	config := GetDefaultConfig()

	if configPath == "" {
		defaultPath, err := GetDefaultConfigPath()
		if err != nil {
			logging.Warn("ConfigLoader", "No home directory, using built-in defaults: %v", err)
			applyEnvOverrides(&config)
			return config, nil
		}
		configPath = defaultPath
	}

	configFilePath := filepath.Join(configPath, configFileName)

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			applyEnvOverrides(&config)
			return config, nil
		}
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		// config malformed
		return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)

	applyEnvOverrides(&config)
	return config, nil
}

// applyEnvOverrides applies the environment variables the deployment
// environment has always used. They take precedence over the file.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("REDIS_HOST"); v != "" {
		config.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			logging.Warn("ConfigLoader", "Ignoring invalid REDIS_PORT %q: %v", v, err)
		} else {
			config.Redis.Port = port
		}
	}
	if v := os.Getenv("TEMPLATES_DIR"); v != "" {
		config.Paths.TemplatesDir = v
	}
	if v := os.Getenv("METADATA_DIR"); v != "" {
		config.Paths.MetadataDir = v
	}
	if v := os.Getenv("JENKINS_USER"); v != "" {
		config.Jenkins.Username = v
	}
	if v := os.Getenv("JENKINS_PASSWORD"); v != "" {
		config.Jenkins.Password = v
	}
	if v := os.Getenv("JENKINS_URL"); v != "" {
		if config.Jenkins.Servers == nil {
			config.Jenkins.Servers = map[string]ServerConfig{}
		}
		config.Jenkins.Servers[DefaultServerName] = ServerConfig{URL: v}
	}
}
