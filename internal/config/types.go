package config

// Config is the top-level configuration structure for miladyos.
type Config struct {
	Redis    RedisConfig   `yaml:"redis,omitempty"`
	Jenkins  JenkinsConfig `yaml:"jenkins,omitempty"`
	Paths    PathsConfig   `yaml:"paths,omitempty"`
	LogLevel string        `yaml:"logLevel,omitempty"` // debug, info, warn, error (default: info)
}

// RedisConfig locates the metadata store.
type RedisConfig struct {
	Host string `yaml:"host,omitempty"` // default: localhost
	Port int    `yaml:"port,omitempty"` // default: 6379
	DB   int    `yaml:"db,omitempty"`   // default: 0
}

// ServerConfig describes one Jenkins server.
type ServerConfig struct {
	URL string `yaml:"url"`
}

// JenkinsConfig holds the static server map and the fallback
// credentials used when a tool call supplies none.
type JenkinsConfig struct {
	Servers  map[string]ServerConfig `yaml:"servers,omitempty"`
	Username string                  `yaml:"username,omitempty"`
	Password string                  `yaml:"password,omitempty"`
}

// PathsConfig holds the filesystem layout: the templates directory is
// the source of truth for template existence, the metadata directory
// receives console spill files.
type PathsConfig struct {
	TemplatesDir string `yaml:"templatesDir,omitempty"`
	MetadataDir  string `yaml:"metadataDir,omitempty"`
}

// DefaultServerName is the Jenkins server used when a tool call names none.
const DefaultServerName = "default"

// GetDefaultConfig returns the compiled-in defaults: a local Redis, a
// single local Jenkins with its stock admin credentials, and relative
// template/metadata directories.
func GetDefaultConfig() Config {
	return Config{
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Jenkins: JenkinsConfig{
			Servers: map[string]ServerConfig{
				DefaultServerName: {URL: "http://localhost:8080"},
			},
			Username: "admin",
			Password: "password",
		},
		Paths: PathsConfig{
			TemplatesDir: "templates",
			MetadataDir:  "metadata",
		},
		LogLevel: "info",
	}
}

// RedisAddr returns the host:port address for the store client.
func (c *Config) RedisAddr() string {
	host := c.Redis.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Redis.Port
	if port == 0 {
		port = 6379
	}
	return addr(host, port)
}
