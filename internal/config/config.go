package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const insecureSecret = "supersecretkey"

// ServerConfig configures the central API server. Defaults come from the
// environment; an optional YAML file overrides them.
type ServerConfig struct {
	Addr          string        `yaml:"addr"`
	JWTSecret     string        `yaml:"jwt_secret"`
	APITimeout    time.Duration `yaml:"timeout"`
	DatabaseURL   string        `yaml:"database_url"`
	TokenDuration time.Duration `yaml:"token_duration"`
	S3            S3Config      `yaml:"s3"`
}

type S3Config struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
}

// AgentConfig configures the desktop capture agent.
type AgentConfig struct {
	ServerURL     string        `yaml:"server_url"`
	DatabasePath  string        `yaml:"database_path"`
	StateDir      string        `yaml:"state_dir"`
	ScreenshotDir string        `yaml:"screenshot_dir"`
	SyncInterval  time.Duration `yaml:"sync_interval"`
}

func LoadServer(path string) (*ServerConfig, error) {
	cfg := &ServerConfig{
		Addr:          getEnv("TRACKER_ADDR", ":8080"),
		JWTSecret:     getEnv("TRACKER_JWT_SECRET", insecureSecret),
		APITimeout:    15 * time.Second,
		DatabaseURL:   getEnv("TRACKER_DATABASE_URL", "postgres://localhost:5432/tracker"),
		TokenDuration: 24 * time.Hour,
		S3: S3Config{
			Region:    getEnv("TRACKER_S3_REGION", "us-east-1"),
			Endpoint:  os.Getenv("TRACKER_S3_ENDPOINT"),
			AccessKey: os.Getenv("TRACKER_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("TRACKER_S3_SECRET_KEY"),
			Bucket:    getEnv("TRACKER_S3_BUCKET", "tracker-screenshots"),
		},
	}
	if err := loadYAML(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadAgent(path string) (*AgentConfig, error) {
	home, _ := os.UserHomeDir()
	stateDir := getEnv("TRACKER_AGENT_DIR", home+"/.tracker")

	cfg := &AgentConfig{
		ServerURL:     getEnv("TRACKER_SERVER_URL", "http://localhost:8080"),
		DatabasePath:  stateDir + "/agent.db",
		StateDir:      stateDir,
		ScreenshotDir: stateDir + "/screenshots",
		SyncInterval:  5 * time.Minute,
	}
	if err := loadYAML(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that must never reach production. The
// default JWT secret is allowed only when TRACKER_ENV is development.
func (c *ServerConfig) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret must be set")
	}
	if c.JWTSecret == insecureSecret && os.Getenv("TRACKER_ENV") != "development" {
		return fmt.Errorf("jwt_secret is the insecure default; set TRACKER_JWT_SECRET")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("database_url must be set")
	}
	if c.Addr == "" {
		return fmt.Errorf("addr must be set")
	}
	return nil
}

func (c *AgentConfig) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url must be set")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path must be set")
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync_interval must be positive")
	}
	return nil
}

func loadYAML(path string, out any) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return yaml.NewDecoder(f).Decode(out)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
