package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Cache   CacheConfig   `yaml:"cache"`
	Reports ReportsConfig `yaml:"reports"`
	Chat    ChatConfig    `yaml:"chat"`
	Notify  NotifyConfig  `yaml:"notify"`
	Archive MinioConfig   `yaml:"archive"`
	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
}

type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type SessionConfig struct {
	File string `yaml:"file"`
}

type CacheConfig struct {
	Dir              string `yaml:"dir"`
	EntityTTLMinutes int    `yaml:"entity_ttl_minutes"`
}

type ReportsConfig struct {
	ReloadDelayMs int    `yaml:"reload_delay_ms"`
	DownloadDir   string `yaml:"download_dir"`
	PollSeconds   int    `yaml:"poll_seconds"`
}

type ChatConfig struct {
	ReloadDelayMs int    `yaml:"reload_delay_ms"`
	Region        string `yaml:"region"`
	Province      string `yaml:"province"`
}

type NotifyConfig struct {
	DismissSeconds int `yaml:"dismiss_seconds"`
}

type MinioConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
	// LinkHours is the lifetime of presigned links to archived reports.
	LinkHours int `yaml:"link_hours"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig configures the development backend started by `icornet serve`.
type ServerConfig struct {
	Port               int         `yaml:"port"`
	Mode               string      `yaml:"mode"`
	JWTSecret          string      `yaml:"jwt_secret"`
	TokenExpireHours   int         `yaml:"token_expire_hours"`
	JobDelayMs         int         `yaml:"job_delay_ms"`
	RateLimitPerMinute int         `yaml:"rate_limit_per_minute"`
	MaxReports         int         `yaml:"max_reports"`
	Fixtures           string      `yaml:"fixtures"`
	Users              []User      `yaml:"users"`
	Neo4j              Neo4jConfig `yaml:"neo4j"`
}

type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type User struct {
	ID       string `yaml:"id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Email    string `yaml:"email"`
}

var GlobalConfig *Config

// Load reads the YAML file at path (skipped when path is empty), applies
// defaults and then environment overrides. A .env file in the working
// directory is loaded first when present.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	_ = godotenv.Load()
	overrideWithEnv(&cfg)
	setDefaults(&cfg)

	GlobalConfig = &cfg
	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:5000/api"
	}
	if cfg.API.TimeoutSeconds == 0 {
		cfg.API.TimeoutSeconds = 60
	}
	if cfg.Cache.EntityTTLMinutes == 0 {
		cfg.Cache.EntityTTLMinutes = 60
	}
	if cfg.Reports.ReloadDelayMs == 0 {
		cfg.Reports.ReloadDelayMs = 2000
	}
	if cfg.Reports.DownloadDir == "" {
		cfg.Reports.DownloadDir = "."
	}
	if cfg.Reports.PollSeconds == 0 {
		cfg.Reports.PollSeconds = 5
	}
	if cfg.Chat.ReloadDelayMs == 0 {
		cfg.Chat.ReloadDelayMs = 1000
	}
	if cfg.Notify.DismissSeconds == 0 {
		cfg.Notify.DismissSeconds = 5
	}
	if cfg.Archive.Bucket == "" {
		cfg.Archive.Bucket = "icornet-reports"
	}
	if cfg.Archive.LinkHours == 0 {
		cfg.Archive.LinkHours = 24
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Server.TokenExpireHours == 0 {
		cfg.Server.TokenExpireHours = 24
	}
	if cfg.Server.JobDelayMs == 0 {
		cfg.Server.JobDelayMs = 3000
	}
	if cfg.Server.RateLimitPerMinute == 0 {
		cfg.Server.RateLimitPerMinute = 300
	}
	if cfg.Server.MaxReports == 0 {
		cfg.Server.MaxReports = 500
	}
	if cfg.Server.Neo4j.Database == "" {
		cfg.Server.Neo4j.Database = "neo4j"
	}
}

// overrideWithEnv applies ICORNET_* variables on top of the file values.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("ICORNET_API_URL"); v != "" {
		cfg.API.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("ICORNET_SESSION_FILE"); v != "" {
		cfg.Session.File = v
	}
	if v := os.Getenv("ICORNET_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv("ICORNET_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("ICORNET_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("ICORNET_JWT_SECRET"); v != "" {
		cfg.Server.JWTSecret = v
	}
	if v, err := strconv.Atoi(os.Getenv("ICORNET_PORT")); err == nil && v > 0 {
		cfg.Server.Port = v
	}

	// Archive credentials
	if v := os.Getenv("ICORNET_MINIO_ENDPOINT"); v != "" {
		cfg.Archive.Endpoint = v
		cfg.Archive.Enabled = true
	}
	if v := os.Getenv("ICORNET_MINIO_ACCESS_KEY"); v != "" {
		cfg.Archive.AccessKey = v
	}
	if v := os.Getenv("ICORNET_MINIO_SECRET_KEY"); v != "" {
		cfg.Archive.SecretKey = v
	}
	if v := os.Getenv("ICORNET_MINIO_REGION"); v != "" {
		cfg.Archive.Region = v
	}

	// Graph database credentials
	if v := os.Getenv("NEO4J_URI"); v != "" {
		cfg.Server.Neo4j.URI = v
	}
	if v := os.Getenv("NEO4J_USER"); v != "" {
		cfg.Server.Neo4j.Username = v
	}
	if v := os.Getenv("NEO4J_PASSWORD"); v != "" {
		cfg.Server.Neo4j.Password = v
	}
}

// Timeout returns the HTTP client timeout.
func (c *APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ReloadDelay returns the delay before the deferred history reload.
func (c *ReportsConfig) ReloadDelay() time.Duration {
	return time.Duration(c.ReloadDelayMs) * time.Millisecond
}

// PollInterval returns the pending-report polling period.
func (c *ReportsConfig) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

// ReloadDelay returns the delay before chat history is reconciled.
func (c *ChatConfig) ReloadDelay() time.Duration {
	return time.Duration(c.ReloadDelayMs) * time.Millisecond
}

// DismissAfter returns how long a notification stays visible.
func (c *NotifyConfig) DismissAfter() time.Duration {
	return time.Duration(c.DismissSeconds) * time.Second
}

// EntityTTL returns how long cached entity lists stay valid.
func (c *CacheConfig) EntityTTL() time.Duration {
	return time.Duration(c.EntityTTLMinutes) * time.Minute
}

// JobDelay returns how long the development backend keeps a report pending.
func (c *ServerConfig) JobDelay() time.Duration {
	return time.Duration(c.JobDelayMs) * time.Millisecond
}

// FindUser finds a backend user by username
func (c *ServerConfig) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}
