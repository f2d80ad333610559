package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort = 2333
	defaultEnv  = "development"
	defaultDSN  = "root:password@tcp(127.0.0.1:3306)/lynkpage?charset=utf8mb4&parseTime=True&loc=Local"
)

// OAuthProvider holds credentials for one social login provider.
type OAuthProvider struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// AppConfig holds runtime startup configuration loaded from YAML, with
// environment variable fallbacks for container deployments.
type AppConfig struct {
	Port           int      `yaml:"port"`
	DSN            string   `yaml:"dsn"` // MySQL DSN
	RedisURL       string   `yaml:"redis_url"`
	Env            string   `yaml:"env"` // "development" | "production"
	JWTSecret      string   `yaml:"jwt_secret"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	// PublicBaseURL is the externally reachable origin of the service,
	// used for share links, QR codes and OAuth redirect URIs.
	PublicBaseURL string `yaml:"public_base_url"`

	// GeoIPPath points at a MaxMind .mmdb file; empty disables country
	// resolution for click events.
	GeoIPPath string `yaml:"geoip_path"`

	OAuth struct {
		GitHub OAuthProvider `yaml:"github"`
		Google OAuthProvider `yaml:"google"`
	} `yaml:"oauth"`
}

// Load reads the YAML config at path. A missing file is not an error; env
// vars and defaults fill the gaps.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to env/defaults
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *AppConfig) applyEnv() {
	overrideString(&c.DSN, "LYNKPAGE_DSN")
	overrideString(&c.RedisURL, "LYNKPAGE_REDIS_URL")
	overrideString(&c.Env, "LYNKPAGE_ENV")
	overrideString(&c.JWTSecret, "LYNKPAGE_JWT_SECRET")
	overrideString(&c.PublicBaseURL, "LYNKPAGE_PUBLIC_BASE_URL")
	overrideString(&c.GeoIPPath, "LYNKPAGE_GEOIP_PATH")
	overrideString(&c.OAuth.GitHub.ClientID, "LYNKPAGE_GITHUB_CLIENT_ID")
	overrideString(&c.OAuth.GitHub.ClientSecret, "LYNKPAGE_GITHUB_CLIENT_SECRET")
	overrideString(&c.OAuth.Google.ClientID, "LYNKPAGE_GOOGLE_CLIENT_ID")
	overrideString(&c.OAuth.Google.ClientSecret, "LYNKPAGE_GOOGLE_CLIENT_SECRET")

	if v := strings.TrimSpace(os.Getenv("LYNKPAGE_PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Port = port
		}
	}
	if v := strings.TrimSpace(os.Getenv("LYNKPAGE_ALLOWED_ORIGINS")); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.AllowedOrigins = origins
	}
}

func (c *AppConfig) applyDefaults() {
	if c.Port <= 0 {
		c.Port = defaultPort
	}
	if strings.TrimSpace(c.DSN) == "" {
		c.DSN = defaultDSN
	}
	if strings.TrimSpace(c.RedisURL) == "" {
		c.RedisURL = "redis://localhost:6379/0"
	}
	if strings.TrimSpace(c.Env) == "" {
		c.Env = defaultEnv
	}
	if strings.TrimSpace(c.PublicBaseURL) == "" {
		c.PublicBaseURL = fmt.Sprintf("http://localhost:%d", c.Port)
	}
	c.PublicBaseURL = strings.TrimSuffix(c.PublicBaseURL, "/")
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool {
	return !strings.EqualFold(strings.TrimSpace(c.Env), "production")
}

func overrideString(dst *string, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = v
	}
}
