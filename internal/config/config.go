package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`
}

type Config struct {
	Listen    string    `yaml:"listen" toml:"listen"`
	Logger    Logger    `yaml:"logger" toml:"logger"`
	Database  Database  `yaml:"database" toml:"database"`
	Auth      Auth      `yaml:"auth" toml:"auth"`
	CORS      CORS      `yaml:"cors" toml:"cors"`
	Templates Templates `yaml:"templates" toml:"templates"`
	Security  Security  `yaml:"security" toml:"security"`
	Admin     Admin     `yaml:"admin" toml:"admin"`
}

type Logger struct {
	Level string `yaml:"level" toml:"level"`
}

type Database struct {
	Path string `yaml:"path" toml:"path"`
}

type Auth struct {
	JWT               JWT    `yaml:"jwt" toml:"jwt"`
	BootstrapPassword string `yaml:"bootstrap_password" toml:"bootstrap_password"`
	GitLab            GitLab `yaml:"gitlab" toml:"gitlab"`
}

// GitLab enables single sign-on through a GitLab instance.
type GitLab struct {
	Enabled      bool   `yaml:"enabled" toml:"enabled"`
	URL          string `yaml:"url" toml:"url"`
	ClientID     string `yaml:"client_id" toml:"client_id"`
	ClientSecret string `yaml:"client_secret" toml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri" toml:"redirect_uri"`

	// DefaultRoles are given to users created on their first GitLab sign-in.
	DefaultRoles []string `yaml:"default_roles" toml:"default_roles"`
}

type JWT struct {
	Secret      string `yaml:"secret" toml:"secret"`
	ExpireHours int    `yaml:"expire_hours" toml:"expire_hours"`
}

// Templates names the base layouts pages extend.
type Templates struct {
	Layout     string `yaml:"layout" toml:"layout"`
	AjaxLayout string `yaml:"ajax_layout" toml:"ajax_layout"`
}

// Security maps a role to the grants it carries, e.g. "LIST", "user.DELETE" or "*".
type Security struct {
	Roles map[string][]string `yaml:"roles" toml:"roles"`
}

type Admin struct {
	PerPage int `yaml:"per_page" toml:"per_page"`
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads the config file at path. Files ending in .toml are parsed as TOML,
// everything else as YAML. ${VAR} references are expanded from the environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envPattern.FindStringSubmatch(match)[1])
	})
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.Templates.Layout == "" {
		c.Templates.Layout = "layout.html"
	}
	if c.Templates.AjaxLayout == "" {
		c.Templates.AjaxLayout = "ajax_layout.html"
	}
	if c.Admin.PerPage <= 0 {
		c.Admin.PerPage = 25
	}
	if c.Auth.JWT.ExpireHours <= 0 {
		c.Auth.JWT.ExpireHours = 12
	}
	if c.Security.Roles == nil {
		c.Security.Roles = map[string][]string{"admin": {"*"}}
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if len(c.Auth.JWT.Secret) < 16 {
		return fmt.Errorf("auth.jwt.secret must be at least 16 characters")
	}
	if g := c.Auth.GitLab; g.Enabled {
		if g.URL == "" || g.ClientID == "" || g.ClientSecret == "" || g.RedirectURI == "" {
			return fmt.Errorf("auth.gitlab needs url, client_id, client_secret and redirect_uri when enabled")
		}
		for _, r := range g.DefaultRoles {
			if _, ok := c.Security.Roles[r]; !ok {
				return fmt.Errorf("auth.gitlab.default_roles: unknown role %q", r)
			}
		}
	}
	return nil
}
