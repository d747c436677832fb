package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions.

// Calendar variants.
const (
	VariantGrid     = "grid"
	VariantDocument = "document"
)

// Session store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// SiteConfig holds the static branding shown on every page.
type SiteConfig struct {
	Name    string `yaml:"name" json:"name"`
	Tagline string `yaml:"tagline" json:"tagline"`
	// BaseURL is the public origin, used for ICS UIDs and the GSI login URI.
	BaseURL string `yaml:"base_url" json:"base_url"`
}

// ICSConfig describes a single ICS event source. Either URL or File is set.
type ICSConfig struct {
	URL  string `yaml:"url,omitempty" json:"url,omitempty"`
	File string `yaml:"file,omitempty" json:"file,omitempty"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
}

// CalendarConfig controls where calendar data comes from and how it is shown.
type CalendarConfig struct {
	// Variant selects the /calendar presentation: "grid" or "document".
	Variant string `yaml:"variant" json:"variant"`

	// File is a YAML calendar data file. Empty means the embedded default.
	File string `yaml:"file" json:"file"`

	// StaleAfterDays is the staleness threshold for IsRecent.
	StaleAfterDays int `yaml:"stale_after_days" json:"stale_after_days"`

	// Refresh is a cron-style schedule used to reload the data. Empty
	// disables periodic reload.
	Refresh string `yaml:"refresh" json:"refresh"`

	// ICS sources replace the YAML event list when non-empty.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// CacheDir stores fetched ICS bodies (ETag / Last-Modified cache).
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// WindowStart / WindowEnd bound recurring ICS expansion (YYYY-MM-DD).
	WindowStart string `yaml:"window_start" json:"window_start"`
	WindowEnd   string `yaml:"window_end" json:"window_end"`
}

// CookieConfig holds cookie security options.
type CookieConfig struct {
	Secure   bool   `yaml:"secure" json:"secure"`
	SameSite string `yaml:"same_site" json:"same_site"`
}

// AuthConfig configures the Google sign-in flow.
type AuthConfig struct {
	ClientID      string        `yaml:"client_id" json:"client_id"`
	AllowedDomain string        `yaml:"allowed_domain" json:"allowed_domain"`
	LoginURI      string        `yaml:"login_uri" json:"login_uri"`
	SessionTTL    time.Duration `yaml:"session_ttl" json:"session_ttl"`
	Cookie        CookieConfig  `yaml:"cookie" json:"cookie"`
}

// SessionStoreConfig selects the key-value store for signed-in profiles.
type SessionStoreConfig struct {
	Backend       string `yaml:"backend" json:"backend"`
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `yaml:"redis_password" json:"redis_password"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db"`
}

// AdminConfig holds HTTP Basic Auth credentials for the admin endpoints.
// PasswordHash is an Argon2id hash produced by `campusweb hash-password`.
type AdminConfig struct {
	Username     string `yaml:"username" json:"username"`
	PasswordHash string `yaml:"password_hash" json:"password_hash"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone that defines "today".
	Timezone string `yaml:"timezone" json:"timezone"`

	Site     SiteConfig     `yaml:"site" json:"site"`
	Calendar CalendarConfig `yaml:"calendar" json:"calendar"`

	// ContentFile is a YAML semester/papers catalog. Empty means embedded.
	ContentFile string `yaml:"content_file" json:"content_file"`

	// DocumentsDir is served at /documents/ (rendered calendar PDFs).
	DocumentsDir string `yaml:"documents_dir" json:"documents_dir"`

	Auth         AuthConfig         `yaml:"auth" json:"auth"`
	SessionStore SessionStoreConfig `yaml:"session_store" json:"session_store"`

	// Admin, if non-nil, enables the admin endpoints.
	Admin *AdminConfig `yaml:"admin,omitempty" json:"admin,omitempty"`

	Log LogConfig `yaml:"log" json:"log"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   "127.0.0.1:8080",
		Timezone: "Asia/Kolkata",
		Site: SiteConfig{
			Name:    "Campus Notes",
			Tagline: "Semesters, question papers and the academic calendar in one place",
			BaseURL: "http://127.0.0.1:8080",
		},
		Calendar: CalendarConfig{
			Variant:        VariantGrid,
			StaleAfterDays: 30,
			Refresh:        "0 */6 * * *",
			ICS:            []ICSConfig{},
			CacheDir:       "./var/ics-cache",
		},
		DocumentsDir: "./var/documents",
		Auth: AuthConfig{
			AllowedDomain: "sastra.ac.in",
			SessionTTL:    30 * 24 * time.Hour,
			Cookie:        CookieConfig{SameSite: "Lax"},
		},
		SessionStore: SessionStoreConfig{Backend: StoreMemory},
		Admin:        nil,
		Log:          LogConfig{Level: "info", Format: "json"},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.Site.Name == "" {
		c.Site.Name = def.Site.Name
	}
	if c.Site.BaseURL == "" {
		c.Site.BaseURL = "http://" + c.Listen
	}
	c.Site.BaseURL = strings.TrimRight(c.Site.BaseURL, "/")

	switch c.Calendar.Variant {
	case VariantGrid, VariantDocument:
		// ok
	default:
		// Unknown or empty value; fall back to the interactive grid.
		c.Calendar.Variant = VariantGrid
	}
	if c.Calendar.StaleAfterDays <= 0 {
		c.Calendar.StaleAfterDays = def.Calendar.StaleAfterDays
	}
	if c.Calendar.ICS == nil {
		c.Calendar.ICS = []ICSConfig{}
	}
	if c.Calendar.CacheDir == "" {
		c.Calendar.CacheDir = def.Calendar.CacheDir
	}
	if c.DocumentsDir == "" {
		c.DocumentsDir = def.DocumentsDir
	}

	if c.Auth.AllowedDomain == "" {
		c.Auth.AllowedDomain = def.Auth.AllowedDomain
	}
	c.Auth.AllowedDomain = strings.TrimPrefix(strings.ToLower(c.Auth.AllowedDomain), "@")
	if c.Auth.LoginURI == "" {
		c.Auth.LoginURI = c.Site.BaseURL + "/auth/google/callback"
	}
	if c.Auth.SessionTTL <= 0 {
		c.Auth.SessionTTL = def.Auth.SessionTTL
	}
	if c.Auth.Cookie.SameSite == "" {
		c.Auth.Cookie.SameSite = def.Auth.Cookie.SameSite
	}

	switch c.SessionStore.Backend {
	case StoreMemory, StoreRedis:
	default:
		c.SessionStore.Backend = StoreMemory
	}
	if c.SessionStore.Backend == StoreRedis && c.SessionStore.RedisAddr == "" {
		c.SessionStore.RedisAddr = "localhost:6379"
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
}

// ApplyEnv overrides selected fields from the environment. Only the
// client ID is read, matching how the sign-in client ID is usually
// injected at deploy time.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		c.Auth.ClientID = v
	}
}

// AdminEnabled reports whether admin credentials are configured.
func (c *Config) AdminEnabled() bool {
	if c.Admin == nil {
		return false
	}
	// Either field left empty disables the admin endpoints.
	return c.Admin.Username != "" && c.Admin.PasswordHash != ""
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, err
	}
	return loc, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".campusweb-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
