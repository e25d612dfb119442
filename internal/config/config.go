// Package config loads application settings from the environment.
//
// Values come from RESUME_ASSISTANT_* variables, optionally seeded from a
// .env file in the working directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/joho/godotenv"

	"github.com/anatolykoptev/go_resume/internal/apperr"
)

// Prefix is prepended to every environment key.
const Prefix = "RESUME_ASSISTANT_"

// Config holds every runtime setting.
type Config struct {
	// LLM
	APIKey          string
	APIKeyFallbacks []string
	BaseURL         string
	Model           string
	Provider        string // deepseek | compat
	Temperature     float64
	MaxTokens       int
	LLMTimeout      time.Duration

	// Storage
	DatabasePath    string
	CacheDir        string
	CacheTTL        time.Duration
	CacheMaxEntries int
	RedisURL        string

	// Scraping
	RequestTimeout     time.Duration
	MaxRetries         int
	RetryDelay         time.Duration
	ConcurrentLimit    int
	Headless           bool
	UserDataDir        string
	BrowserBin         string
	VerifyTimeout      time.Duration
	VerifyPollInterval time.Duration
	EnableMonitoring   bool
	DataValidation     bool
	StatsFile          string
	ProxyPool          []string
	EnableGeneric      bool
	BossBrowser        bool

	// UI and logging
	Theme    string
	AutoSave bool
	LogLevel string
	LogFile  string

	MCPPort string
}

func key(name string) string { return Prefix + name }

func boolVal(name string, def bool) bool {
	raw := strings.TrimSpace(env.Str(key(name), strconv.FormatBool(def)))
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}

// Load reads .env (when present) and the environment, then validates the result.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, apperr.Configuration(fmt.Sprintf("读取 .env 失败: %v", err), ".env")
		}
	}

	home := homeDir()
	c := &Config{
		APIKey:          env.Str(key("DEEPSEEK_API_KEY"), ""),
		APIKeyFallbacks: env.List(key("LLM_API_KEY_FALLBACKS"), ""),
		BaseURL:         env.Str(key("DEEPSEEK_BASE_URL"), "https://api.deepseek.com"),
		Model:           env.Str(key("LLM_MODEL"), "deepseek-chat"),
		Provider:        strings.ToLower(env.Str(key("LLM_PROVIDER"), "deepseek")),
		Temperature:     env.Float(key("LLM_TEMPERATURE"), 0.7),
		MaxTokens:       env.Int(key("LLM_MAX_TOKENS"), 2048),
		LLMTimeout:      env.Duration(key("LLM_TIMEOUT"), 30*time.Second),

		DatabasePath:    ExpandHome(env.Str(key("DATABASE_PATH"), filepath.Join(home, ".resume_assistant", "data.db"))),
		CacheDir:        ExpandHome(env.Str(key("CACHE_DIR"), filepath.Join(home, ".resume_assistant", "cache"))),
		CacheTTL:        env.Duration(key("CACHE_TTL"), time.Hour),
		CacheMaxEntries: env.Int(key("CACHE_MAX_ENTRIES"), 1000),
		RedisURL:        env.Str(key("REDIS_URL"), ""),

		RequestTimeout:     env.Duration(key("REQUEST_TIMEOUT"), 30*time.Second),
		MaxRetries:         env.Int(key("MAX_RETRIES"), 3),
		RetryDelay:         env.Duration(key("RETRY_DELAY"), 2*time.Second),
		ConcurrentLimit:    env.Int(key("CONCURRENT_LIMIT"), 3),
		Headless:           boolVal("HEADLESS", false),
		UserDataDir:        env.Str(key("USER_DATA_DIR"), ""),
		BrowserBin:         env.Str(key("BROWSER_BIN"), ""),
		VerifyTimeout:      env.Duration(key("VERIFY_TIMEOUT"), 5*time.Minute),
		VerifyPollInterval: env.Duration(key("VERIFY_POLL_INTERVAL"), 3*time.Second),
		EnableMonitoring:   boolVal("ENABLE_MONITORING", true),
		DataValidation:     boolVal("DATA_VALIDATION", true),
		StatsFile:          env.Str(key("STATS_FILE"), "scraping_stats.json"),
		ProxyPool:          env.List(key("PROXY_POOL"), ""),
		EnableGeneric:      boolVal("ENABLE_GENERIC", false),
		BossBrowser:        boolVal("BOSS_BROWSER", false),

		Theme:    strings.ToLower(env.Str(key("THEME"), "dark")),
		AutoSave: boolVal("AUTO_SAVE", true),
		LogLevel: strings.ToUpper(env.Str(key("LOG_LEVEL"), "INFO")),
		LogFile:  ExpandHome(env.Str(key("LOG_FILE"), filepath.Join(home, ".resume_assistant", "logs", "app.log"))),

		MCPPort: env.Str(key("MCP_PORT"), "8892"),
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

var validLogLevels = map[string]bool{
	"DEBUG": true, "INFO": true, "WARNING": true, "WARN": true, "ERROR": true, "CRITICAL": true,
}

// Validate checks value ranges and formats.
func (c *Config) Validate() error {
	if c.APIKey != "" && !strings.HasPrefix(c.APIKey, "sk-") {
		return apperr.Configuration("DeepSeek API密钥格式无效，应以 sk- 开头", key("DEEPSEEK_API_KEY"))
	}
	if c.Theme != "dark" && c.Theme != "light" {
		return apperr.Configuration(fmt.Sprintf("主题必须是 dark 或 light，当前为 %q", c.Theme), key("THEME"))
	}
	if !validLogLevels[strings.ToUpper(c.LogLevel)] {
		return apperr.Configuration(fmt.Sprintf("无效的日志级别 %q", c.LogLevel), key("LOG_LEVEL"))
	}
	if c.Provider != "deepseek" && c.Provider != "compat" {
		return apperr.Configuration(fmt.Sprintf("未知的LLM提供方 %q", c.Provider), key("LLM_PROVIDER"))
	}
	checks := []struct {
		name string
		ok   bool
	}{
		{"MAX_RETRIES", c.MaxRetries >= 0},
		{"CONCURRENT_LIMIT", c.ConcurrentLimit > 0},
		{"LLM_MAX_TOKENS", c.MaxTokens > 0},
		{"REQUEST_TIMEOUT", c.RequestTimeout > 0},
		{"LLM_TIMEOUT", c.LLMTimeout > 0},
		{"CACHE_MAX_ENTRIES", c.CacheMaxEntries >= 0},
	}
	for _, ch := range checks {
		if !ch.ok {
			return apperr.Configuration(fmt.Sprintf("%s 超出有效范围", ch.name), key(ch.name))
		}
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return apperr.Configuration("LLM_TEMPERATURE 必须在 0 到 2 之间", key("LLM_TEMPERATURE"))
	}
	return nil
}

// HasAPIKey reports whether an LLM key is configured.
func (c *Config) HasAPIKey() bool { return c.APIKey != "" }

// EnsureDirs creates parent directories for the database, cache and log file.
func (c *Config) EnsureDirs() error {
	dirs := []string{filepath.Dir(c.DatabasePath), c.CacheDir}
	if c.LogFile != "" {
		dirs = append(dirs, filepath.Dir(c.LogFile))
	}
	for _, d := range dirs {
		if d == "" {
			continue
		}
		if err := os.MkdirAll(d, 0750); err != nil {
			return apperr.Configuration(fmt.Sprintf("创建目录失败 %s: %v", d, err), "")
		}
	}
	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(p string) string {
	if p == "~" {
		return homeDir()
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(homeDir(), p[2:])
	}
	return p
}

func homeDir() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	if h, err := os.UserHomeDir(); err == nil {
		return h
	}
	return "."
}
