package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds environment driven configuration values.
// Secrets have no defaults in code and must come from the config file or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	RateLimitPerMinute int
	AllowedOrigins     []string
	TimeZone           string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database: "mysql" or "sqlite"
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	SQLitePath  string
	// Redis holds bitmaps, notification markers, the unbind queue and cooldowns
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Push transport: log, email, telegram or discord
	PushChannel      string
	TelegramBotToken string
	DiscordBotToken  string
	// SMTP for the email push channel
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	SMTPTLS      bool
	// Scheduling
	CheckInWindowMinutes int
	UnbindDelayHours     int
	CooldownHours        int
	MarkerTTLHours       int
	ReminderPollSeconds  int
	UnbindScanSeconds    int
	ReconcileMinutes     int
	StoreTimeoutMs       int
	TickTimeoutSeconds   int
}

var cfg AppConfig
var loaded bool

// DefaultPath is read when neither --config nor CONFIG_FILE names a file.
var DefaultPath = filepath.Join("config", "config.yaml")

// Load loads the application configuration once. It should be called during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}
	c, err := LoadFrom(getEnv("CONFIG_FILE", DefaultPath))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg = c
	loaded = true
	return cfg
}

// LoadFrom builds a configuration from path without touching the cached one.
// Precedence: config file -> defaults -> environment variable overrides.
func LoadFrom(path string) (AppConfig, error) {
	var c AppConfig
	if err := loadConfigFile(path, &c); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	applyDefaults(&c)
	if err := applyEnvOverrides(&c); err != nil {
		return c, err
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return c, fmt.Errorf("invalid TimeZone %q: %w", c.TimeZone, err)
	}
	return c, nil
}

// Set replaces the cached configuration; used by the CLI after resolving --config.
func Set(c AppConfig) {
	cfg = c
	loaded = true
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Location resolves TimeZone. Every "today" in the service is computed in it.
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c AppConfig) CheckInWindow() time.Duration {
	return time.Duration(c.CheckInWindowMinutes) * time.Minute
}

func (c AppConfig) UnbindDelay() time.Duration {
	return time.Duration(c.UnbindDelayHours) * time.Hour
}

func (c AppConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownHours) * time.Hour
}

func (c AppConfig) MarkerTTL() time.Duration {
	return time.Duration(c.MarkerTTLHours) * time.Hour
}

func (c AppConfig) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMs) * time.Millisecond
}

func (c AppConfig) TickTimeout() time.Duration {
	return time.Duration(c.TickTimeoutSeconds) * time.Second
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadConfigFile reads a grouped JSON or YAML file into out. A missing file is not an error.
func loadConfigFile(path string, out *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case string:
				return t
			case int:
				return strconv.Itoa(t)
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			case json.Number:
				i, _ := t.Int64()
				return int(i)
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		out.AllowedOrigins = getStringSlice(app, "AllowedOrigins")
		out.TimeZone = getString(app, "TimeZone")
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		out.GinMode = getString(g, "Mode")
		out.GinPath = getString(g, "LogPath")
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DBDriver = getString(dbs, "Driver")
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
		out.SQLitePath = getString(dbs, "SQLitePath")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}

	if p, ok := raw["push"].(map[string]any); ok {
		out.PushChannel = getString(p, "Channel")
		out.TelegramBotToken = getString(p, "TelegramBotToken")
		out.DiscordBotToken = getString(p, "DiscordBotToken")
	}

	if sm, ok := raw["smtp"].(map[string]any); ok {
		out.SMTPHost = getString(sm, "SMTPHost")
		out.SMTPPort = getInt(sm, "SMTPPort")
		out.SMTPUsername = getString(sm, "SMTPUsername")
		out.SMTPPassword = getString(sm, "SMTPPassword")
		out.SMTPFrom = getString(sm, "SMTPFrom")
		out.SMTPFromName = getString(sm, "SMTPFromName")
		out.SMTPTLS = getBool(sm, "SMTPTLS")
	}

	if sc, ok := raw["schedule"].(map[string]any); ok {
		out.CheckInWindowMinutes = getInt(sc, "CheckInWindowMinutes")
		out.UnbindDelayHours = getInt(sc, "UnbindDelayHours")
		out.CooldownHours = getInt(sc, "CooldownHours")
		out.MarkerTTLHours = getInt(sc, "MarkerTTLHours")
		out.ReminderPollSeconds = getInt(sc, "ReminderPollSeconds")
		out.UnbindScanSeconds = getInt(sc, "UnbindScanSeconds")
		out.ReconcileMinutes = getInt(sc, "ReconcileMinutes")
		out.StoreTimeoutMs = getInt(sc, "StoreTimeoutMs")
		out.TickTimeoutSeconds = getInt(sc, "TickTimeoutSeconds")
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.TimeZone == "" {
		c.TimeZone = "Local"
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "careping"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "data/careping.db"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.PushChannel == "" {
		c.PushChannel = "log"
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
	}
	if c.CheckInWindowMinutes == 0 {
		c.CheckInWindowMinutes = 30
	}
	if c.UnbindDelayHours == 0 {
		c.UnbindDelayHours = 24
	}
	if c.CooldownHours == 0 {
		c.CooldownHours = 24
	}
	if c.MarkerTTLHours == 0 {
		c.MarkerTTLHours = 25
	}
	if c.ReminderPollSeconds == 0 {
		c.ReminderPollSeconds = 60
	}
	if c.UnbindScanSeconds == 0 {
		c.UnbindScanSeconds = 60
	}
	if c.ReconcileMinutes == 0 {
		c.ReconcileMinutes = 60
	}
	if c.StoreTimeoutMs == 0 {
		c.StoreTimeoutMs = 2000
	}
	if c.TickTimeoutSeconds == 0 {
		c.TickTimeoutSeconds = 50
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"APP_PORT", &c.AppPort},
		{"JWT_SECRET", &c.JWTSecret},
		{"TIME_ZONE", &c.TimeZone},
		{"GIN_MODE", &c.GinMode},
		{"GIN_PATH", &c.GinPath},
		{"DB_DRIVER", &c.DBDriver},
		{"DATABASE_URI", &c.DatabaseURI},
		{"DB_HOST", &c.DBHost},
		{"DB_PORT", &c.DBPort},
		{"DB_USER", &c.DBUser},
		{"DB_PASSWORD", &c.DBPassword},
		{"DB_NAME", &c.DBName},
		{"SQLITE_PATH", &c.SQLitePath},
		{"REDIS_HOST", &c.RedisHost},
		{"REDIS_PASSWORD", &c.RedisPassword},
		{"LOG_LEVEL", &c.LogLevel},
		{"LOG_PATH", &c.LogPath},
		{"PUSH_CHANNEL", &c.PushChannel},
		{"TELEGRAM_BOT_TOKEN", &c.TelegramBotToken},
		{"DISCORD_BOT_TOKEN", &c.DiscordBotToken},
		{"SMTP_HOST", &c.SMTPHost},
		{"SMTP_USERNAME", &c.SMTPUsername},
		{"SMTP_PASSWORD", &c.SMTPPassword},
		{"SMTP_FROM", &c.SMTPFrom},
		{"SMTP_FROM_NAME", &c.SMTPFromName},
	}
	for _, s := range strs {
		if v := getEnv(s.key, ""); v != "" {
			*s.dst = v
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute},
		{"REDIS_PORT", &c.RedisPort},
		{"REDIS_DB", &c.RedisDB},
		{"LOG_MAX_SIZE_MB", &c.LogMaxSizeMB},
		{"LOG_MAX_BACKUPS", &c.LogMaxBackups},
		{"LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays},
		{"SMTP_PORT", &c.SMTPPort},
		{"CHECKIN_WINDOW_MINUTES", &c.CheckInWindowMinutes},
		{"UNBIND_DELAY_HOURS", &c.UnbindDelayHours},
		{"COOLDOWN_HOURS", &c.CooldownHours},
		{"MARKER_TTL_HOURS", &c.MarkerTTLHours},
		{"REMINDER_POLL_SECONDS", &c.ReminderPollSeconds},
		{"UNBIND_SCAN_SECONDS", &c.UnbindScanSeconds},
		{"RECONCILE_MINUTES", &c.ReconcileMinutes},
		{"STORE_TIMEOUT_MS", &c.StoreTimeoutMs},
		{"TICK_TIMEOUT_SECONDS", &c.TickTimeoutSeconds},
	}
	for _, i := range ints {
		if v := getEnv(i.key, ""); v != "" {
			n, err := parseInt(i.key, v)
			if err != nil {
				return err
			}
			*i.dst = n
		}
	}

	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	if v := getEnv("SMTP_TLS", ""); v != "" {
		c.SMTPTLS = v == "true"
	}
	return nil
}

func parseInt(key, val string) (int, error) {
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value %s=%s: %w", key, val, err)
	}
	return i, nil
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
