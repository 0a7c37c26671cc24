// Package config provides configuration management for the bot.
// It loads environment variables (and an optional .env file) once and makes
// them available throughout the application.
package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// XP store backends
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	BotToken   string
	DevGuildID string
	OwnerID    string

	// MongoDB
	MongoDBURL string
	DBName     string

	// XP
	XPStore           string
	XPMultiplier      float64
	XPLevelUpChannel  string
	XPMessageCooldown time.Duration
	XPVoiceInterval   time.Duration

	// Community
	BugReportChannel string
	AbsenceCheck     time.Duration

	// MQTT
	MQTTHost     string
	MQTTPort     string
	MQTTUser     string
	MQTTPassword string

	// Web Server
	Port         string
	APIRateLimit int

	// Environment
	Environment string
	LogsDir     string

	// Webhooks
	ErrorWebhook string
	LogsWebhook  string
}

var (
	Version   = "dev"
	BuildTime = "unknown"
)

var (
	cfg     *Config
	cfgOnce sync.Once
)

// resetForTesting resets the configuration for testing purposes.
// This function should only be called from test code.
func resetForTesting() {
	cfg = nil
	cfgOnce = sync.Once{}
}

func loadConfig() {
	// .env is optional
	_ = godotenv.Load()

	cfg = &Config{
		BotToken:   getEnv("DISCORD_TOKEN", ""),
		DevGuildID: getEnv("DEV_GUILD_ID", ""),
		OwnerID:    getEnv("OWNER_ID", ""),

		MongoDBURL: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:     getEnv("DB_NAME", "discord_bot"),

		XPStore:           strings.ToLower(getEnv("XP_STORE", StoreMongo)),
		XPMultiplier:      getEnvFloat("XP_MULTIPLIER", 0.30),
		XPLevelUpChannel:  getEnv("XP_LEVELUP_CHANNEL", ""),
		XPMessageCooldown: getEnvDuration("XP_MESSAGE_COOLDOWN", 60*time.Second),
		XPVoiceInterval:   getEnvDuration("XP_VOICE_INTERVAL", 60*time.Second),

		BugReportChannel: getEnv("BUG_REPORT_CHANNEL", ""),
		AbsenceCheck:     getEnvDuration("ABSENCE_CHECK_INTERVAL", time.Hour),

		MQTTHost:     getEnv("MQTT_HOST", ""),
		MQTTPort:     getEnv("MQTT_PORT", "1883"),
		MQTTUser:     getEnv("MQTT_USER", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),

		Port:         getEnv("PORT", "3000"),
		APIRateLimit: getEnvInt("API_RATE_LIMIT", 100),

		Environment: getEnv("ENVIRONMENT", "dev"),
		LogsDir:     getEnv("LOGS_DIR", "logs"),

		ErrorWebhook: getEnv("ERROR_WEBHOOK", ""),
		LogsWebhook:  getEnv("LOGS_WEBHOOK", ""),
	}
}

// Load initializes the configuration from environment variables
func Load() (*Config, error) {
	cfgOnce.Do(loadConfig)
	return cfg, nil
}

// Get returns the current configuration
func Get() *Config {
	cfgOnce.Do(loadConfig)
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && f > 0 {
		return f
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}

// IsProd returns true if the environment is production
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}

// UseMemoryStore reports whether XP lives in process memory instead of MongoDB
func (c *Config) UseMemoryStore() bool {
	return c.XPStore == StoreMemory
}

// MQTTEnabled reports whether a broker is configured
func (c *Config) MQTTEnabled() bool {
	return c.MQTTHost != ""
}
