package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"dp-normalizer/api/internal/llm"
)

type Config struct {
	Port string

	NVIDIABaseURL   string
	NVIDIAKeys      map[string]string // profile key -> API key, "" is the shared key
	GeminiAPIKey    string
	GeminiModel     string
	DefaultProfile  string
	ProfilesFile    string
	RequestTimeout  time.Duration
	DatabaseURL     string
	PromptDir       string
	UploadDir       string
	RetentionPeriod time.Duration

	TelegramToken  string
	TelegramChatID int64

	LogLevel string
	LogJSON  bool
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getBool(k string, def bool) bool {
	v, err := strconv.ParseBool(getEnv(k, ""))
	if err != nil {
		return def
	}
	return v
}

func getDuration(k string, def time.Duration) (time.Duration, error) {
	v := getEnv(k, "")
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}

// Load reads .env (when present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8000"),
		NVIDIABaseURL:  getEnv("NVIDIA_BASE_URL", "https://integrate.api.nvidia.com"),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		DefaultProfile: getEnv("NVIDIA_MODEL", "nemotron"),
		ProfilesFile:   getEnv("PROFILES_FILE", ""),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		PromptDir:      getEnv("PROMPT_DIR", ""),
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		TelegramToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogJSON:        getBool("LOG_JSON", false),
		NVIDIAKeys: map[string]string{
			"":         getEnv("NVIDIA_API_KEY", ""),
			"nemotron": getEnv("NVIDIA_API_KEY_NEMOTRON", ""),
		},
	}

	var err error
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 180*time.Second); err != nil {
		return nil, err
	}
	if cfg.RetentionPeriod, err = getDuration("RETENTION", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if v := getEnv("TELEGRAM_ALERT_CHAT_ID", ""); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_ALERT_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}
	return cfg, nil
}

// Profiles builds the profile registry: the YAML file when configured,
// otherwise the built-in profiles with GEMINI_MODEL applied.
func (c *Config) Profiles() (*llm.Profiles, error) {
	list := llm.DefaultProfiles()
	def := c.DefaultProfile
	if c.ProfilesFile != "" {
		fromFile, fileDef, err := llm.LoadProfiles(c.ProfilesFile)
		if err != nil {
			return nil, err
		}
		list = fromFile
		if fileDef != "" {
			def = fileDef
		}
	} else {
		for i := range list {
			if list[i].Provider == llm.ProviderGemini {
				list[i].Model = c.GeminiModel
			}
		}
	}
	return llm.NewProfiles(list, def)
}

// AlertsEnabled reports whether Telegram alerts are configured.
func (c *Config) AlertsEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}
