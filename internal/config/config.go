package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/llm-gateway/internal/logger"
)

// Config carries every tunable the gateway reads at startup. Missing
// provider credentials leave the corresponding field empty; components
// constructed from an empty credential disable themselves rather than
// failing startup.
type Config struct {
	ServerName string
	Version    string
	Debug      bool

	Port    string
	LogMode string

	PostgrestBaseURL   string
	PostgrestJWTSecret string

	GoogleAPIKey    string
	DeepseekAPIKey  string
	TavilyAPIKey    string
	LinkupAPIKey    string
	FirecrawlAPIKey string

	SearchPreference string

	RedisAddr string

	UploadDir      string
	MaxUploadBytes int64

	ChunkSize    int
	ChunkOverlap int

	EmbedModel       string
	EmbedDimensions  int
	EmbedConcurrency int

	SimilarityThreshold float64
	ContextWindow       int
	CostPerToken        float64
}

// fileConfig is the optional YAML file at CONFIG_PATH. Only static
// identity fields live there; everything operational is env-driven.
type fileConfig struct {
	Server  string `yaml:"server"`
	Version string `yaml:"version"`
	Debug   bool   `yaml:"debug"`
}

func Load(log *logger.Logger) *Config {
	cfg := &Config{
		ServerName: "llm-gateway",
		Version:    "dev",

		Port:    GetEnv("PORT", "8080", log),
		LogMode: GetEnv("LOG_MODE", "development", log),

		PostgrestBaseURL:   GetEnv("POSTGREST_BASE_URL", "", log),
		PostgrestJWTSecret: GetEnv("POSTGREST_JWT_SECRET", "", log),

		GoogleAPIKey:    GetEnv("GOOGLE_API_KEY", "", nil),
		DeepseekAPIKey:  GetEnv("DEEPSEEK_API_KEY", "", nil),
		TavilyAPIKey:    GetEnv("TAVILY_API_KEY", "", nil),
		LinkupAPIKey:    GetEnv("LINKUP_API_KEY", "", nil),
		FirecrawlAPIKey: GetEnv("FIRECRAWL_API_KEY", "", nil),

		SearchPreference: GetEnv("SEARCH_PREFERENCE", "tavily", log),

		RedisAddr: GetEnv("REDIS_ADDR", "", nil),

		UploadDir:      GetEnv("UPLOAD_DIR", "/app/uploads", log),
		MaxUploadBytes: int64(GetEnvAsInt("MAX_UPLOAD_MB", 256, log)) * 1024 * 1024,

		ChunkSize:    GetEnvAsInt("CHUNK_SIZE", 1000, log),
		ChunkOverlap: GetEnvAsInt("CHUNK_OVERLAP", 200, log),

		EmbedModel:       GetEnv("EMBED_MODEL", "gemini-embedding-exp-03-07", log),
		EmbedDimensions:  GetEnvAsInt("EMBED_DIMENSIONS", 0, log),
		EmbedConcurrency: GetEnvAsInt("EMBED_CONCURRENCY", 4, log),

		SimilarityThreshold: GetEnvAsFloat("SIMILARITY_THRESHOLD", 0.5, log),
		ContextWindow:       GetEnvAsInt("CONTEXT_WINDOW", 64000, log),
		CostPerToken:        GetEnvAsFloat("COST_PER_TOKEN", 0, log),
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_PATH")); path != "" {
		if raw, err := os.ReadFile(path); err == nil {
			var fc fileConfig
			if err := yaml.Unmarshal(raw, &fc); err != nil {
				if log != nil {
					log.Warn("Could not parse config file, ignoring", "path", path, "error", err)
				}
			} else {
				if fc.Server != "" {
					cfg.ServerName = fc.Server
				}
				if fc.Version != "" {
					cfg.Version = fc.Version
				}
				cfg.Debug = fc.Debug
			}
		} else if log != nil {
			log.Warn("Config file not readable, using env only", "path", path, "error", err)
		}
	}

	return cfg
}

func GetEnv(key, defaultVal string, log *logger.Logger) string {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		if log != nil {
			log.Debug("Environment variable not found, using default", "env_var", key, "default", defaultVal)
		}
		return defaultVal
	}
	return val
}

func GetEnvAsInt(key string, defaultVal int, log *logger.Logger) int {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	i, err := strconv.Atoi(strings.TrimSpace(valStr))
	if err != nil {
		if log != nil {
			log.Debug("Environment variable could not be parsed as int, using default", "env_var", key, "providedVal", valStr, "default", defaultVal, "error", err)
		}
		return defaultVal
	}
	return i
}

func GetEnvAsFloat(key string, defaultVal float64, log *logger.Logger) float64 {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(valStr), 64)
	if err != nil {
		if log != nil {
			log.Debug("Environment variable could not be parsed as float, using default", "env_var", key, "providedVal", valStr, "default", defaultVal, "error", err)
		}
		return defaultVal
	}
	return f
}
