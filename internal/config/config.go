package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultSystemPrompt is the instruction sent with every completion unless
// overridden by SYSTEM_PROMPT or the runtime settings.
const DefaultSystemPrompt = "You are a helpful AI assistant. Provide clear, concise, and helpful responses. " +
	"If someone asks you to generate, create, make, or draw an image, politely let them know they should use " +
	"specific image generation keywords like 'generate image of...' or 'create a picture of...'"

type Config struct {
	AppPort  int    `mapstructure:"APP_PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFormat is "json" or "console".
	LogFormat string `mapstructure:"LOG_FORMAT"`

	DatabaseDriver string        `mapstructure:"DATABASE_DRIVER"`
	DatabasePath   string        `mapstructure:"DATABASE_PATH"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	RedisAddr      string        `mapstructure:"REDIS_ADDR"`
	ChatCacheTTL   time.Duration `mapstructure:"CHAT_CACHE_TTL"`

	LLMProvider     string `mapstructure:"LLM_PROVIDER"`
	OpenAIAPIKey    string `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `mapstructure:"OPENAI_BASE_URL"`
	OpenAIModel     string `mapstructure:"OPENAI_MODEL"`
	AnthropicAPIKey string `mapstructure:"ANTHROPIC_API_KEY"`
	AnthropicURL    string `mapstructure:"ANTHROPIC_BASE_URL"`
	AnthropicModel  string `mapstructure:"ANTHROPIC_MODEL"`
	GeminiAPIKey    string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel     string `mapstructure:"GEMINI_MODEL"`
	OllamaURL       string `mapstructure:"OLLAMA_URL"`
	OllamaModel     string `mapstructure:"OLLAMA_MODEL"`
	SystemPrompt    string `mapstructure:"SYSTEM_PROMPT"`

	ImageProvider       string `mapstructure:"IMAGE_PROVIDER"`
	FalKey              string `mapstructure:"FAL_KEY"`
	FalURL              string `mapstructure:"FAL_URL"`
	ImageSize           string `mapstructure:"IMAGE_SIZE"`
	ImageSteps          int    `mapstructure:"IMAGE_STEPS"`
	PlaceholderImageURL string `mapstructure:"PLACEHOLDER_IMAGE_URL"`

	RemoteTimeout  time.Duration `mapstructure:"REMOTE_TIMEOUT"`
	PersistTimeout time.Duration `mapstructure:"PERSIST_TIMEOUT"`
	SessionIdleTTL time.Duration `mapstructure:"SESSION_IDLE_TTL"`

	JWTSecret          string        `mapstructure:"JWT_SECRET"`
	CORSAllowedOrigins []string      `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RateLimitRequests  int           `mapstructure:"RATE_LIMIT_REQUESTS"`
	RateLimitWindow    time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`

	NATSURL           string `mapstructure:"NATS_URL"`
	NATSSubjectPrefix string `mapstructure:"NATS_SUBJECT_PREFIX"`

	TracingEnabled  bool   `mapstructure:"TRACING_ENABLED"`
	TracingEndpoint string `mapstructure:"TRACING_ENDPOINT"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", 8000)
	v.SetDefault("LOG_LEVEL", "INFO")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_PATH", "/data/pictochat.db")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("CHAT_CACHE_TTL", "5m")

	v.SetDefault("LLM_PROVIDER", "openai")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_BASE_URL", "")
	v.SetDefault("OPENAI_MODEL", "gpt-3.5-turbo")
	v.SetDefault("ANTHROPIC_API_KEY", "")
	v.SetDefault("ANTHROPIC_BASE_URL", "")
	v.SetDefault("ANTHROPIC_MODEL", "claude-3-5-haiku-latest")
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash-latest")
	v.SetDefault("OLLAMA_URL", "http://localhost:11434")
	v.SetDefault("OLLAMA_MODEL", "llama3.2")
	v.SetDefault("SYSTEM_PROMPT", DefaultSystemPrompt)

	v.SetDefault("IMAGE_PROVIDER", "fal")
	v.SetDefault("FAL_KEY", "")
	v.SetDefault("FAL_URL", "https://fal.run/fal-ai/flux/schnell")
	v.SetDefault("IMAGE_SIZE", "square_hd")
	v.SetDefault("IMAGE_STEPS", 4)
	v.SetDefault("PLACEHOLDER_IMAGE_URL", "/placeholder.svg")

	v.SetDefault("REMOTE_TIMEOUT", "60s")
	v.SetDefault("PERSIST_TIMEOUT", "10s")
	v.SetDefault("SESSION_IDLE_TTL", "30m")

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"})
	v.SetDefault("RATE_LIMIT_REQUESTS", 60)
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")

	v.SetDefault("NATS_URL", "")
	v.SetDefault("NATS_SUBJECT_PREFIX", "pictochat")

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_ENDPOINT", "localhost:4318")
}

// LoadConfig reads .env from the working directory (or ./backend), then lets
// environment variables override it. Every key has a default.
func LoadConfig() (*Config, error) {
	return load(viper.GetViper())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.CORSAllowedOrigins = splitList(cfg.CORSAllowedOrigins)

	return &cfg, nil
}

// splitList accepts both a real list and a single comma separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
