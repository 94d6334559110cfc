package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// StoreConfig agrupa lo necesario para abrir el backend de persistencia.
// Las herramientas que solo tocan el store la cargan sin exigir credenciales del LLM.
type StoreConfig struct {
	StoreBackend string `env:"STORE_BACKEND" envDefault:"memory" validate:"oneof=memory sqlite postgres"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"data/chat.db" validate:"required_if=StoreBackend sqlite"`
	DatabaseURL  string `env:"DATABASE_URL" validate:"required_if=StoreBackend postgres"`
}

// Config centraliza la configuración del servicio.
type Config struct {
	StoreConfig
	HTTPPort        string        `env:"HTTP_PORT" envDefault:"3000"`
	LLMAPIKey       string        `env:"LLM_API_KEY,required,notEmpty"`
	LLMBaseURL      string        `env:"LLM_BASE_URL"`
	LLMModel        string        `env:"LLM_MODEL" envDefault:"claude-haiku-4-5-20251001" validate:"required"`
	LLMMaxTokens    int64         `env:"LLM_MAX_TOKENS" envDefault:"1000" validate:"gt=0"`
	LLMSystemPrompt string        `env:"LLM_SYSTEM_PROMPT" envDefault:"You are a helpful assistant. Answer clearly and concisely."`
	LLMTimeout      time.Duration `env:"LLM_TIMEOUT" envDefault:"60s" validate:"gte=0"`
	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0" validate:"gte=0"`
	LockTTL         time.Duration `env:"LOCK_TTL" envDefault:"2m" validate:"gt=0"`
}

// LoadConfig carga la configuración desde variables de entorno y la valida.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadStoreConfig carga solo la configuración del store.
func LoadStoreConfig() (*StoreConfig, error) {
	var cfg StoreConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate revisa combinaciones que env no puede expresar (p.ej. DATABASE_URL solo con postgres).
func (c *Config) Validate() error {
	return validate(c)
}

func validate(v any) error {
	if err := validator.New().Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("config: %s failed on '%s' (value %v)", e.Field(), e.Tag(), e.Value())
		}
		return err
	}
	return nil
}
