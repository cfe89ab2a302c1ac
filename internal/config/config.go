package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config carries everything the API process needs at startup. Values come
// from the environment, optionally seeded from a local .env file.
type Config struct {
	Port        int      `envconfig:"PORT" default:"8080"`
	DatabaseURL string   `envconfig:"DATABASE_URL" required:"true"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
	DemoMode    bool     `envconfig:"DEMO_MODE" default:"false"`

	// AMQPURL enables lifecycle event publishing when set.
	AMQPURL    string `envconfig:"AMQP_URL"`
	MQExchange string `envconfig:"MQ_EXCHANGE" default:"roomappt.events"`
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	return cfg, nil
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
