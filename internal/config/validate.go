package config

import (
	"fmt"
	"strings"
	"time"
)

const defaultJWTSecret = "change-me-jwt-secret"

func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("app.port must be between 1 and 65535")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid app.timezone %q: %w", c.App.Timezone, err)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database.dsn must not be empty")
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("jwt.ttl must be > 0")
	}
	if c.Notify.Timeout <= 0 {
		return fmt.Errorf("notify.timeout must be > 0")
	}
	if c.RabbitMQ.Enabled && strings.TrimSpace(c.RabbitMQ.Queue) == "" {
		return fmt.Errorf("rabbitmq.queue must be set when rabbitmq is enabled")
	}
	if c.RateLimit.Capacity < 1 {
		c.RateLimit.Capacity = 1
	}
	if c.RateLimit.RefillTokens < 1 {
		c.RateLimit.RefillTokens = 1
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RateLimit.RefillInterval; c.RateLimit.TTL < minTTL {
		c.RateLimit.TTL = minTTL
	}

	if isProdLike(c.App.Env) && isEmptyOrDefault(c.JWT.Secret, defaultJWTSecret) {
		return fmt.Errorf("in prod/release jwt.secret must be set and not default")
	}

	return c.Rules.Validate()
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}
