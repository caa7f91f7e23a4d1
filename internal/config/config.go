package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	AppPort string

	DBHost    string
	DBPort    string
	DBUser    string
	DBPass    string
	DBName    string
	DBSSLMode string

	RedisAddr string
	RedisDB   int

	IdempTTLSecs int

	// Seed values used the first time approval settings are created.
	DefaultManagerThreshold string
	DefaultAdminThreshold   string
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func Load() *Config {
	c := &Config{
		AppPort:   getenv("PORT", "8080"),
		DBHost:    getenv("DB_HOST", "localhost"),
		DBPort:    getenv("DB_PORT", "5432"),
		DBUser:    getenv("DB_USER", "postgres"),
		DBPass:    getenv("DB_PASSWORD", "postgres"),
		DBName:    getenv("DB_NAME", "postgres"),
		DBSSLMode: getenv("DB_SSLMODE", "disable"),

		RedisAddr:    getenv("REDIS_ADDR", "localhost:6379"),
		IdempTTLSecs: 300,

		DefaultManagerThreshold: getenv("APPROVAL_MANAGER_THRESHOLD", "10"),
		DefaultAdminThreshold:   getenv("APPROVAL_ADMIN_THRESHOLD", "25"),
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RedisDB = n
		}
	}
	if v := os.Getenv("IDEMPOTENCY_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.IdempTTLSecs = n
		}
	}
	return c
}

func (c *Config) Validate() error {
	if c.DBHost == "" || c.DBPort == "" || c.DBName == "" || c.DBUser == "" {
		return errors.New("missing database config (DB_HOST/PORT/NAME/USER)")
	}
	if c.AppPort == "" {
		return errors.New("missing PORT")
	}
	return nil
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}
