// Package config loads storefront settings from the environment.
// A .env file in the working directory is read first; values are then parsed
// with caarlos0/env and exposed as package-level variables.
package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	LogLevel         string
	ServerRunAddress string
	APIBaseURL       string
	APITimeout       time.Duration
	StorageDriver    string
	StorageDSN       string
	Language         string
	MockAPIAddress   string
	MockAPISecret    string
)

// Settings mirrors the package-level variables and carries the env tags.
type Settings struct {
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	ServerRunAddress string        `env:"SERVER_RUN_ADDRESS" envDefault:"0.0.0.0:8080"`
	APIBaseURL       string        `env:"API_BASE_URL" envDefault:"http://127.0.0.1:8081/api/v1"`
	APITimeout       time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	StorageDriver    string        `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	StorageDSN       string        `env:"STORAGE_DSN" envDefault:"var/storefront.db"`
	Language         string        `env:"LANGUAGE" envDefault:"zh-Hans"`
	MockAPIAddress   string        `env:"MOCKAPI_ADDRESS" envDefault:"127.0.0.1:8081"`
	MockAPISecret    string        `env:"MOCKAPI_SECRET" envDefault:"supersecretkey"`
}

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default values")
	}

	s, err := Parse(nil)
	if err != nil {
		log.Printf("Invalid environment configuration, using default values: %s", err)
		s, _ = Parse(map[string]string{})
	}
	apply(s)
}

// Parse reads Settings from environ, or from the process environment when
// environ is nil.
func Parse(environ map[string]string) (Settings, error) {
	var s Settings
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&s, opts); err != nil {
		return s, err
	}
	return s, nil
}

func apply(s Settings) {
	LogLevel = s.LogLevel
	ServerRunAddress = s.ServerRunAddress
	APIBaseURL = s.APIBaseURL
	APITimeout = s.APITimeout
	StorageDriver = s.StorageDriver
	StorageDSN = s.StorageDSN
	Language = s.Language
	MockAPIAddress = s.MockAPIAddress
	MockAPISecret = s.MockAPISecret
}
