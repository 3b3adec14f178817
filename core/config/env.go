package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

const (
	EnvDeepgramAPIKey = "DEEPGRAM_API_KEY"
	EnvAPIBaseURL     = "PREP_API_BASE_URL"
	EnvAPIToken       = "PREP_API_TOKEN"
)

// LoadEnv loads the given dotenv files (".env" when none are given) and then
// applies the environment. Missing files are skipped, variables already set
// in the environment win over the files.
func (c *Config) LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file %s: %w", file, err)
		}
	}

	if key := os.Getenv(EnvDeepgramAPIKey); key != "" {
		c.Credentials.DeepgramAPIKey = key
	}
	if token := os.Getenv(EnvAPIToken); token != "" {
		c.Credentials.APIToken = token
	}
	if baseURL := os.Getenv(EnvAPIBaseURL); baseURL != "" {
		c.API.BaseURL = baseURL
	}
	return c.Validate()
}
