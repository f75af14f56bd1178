package app

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/logger"
	"github.com/nlp-tlp/quickgraph-sub000/internal/utils"
)

type Config struct {
	JWTSecretKey string
	Port         string
	RedisEnabled bool
}

// fileConfig is the optional CONFIG_FILE yaml overlay. File values become
// the defaults; environment variables still win.
type fileConfig struct {
	JWTSecretKey string `yaml:"jwt_secret_key"`
	Port         string `yaml:"port"`
	RedisEnabled *bool  `yaml:"redis_enabled"`
}

func LoadConfig(log *logger.Logger) Config {
	defaults := fileConfig{
		JWTSecretKey: "defaultsecret",
		Port:         "8000",
	}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Warn("Config file unreadable, using built-in defaults", "path", path, "error", err)
		} else if err := yaml.Unmarshal(raw, &defaults); err != nil {
			log.Warn("Config file malformed, using built-in defaults", "path", path, "error", err)
		}
	}
	redisDefault := false
	if defaults.RedisEnabled != nil {
		redisDefault = *defaults.RedisEnabled
	}
	return Config{
		JWTSecretKey: utils.GetEnv("JWT_SECRET_KEY", defaults.JWTSecretKey, log),
		Port:         utils.GetEnv("PORT", defaults.Port, log),
		RedisEnabled: utils.GetEnvAsBool("REDIS_ENABLED", redisDefault, log),
	}
}
