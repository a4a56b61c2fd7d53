package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr          string
		AllowedOrigin string
	}
	API struct {
		BaseURL string
		Timeout time.Duration
	}
	Database struct {
		Path string
	}
	Session struct {
		DefaultTTL     time.Duration
		CheckInterval  time.Duration
		RefreshTimeout time.Duration
		SealKey        string
	}
	Cache struct {
		UserInfoTTL time.Duration
	}
	Auth struct {
		ProfileEndpoints []string
	}
	Storage struct {
		Driver    string // "s3" or "memory"
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
	Log struct {
		Level string
	}
}

// DefaultProfileEndpoints are tried in order when the sign-in token carries no identity.
var DefaultProfileEndpoints = []string{"user/me", "user/profile", "user/current", "auth/me"}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetEnvPrefix("HOMESTOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "127.0.0.1:8090")
	v.SetDefault("server.allowedorigin", "*")
	v.SetDefault("api.baseurl", "http://localhost:8080/api/v1")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("database.path", "data/homestock.db")
	v.SetDefault("session.defaultttl", time.Hour)
	v.SetDefault("session.checkinterval", time.Minute)
	v.SetDefault("session.refreshtimeout", 3*time.Second)
	v.SetDefault("session.sealkey", "")
	v.SetDefault("cache.userinfottl", 5*time.Minute)
	v.SetDefault("auth.profileendpoints", DefaultProfileEndpoints)
	v.SetDefault("storage.driver", "s3")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "homestock-exports")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("log.level", "info")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if len(cfg.Auth.ProfileEndpoints) == 0 {
		cfg.Auth.ProfileEndpoints = DefaultProfileEndpoints
	}

	return cfg, nil
}

func loadDotEnv() {
	file, err := os.Open(".env")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
