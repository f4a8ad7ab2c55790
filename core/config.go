package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env      string
		Debug    bool
		TestMode bool

		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail string
		SendgridAPIKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
		Graph    GraphConfig
	}

	ServerConfig struct {
		Host                      string
		Port                      int
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		// Engine selects the snapshot backend: "memory", "sqlite" or "postgres".
		Engine string
		// Path is the SQLite database file (sqlite engine only).
		Path string

		Host     string
		Port     int
		Name     string
		User     string
		Password string
		// DisableTLS should only be used in DEV.
		DisableTLS bool
	}

	GraphConfig struct {
		BaseURL string
		// AccessToken authorizes Graph calls; empty disables the collaborator.
		AccessToken string
		// Timezone is sent as the `Prefer: outlook.timezone` header value.
		Timezone string
		// TeamsChannelURL is the static fallback meeting link used when no
		// Graph authorization is available.
		TeamsChannelURL string
	}
)

func (sc ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", sc.Host, sc.Port)
}

func (dc DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", dc.Host, dc.Port)
}

// NewConfig loads the app configuration from the environment.
// A `config/.env.<env>` file is loaded first if it exists.
func NewConfig() (*Config, error) {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)

	// defaults
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "PeerHive")
	conf.SetDefault("secretKey", "q0ch&a!n$+57=dz&u0xh2(h!x)#*c2(#yg4h^$cegm2emy")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("sendgridAPIKey", "")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("server.host", "")
	conf.SetDefault("server.port", 8000)
	conf.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	conf.SetDefault("database.engine", "sqlite")
	conf.SetDefault("database.path", "peerhive.db")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", 5432)
	conf.SetDefault("database.name", "peerhive")
	conf.SetDefault("database.user", "")
	conf.SetDefault("database.password", "")
	conf.SetDefault("database.disableTLS", false)
	conf.SetDefault("graph.baseURL", "https://graph.microsoft.com/v1.0")
	conf.SetDefault("graph.accessToken", "")
	conf.SetDefault("graph.timezone", "UTC")
	conf.SetDefault("graph.teamsChannelURL", "https://teams.microsoft.com/l/channel/peerhive")

	env := os.Getenv("ENV") // DEV (default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	conf.SetDefault("testMode", env == "TEST")
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	conf.AutomaticEnv()

	config := &Config{Env: env}
	if err := conf.Unmarshal(config); err != nil {
		return nil, errors.Wrap(err, "unmarshalling config")
	}
	return config, nil
}
