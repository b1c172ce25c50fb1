package core

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		Addr                      string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		TablePrefix   string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	Config struct {
		Env              string // DEV (default) | TEST | QA | PROD
		Debug            bool
		TestMode         bool
		AppName          string
		Build            string
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail string
		SendgridAPIKey   string
		RollbarToken     string

		// AssignmentCacheTTL bounds how stale a teacher's cached grade
		// assignments may get before the next upstream refresh.
		AssignmentCacheTTL time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

// NewConfig loads the app configuration from the environment,
// with an optional .env.<env> file under ./config.
func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Darasa")
	v.SetDefault("secretKey", "w3=r!o5#ym$9dz&u0xh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("assignmentCacheTTL", 15*time.Minute)
	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbName", "darasa")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbDisableTLS", true)
	v.SetDefault("redisAddr", "localhost:6379")

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:                env,
		Debug:              v.GetBool("debug"),
		TestMode:           env == "TEST",
		AppName:            v.GetString("appName"),
		Build:              v.GetString("build"),
		SecretKey:          v.GetString("secretKey"),
		FrontendBaseURL:    v.GetString("frontendBaseURL"),
		DefaultFromEmail:   v.GetString("defaultFromEmail"),
		SendgridAPIKey:     v.GetString("sendgridAPIKey"),
		RollbarToken:       v.GetString("rollbarToken"),
		AssignmentCacheTTL: v.GetDuration("assignmentCacheTTL"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Addr:                      v.GetString("serverAddr"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			TablePrefix:   v.GetString("dbTablePrefix"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redisAddr"),
			Password: v.GetString("redisPassword"),
			DB:       v.GetInt("redisDB"),
		},
	}
	return conf, nil
}
