package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	// Config carries all application settings. It is loaded once in main and
	// handed down to every component; no package reads the environment on its own.
	Config struct {
		Debug            bool
		TestMode         bool
		Env              string
		Build            string
		AppName          string
		WorkDir          string
		SecretKey        string
		DefaultFromEmail mail.Address
		AlertsEmail      mail.Address
		SendgridAPIKey   string
		RollbarToken     string

		Server   ServerConfig
		Upstream UpstreamConfig
		Session  SessionConfig
		Health   HealthConfig
		Cache    CacheConfig
		Redis    RedisConfig
		Database DatabaseConfig
	}

	ServerConfig struct {
		Host            string
		Addr            string
		DebugHost       string
		BaseURL         string
		CookieDomain    string
		SecureCookies   bool
		ShutdownTimeout time.Duration
	}

	UpstreamConfig struct {
		BaseURL      string
		Timeout      time.Duration
		ProbeTimeout time.Duration
	}

	SessionConfig struct {
		TTL           time.Duration
		FreshFor      time.Duration
		WatchInterval time.Duration
	}

	HealthConfig struct {
		Interval time.Duration
	}

	CacheConfig struct {
		ShortTTL  time.Duration
		MediumTTL time.Duration
		LongTTL   time.Duration
		Retention time.Duration
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
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
		DisableTLS    bool
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

// NewConfig loads config/.env.<env> (if present), applies defaults and
// environment overrides, and returns the resulting Config.
// Env vars are prefixed with the environment name, e.g. DEV_SECRETKEY.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	workDir := Getwd()

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Darasa")
	v.SetDefault("secretKey", "w3p(r$kmx!0d-1c+ub@q5t8&yg#z7_ovh4j*f6ne9s2la%i)")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("alertsEmail", "ops@localhost")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddr", ":8080")
	v.SetDefault("serverDebugHost", "localhost:4000")
	v.SetDefault("serverBaseUrl", "http://localhost:8080")
	v.SetDefault("cookieDomain", "")
	v.SetDefault("secureCookies", false)
	v.SetDefault("shutdownTimeout", 20*time.Second)

	v.SetDefault("upstreamBaseUrl", "http://localhost:8000/api")
	v.SetDefault("upstreamTimeout", 10*time.Second)
	v.SetDefault("upstreamProbeTimeout", 5*time.Second)

	v.SetDefault("sessionTtl", 24*time.Hour)
	v.SetDefault("sessionFreshFor", time.Minute)
	v.SetDefault("sessionWatchInterval", time.Minute)

	v.SetDefault("healthInterval", 30*time.Second)

	v.SetDefault("cacheShortTtl", time.Minute)
	v.SetDefault("cacheMediumTtl", 5*time.Minute)
	v.SetDefault("cacheLongTtl", 15*time.Minute)
	v.SetDefault("cacheRetention", time.Hour)

	v.SetDefault("redisAddr", "")
	v.SetDefault("redisPassword", "")
	v.SetDefault("redisDb", 0)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbName", "")
	v.SetDefault("dbUser", "darasa")
	v.SetDefault("dbPassword", "")
	v.SetDefault("dbAdminUser", "")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbDisableTls", true)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.SetEnvPrefix(env)
	v.AutomaticEnv()

	return &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		Env:              env,
		Build:            v.GetString("build"),
		AppName:          v.GetString("appName"),
		WorkDir:          workDir,
		SecretKey:        v.GetString("secretKey"),
		DefaultFromEmail: mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		AlertsEmail:      mail.Address{Address: v.GetString("alertsEmail")},
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            v.GetString("serverHost"),
			Addr:            v.GetString("serverAddr"),
			DebugHost:       v.GetString("serverDebugHost"),
			BaseURL:         v.GetString("serverBaseUrl"),
			CookieDomain:    v.GetString("cookieDomain"),
			SecureCookies:   v.GetBool("secureCookies"),
			ShutdownTimeout: v.GetDuration("shutdownTimeout"),
		},
		Upstream: UpstreamConfig{
			BaseURL:      strings.TrimRight(v.GetString("upstreamBaseUrl"), "/"),
			Timeout:      v.GetDuration("upstreamTimeout"),
			ProbeTimeout: v.GetDuration("upstreamProbeTimeout"),
		},
		Session: SessionConfig{
			TTL:           v.GetDuration("sessionTtl"),
			FreshFor:      v.GetDuration("sessionFreshFor"),
			WatchInterval: v.GetDuration("sessionWatchInterval"),
		},
		Health: HealthConfig{
			Interval: v.GetDuration("healthInterval"),
		},
		Cache: CacheConfig{
			ShortTTL:  v.GetDuration("cacheShortTtl"),
			MediumTTL: v.GetDuration("cacheMediumTtl"),
			LongTTL:   v.GetDuration("cacheLongTtl"),
			Retention: v.GetDuration("cacheRetention"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redisAddr"),
			Password: v.GetString("redisPassword"),
			DB:       v.GetInt("redisDb"),
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
			DisableTLS:    v.GetBool("dbDisableTls"),
		},
	}
}
