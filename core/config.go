package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env                       string // DEV (local; default), TEST, QA, PROD
		Build                     string
		Debug                     bool
		TestMode                  bool
		AppName                   string
		SecretKey                 string
		FrontendBaseURL           string
		DefaultFromEmail          mail.Address
		SendgridApiKey            string
		RollbarToken              string
		PasswordResetTimeoutDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		OpenAI   OpenAIConfig
		Invite   InviteConfig
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		AllowedOrigins            []string
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		RateLimit                 float64 // requests per second on sensitive endpoints
		RateBurst                 int
		PurgeSchedule             string // cron spec for the expired invites purge
	}

	DatabaseConfig struct {
		Engine          string
		Host            string
		Port            string
		Name            string
		User            string
		Password        string
		AdminUser       string
		AdminPassword   string
		DisableTLS      bool
		MaxOpenConns    int
		MaxIdleConns    int
		ConnMaxLifetime time.Duration
		InMemory        bool // use the in-memory store instead of postgres
	}

	RedisConfig struct {
		Enabled  bool
		Address  string
		Password string
		DB       int
	}

	OpenAIConfig struct {
		APIKey    string
		BaseURL   string
		Model     string
		MaxTokens int
		Timeout   time.Duration
	}

	InviteConfig struct {
		TTL        time.Duration
		CodeLength int
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

// NewConfig loads the configuration from the environment (and the matching .env file if any).
// Variables are prefixed with the environment name, eg. DEV_SECRETKEY, PROD_DATABASE_HOST.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	fromEmail, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}

	return &Config{
		Env:                       env,
		Build:                     v.GetString("build"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		AppName:                   v.GetString("appName"),
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           strings.TrimSuffix(v.GetString("frontendBaseURL"), "/"),
		DefaultFromEmail:          *fromEmail,
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		RollbarToken:              v.GetString("rollbarToken"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugHost:                 v.GetString("server.debugHost"),
			AllowedOrigins:            v.GetStringSlice("server.allowedOrigins"),
			ReadTimeout:               v.GetDuration("server.readTimeout"),
			WriteTimeout:              v.GetDuration("server.writeTimeout"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			RateLimit:                 v.GetFloat64("server.rateLimit"),
			RateBurst:                 v.GetInt("server.rateBurst"),
			PurgeSchedule:             v.GetString("server.purgeSchedule"),
		},
		Database: DatabaseConfig{
			Engine:          v.GetString("database.engine"),
			Host:            v.GetString("database.host"),
			Port:            v.GetString("database.port"),
			Name:            v.GetString("database.name"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			AdminUser:       v.GetString("database.adminUser"),
			AdminPassword:   v.GetString("database.adminPassword"),
			DisableTLS:      v.GetBool("database.disableTLS"),
			MaxOpenConns:    v.GetInt("database.maxOpenConns"),
			MaxIdleConns:    v.GetInt("database.maxIdleConns"),
			ConnMaxLifetime: v.GetDuration("database.connMaxLifetime"),
			InMemory:        v.GetBool("database.inMemory"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		OpenAI: OpenAIConfig{
			APIKey:    v.GetString("openai.apiKey"),
			BaseURL:   v.GetString("openai.baseURL"),
			Model:     v.GetString("openai.model"),
			MaxTokens: v.GetInt("openai.maxTokens"),
			Timeout:   v.GetDuration("openai.timeout"),
		},
		Invite: InviteConfig{
			TTL:        v.GetDuration("invite.ttl"),
			CodeLength: v.GetInt("invite.codeLength"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Grupka")
	v.SetDefault("secretKey", "m1x&9k$e(h3r7q+2w@zp4t!u8v#0sd^bnc5l=fy6ga*jo")
	v.SetDefault("frontendBaseURL", "http://localhost:4321")
	v.SetDefault("defaultFromEmail", "Grupka <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", "localhost:4000")
	v.SetDefault("server.allowedOrigins", []string{"http://localhost:4321"})
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 10*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 30*24*time.Hour)
	v.SetDefault("server.rateLimit", 1.0)
	v.SetDefault("server.rateBurst", 5)
	v.SetDefault("server.purgeSchedule", "@every 30m")

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "grupka")
	v.SetDefault("database.user", "grupka")
	v.SetDefault("database.password", "grupka")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.maxOpenConns", 10)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 30*time.Minute)
	v.SetDefault("database.inMemory", false)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("openai.apiKey", "")
	v.SetDefault("openai.baseURL", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.maxTokens", 300)
	v.SetDefault("openai.timeout", 20*time.Second)

	v.SetDefault("invite.ttl", 60*time.Minute)
	v.SetDefault("invite.codeLength", 8)
}

// NewTestConfig returns a Config suitable for tests: no external services, short-lived tokens.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v)
	v.Set("testMode", true)
	v.Set("debug", false)
	v.Set("secretKey", "secret")
	v.Set("database.inMemory", true)
	v.Set("server.jwtExpirationDelta", 10*time.Minute)
	v.Set("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.Set("server.rateLimit", 1000.0)
	v.Set("server.rateBurst", 1000)

	return &Config{
		Env:                       "TEST",
		Build:                     v.GetString("build"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		AppName:                   v.GetString("appName"),
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           v.GetString("frontendBaseURL"),
		DefaultFromEmail:          mail.Address{Name: "Grupka", Address: "noreply@localhost"},
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			RateLimit:                 v.GetFloat64("server.rateLimit"),
			RateBurst:                 v.GetInt("server.rateBurst"),
			PurgeSchedule:             v.GetString("server.purgeSchedule"),
		},
		Database: DatabaseConfig{InMemory: true},
		OpenAI: OpenAIConfig{
			Model:     v.GetString("openai.model"),
			MaxTokens: v.GetInt("openai.maxTokens"),
			Timeout:   v.GetDuration("openai.timeout"),
		},
		Invite: InviteConfig{
			TTL:        v.GetDuration("invite.ttl"),
			CodeLength: v.GetInt("invite.codeLength"),
		},
	}
}
