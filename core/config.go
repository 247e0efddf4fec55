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
	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		DisableReqLogs            bool
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		AuthRateLimit             float64 // requests per second per client IP
		AuthRateBurst             int
		MaxUploadMB               int64
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite only
	}

	StorageConfig struct {
		Backend     string // local | s3
		Dir         string
		S3Bucket    string
		S3Region    string
		S3Endpoint  string
		S3AccessKey string
		S3SecretKey string
	}

	Config struct {
		Env                       string
		Build                     string
		Debug                     bool
		TestMode                  bool
		AppName                   string
		SecretKey                 string
		FrontendBaseURL           string
		PasswordResetTimeoutDelta time.Duration
		RollbarToken              string
		SendgridApiKey            string
		defaultFromEmail          string

		Server   ServerConfig
		Database DatabaseConfig
		Storage  StorageConfig
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
}

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

// NewConfig loads the app configuration from the environment.
// ENV selects the profile: DEV (local; default), TEST, QA, PROD. Variables are prefixed with it, eg. `DEV_DEBUG`.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("build", "dev")
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("appName", "ConfSys")
	v.SetDefault("secretKey", "k2v(_m1ra8-9@xd8#zq!w5l$7u3&b0cfo*e%y4n+t6h=gj)ps")
	v.SetDefault("frontendBaseURL", "http://localhost:8080")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverDebugHost", "localhost:4000")
	v.SetDefault("serverDisableReqLogs", false)
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("authRateLimit", 1.0)
	v.SetDefault("authRateBurst", 5)
	v.SetDefault("maxUploadMB", 20)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbName", "confsys")
	v.SetDefault("dbUser", "confsys")
	v.SetDefault("dbPassword", "")
	v.SetDefault("dbAdminUser", "postgres")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbDisableTLS", env == "DEV" || env == "TEST")
	v.SetDefault("dbPath", "confsys.db")

	v.SetDefault("storageBackend", "local")
	v.SetDefault("storageDir", "media")
	v.SetDefault("s3Bucket", "papers")
	v.SetDefault("s3Region", "us-east-1")
	v.SetDefault("s3Endpoint", "")
	v.SetDefault("s3AccessKey", "")
	v.SetDefault("s3SecretKey", "")

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:                       env,
		Build:                     v.GetString("build"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		AppName:                   v.GetString("appName"),
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           strings.TrimSuffix(v.GetString("frontendBaseURL"), "/"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		RollbarToken:              v.GetString("rollbarToken"),
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		defaultFromEmail:          v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Address:                   v.GetString("serverAddress"),
			DebugHost:                 v.GetString("serverDebugHost"),
			DisableReqLogs:            v.GetBool("serverDisableReqLogs"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			AuthRateLimit:             v.GetFloat64("authRateLimit"),
			AuthRateBurst:             v.GetInt("authRateBurst"),
			MaxUploadMB:               v.GetInt64("maxUploadMB"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
			Path:          v.GetString("dbPath"),
		},
		Storage: StorageConfig{
			Backend:     v.GetString("storageBackend"),
			Dir:         v.GetString("storageDir"),
			S3Bucket:    v.GetString("s3Bucket"),
			S3Region:    v.GetString("s3Region"),
			S3Endpoint:  v.GetString("s3Endpoint"),
			S3AccessKey: v.GetString("s3AccessKey"),
			S3SecretKey: v.GetString("s3SecretKey"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests: sqlite engine, no request logs, no external services.
func NewTestConfig() *Config {
	return &Config{
		Env:                       "TEST",
		Build:                     "test",
		TestMode:                  true,
		AppName:                   "ConfSys",
		SecretKey:                 "secret",
		FrontendBaseURL:           "http://localhost:8080",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		defaultFromEmail:          "noreply@localhost",
		Server: ServerConfig{
			Host:                      "localhost",
			DisableReqLogs:            true,
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			AuthRateLimit:             1000,
			AuthRateBurst:             1000,
			MaxUploadMB:               20,
		},
		Database: DatabaseConfig{Engine: "sqlite"},
		Storage:  StorageConfig{Backend: "local"},
	}
}
