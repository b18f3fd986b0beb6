package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	DatabaseURL         string
	AutoMigrate         bool
	RedisURL            string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string
	FactorAdminKeyHash  string // bcrypt hash of the X-Admin-Key accepted by POST /factors/sync
	ActivityMappingFile string // optional YAML overriding the embedded activity mapping
	DefaultCountryCode  string // ISO code used when a calculation names no country
	FactorCacheTTL      time.Duration
	CalculationLockTTL  time.Duration
	LogLevel            string
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("AUTO_MIGRATE", true)
	viper.SetDefault("FACTOR_CACHE_TTL", "6h")
	viper.SetDefault("CALCULATION_LOCK_TTL", "30s")
	viper.SetDefault("LOG_LEVEL", "info")

	env := viper.GetString("NODE_ENV")
	if env == "" {
		env = viper.GetString("APP_ENV")
	}
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL_DEV")
	}

	return &Config{
		Env:                 env,
		Port:                viper.GetString("PORT"),
		DatabaseURL:         dbURL,
		AutoMigrate:         viper.GetBool("AUTO_MIGRATE"),
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		FactorAdminKeyHash:  viper.GetString("FACTOR_ADMIN_KEY_HASH"),
		ActivityMappingFile: viper.GetString("ACTIVITY_MAPPING_FILE"),
		DefaultCountryCode:  strings.ToUpper(strings.TrimSpace(viper.GetString("DEFAULT_COUNTRY_CODE"))),
		FactorCacheTTL:      viper.GetDuration("FACTOR_CACHE_TTL"),
		CalculationLockTTL:  viper.GetDuration("CALCULATION_LOCK_TTL"),
		LogLevel:            viper.GetString("LOG_LEVEL"),
	}, nil
}
