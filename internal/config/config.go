package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"referral-hub/internal/domain"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr        string
		AllowOrigin string
	}
	Log struct {
		Level string
	}
	Dev struct {
		Seed             bool
		ReferralCode     string
		Referrals        int
		ReferralEarnings float64
		Multiplier       float64
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("REFERRAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("server.alloworigin", "*")
	v.SetDefault("log.level", "info")
	v.SetDefault("dev.seed", false)
	v.SetDefault("dev.referralcode", "")
	v.SetDefault("dev.referrals", 0)
	v.SetDefault("dev.referralearnings", 0.0)
	v.SetDefault("dev.multiplier", 1.0)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// SeedUser returns the development user configured under dev.*, or nil when
// seeding is off.
func (c Config) SeedUser() *domain.User {
	if !c.Dev.Seed {
		return nil
	}
	user := &domain.User{
		Referrals:        domain.Ptr(c.Dev.Referrals),
		ReferralEarnings: domain.Ptr(c.Dev.ReferralEarnings),
		Multiplier:       domain.Ptr(c.Dev.Multiplier),
	}
	if code := strings.TrimSpace(c.Dev.ReferralCode); code != "" {
		user.ReferralCode = domain.Ptr(code)
	}
	return user
}

// loadDotEnv exports the variables in path that are not already set. A
// missing file is not an error.
func loadDotEnv(path string) error {
	if err := gotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
