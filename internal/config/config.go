package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		Driver string
		DSN    string
		Schema string
	}
	Garden struct {
		StartDate     string
		Timezone      string
		CutoffHour    int
		GardeningDays int
		Users         []string
		MembersFile   string
	}
	Slack struct {
		Token         string
		ChannelID     string
		NotifyChannel string
	}
	Telegram struct {
		Token  string
		ChatID int64
	}
	Collect struct {
		Interval     time.Duration
		LookbackDays int
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
	Auth struct {
		JWTSecret        string
		RegisterPassword string
		TokenTTLMinutes  int
	}

	// Parsed from Garden.Timezone and Garden.StartDate by Load.
	Location *time.Location `mapstructure:"-"`
	StartOn  time.Time      `mapstructure:"-"`
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	// .env never overrides variables already present in the environment.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GARDEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.dsn", "data/garden.db")
	v.SetDefault("database.schema", "")
	v.SetDefault("garden.startdate", "2019-10-01")
	v.SetDefault("garden.timezone", "Asia/Seoul")
	v.SetDefault("garden.cutoffhour", 4)
	v.SetDefault("garden.gardeningdays", 100)
	v.SetDefault("garden.users", []string{})
	v.SetDefault("garden.membersfile", "users.yaml")
	v.SetDefault("slack.token", "")
	v.SetDefault("slack.channelid", "")
	v.SetDefault("slack.notifychannel", "")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chatid", 0)
	v.SetDefault("collect.interval", time.Duration(0))
	v.SetDefault("collect.lookbackdays", 1)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "garden-exports")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.registerpassword", "")
	v.SetDefault("auth.tokenttlminutes", 720)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.finalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) finalize() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	loc, err := time.LoadLocation(c.Garden.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", c.Garden.Timezone, err)
	}
	c.Location = loc

	start, err := time.ParseInLocation("2006-01-02", c.Garden.StartDate, loc)
	if err != nil {
		return fmt.Errorf("parse garden start date: %w", err)
	}
	c.StartOn = start

	if c.Garden.CutoffHour < 0 || c.Garden.CutoffHour > 23 {
		return fmt.Errorf("garden cutoff hour must be within 0..23, got %d", c.Garden.CutoffHour)
	}
	if c.Collect.LookbackDays < 0 {
		c.Collect.LookbackDays = 0
	}

	users := make([]string, 0, len(c.Garden.Users))
	for _, raw := range c.Garden.Users {
		for _, u := range strings.Split(raw, ",") {
			if u = strings.TrimSpace(u); u != "" {
				users = append(users, u)
			}
		}
	}
	c.Garden.Users = users
	return nil
}
