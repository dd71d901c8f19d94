package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gopkg.in/yaml.v3"
)

type SiteConfig struct {
	Token       string `yaml:"token"`
	SiteID      string `yaml:"site_id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
	Language    string `yaml:"language"`
	BaseURL     string `yaml:"base_url"`
}

type ActivityConfig struct {
	Workers   int    `yaml:"workers"`
	QueueSize int    `yaml:"queue_size"`
	RedisKey  string `yaml:"redis_key"`
	RedisMax  int64  `yaml:"redis_max"`
}

type Config struct {
	Server          string         `yaml:"server"`
	Database        string         `yaml:"database"`
	Dsn             string         `yaml:"dsn"`
	RedisURL        string         `yaml:"redis_url"`
	Token           string         `yaml:"token"`
	Translations    string         `yaml:"translations"`
	PostBlockExpire string         `yaml:"post_block_expire"`
	LogLevel        string         `yaml:"log_level"`
	LogText         bool           `yaml:"log_text"`
	Depths          map[string]int `yaml:"depths"`
	Activity        ActivityConfig `yaml:"activity"`
	Sites           []SiteConfig   `yaml:"sites"`
}

func NewConfig() *Config {
	return &Config{
		Server:          ":8080",
		Database:        "sqlite",
		Dsn:             "./db/sitetree.sqlite",
		Token:           "X-Site-Token",
		Translations:    "./translations",
		PostBlockExpire: "10s",
		LogLevel:        "info",
		Activity: ActivityConfig{
			Workers:   2,
			QueueSize: 256,
			RedisMax:  10000,
		},
	}
}

// Load applies, in order, the YAML file named by -config, the environment
// and the remaining command line flags.
func (c *Config) Load(args []string) error {
	fs := flag.NewFlagSet("sitetree", flag.ContinueOnError)
	configFile := fs.String("config", getenv("SITETREE_CONFIG", ""), "YAML configuration file")
	server := fs.String("server", "", "listen address")
	database := fs.String("database", "", "database driver: memory, sqlite or postgres")
	dsn := fs.String("dsn", "", "database connection string")
	redisURL := fs.String("redis", "", "redis URL for the read cache and activity log")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")
	if len(args) > 0 {
		args = args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *configFile != "" {
		if err := c.loadFile(*configFile); err != nil {
			return err
		}
	}
	c.loadEnv()

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "server":
			c.Server = *server
		case "database":
			c.Database = *database
		case "dsn":
			c.Dsn = *dsn
		case "redis":
			c.RedisURL = *redisURL
		case "log-level":
			c.LogLevel = *logLevel
		}
	})
	if len(c.Sites) == 0 {
		c.Sites = []SiteConfig{defaultSite()}
	}
	return c.Validate()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) loadEnv() {
	c.Server = getenv("SITETREE_SERVER", c.Server)
	if port := os.Getenv("PORT"); port != "" {
		c.Server = ":" + port
	}
	c.Database = getenv("SITETREE_DATABASE", c.Database)
	c.Dsn = getenv("DATABASE_URL", c.Dsn)
	c.RedisURL = getenv("REDIS_URL", c.RedisURL)
	c.LogLevel = getenv("LOG_LEVEL", c.LogLevel)
	c.PostBlockExpire = getenv("SITETREE_POST_BLOCK_EXPIRE", c.PostBlockExpire)
	c.Activity.Workers = getenvInt("SITETREE_ACTIVITY_WORKERS", c.Activity.Workers)
	c.Activity.QueueSize = getenvInt("SITETREE_ACTIVITY_QUEUE", c.Activity.QueueSize)
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server, validation.Required),
		validation.Field(&c.Database, validation.Required, validation.In("memory", "sqlite", "postgres")),
		validation.Field(&c.Dsn, validation.When(c.Database != "memory", validation.Required)),
		validation.Field(&c.RedisURL, is.RequestURL),
		validation.Field(&c.Token, validation.Required),
		validation.Field(&c.PostBlockExpire, validation.Required, validation.By(isDuration)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "warning", "error")),
		validation.Field(&c.Activity),
		validation.Field(&c.Sites, validation.Required),
	)
}

func (a ActivityConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Workers, validation.Min(1)),
		validation.Field(&a.QueueSize, validation.Min(1)),
		validation.Field(&a.RedisMax, validation.Min(int64(0))),
	)
}

func (sc SiteConfig) Validate() error {
	return validation.ValidateStruct(&sc,
		validation.Field(&sc.SiteID, validation.Required),
		validation.Field(&sc.AuthorEmail, is.EmailFormat),
		validation.Field(&sc.BaseURL, is.URL),
	)
}

func isDuration(value interface{}) error {
	s, _ := value.(string)
	if _, err := time.ParseDuration(s); err != nil {
		return validation.NewError("validation_is_duration", "must be a duration such as 10s")
	}
	return nil
}

func (c *Config) blockDuration() time.Duration {
	d, _ := time.ParseDuration(c.PostBlockExpire)
	return d
}

func defaultSite() SiteConfig {
	return SiteConfig{SiteID: "1", Title: "Site", Language: "en"}
}

// getSiteConfig returns the site owning token, or the first site when no
// site matches.
func (c *Config) getSiteConfig(token string) *SiteConfig {
	for i := range c.Sites {
		if token != "" && c.Sites[i].Token == token {
			return &c.Sites[i]
		}
	}
	if len(c.Sites) == 0 {
		sc := defaultSite()
		return &sc
	}
	return &c.Sites[0]
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
