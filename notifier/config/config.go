package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/astralibs/lending-service/pkg/kafka"
	"github.com/astralibs/lending-service/pkg/logger"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"NOTIFIER_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"NOTIFIER_HTTP_PORT" default:"8081"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"10s"`
	WriteTimeout time.Duration
}

// Webhooks are where loan events are forwarded: one channel for the
// librarians group, one for the affected borrower.
type Webhooks struct {
	LibrarianURL string `envconfig:"LIBRARIAN_WEBHOOK_URL"`
	BorrowerURL  string `envconfig:"BORROWER_WEBHOOK_URL"`
}

type Config struct {
	Server   HTTPServer `yaml:"server"`
	Kafka    kafka.Config
	Webhooks Webhooks
	Log      logger.Log `yaml:"log"`
}

var (
	once sync.Once
	cfg  Config
)

type Option func(*Config)

func WithLogLevel(level zapcore.Level) Option {
	return func(c *Config) {
		c.Log.LogLevel = level
	}
}

func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Server.WriteTimeout = timeout
	}
}

// NewConfig reads config from environment.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = config
		printConfig(cfg)
	})

	return &cfg
}

func printConfig(cfg Config) {
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
