package logging

import (
	"io"
	"net"
	"os"
	"time"

	logrustash "github.com/bshuster-repo/logrus-logstash-hook"
	"github.com/elastic/go-elasticsearch/v7"
	"github.com/pageza/macrolog/backend/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/go-extras/elogrus.v7"
)

const serviceName = "macrolog-api"

// New builds the application logger. Shipping hooks that fail to connect are
// reported on the logger itself and skipped.
func New(cfg *config.Config) *logrus.Logger {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg *config.Config, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.Out = out

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	if cfg.ElasticsearchURL != "" {
		client, err := elasticsearch.NewClient(elasticsearch.Config{
			Addresses: []string{cfg.ElasticsearchURL},
		})
		if err != nil {
			logger.WithError(err).Warn("elasticsearch client unavailable, log shipping disabled")
		} else if hook, err := elogrus.NewAsyncElasticHook(client, serviceName, level, cfg.ElasticsearchIndex); err != nil {
			logger.WithError(err).Warn("elasticsearch hook unavailable, log shipping disabled")
		} else {
			logger.Hooks.Add(hook)
		}
	}

	if cfg.LogstashAddr != "" {
		conn, err := net.Dial("udp", cfg.LogstashAddr)
		if err != nil {
			logger.WithError(err).Warn("logstash unreachable, log shipping disabled")
		} else {
			logger.Hooks.Add(logrustash.New(conn, logrustash.DefaultFormatter(logrus.Fields{"type": serviceName})))
		}
	}

	return logger
}
