package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Aman-CERP/docsearch/internal/config"
	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/source"
	"github.com/Aman-CERP/docsearch/pkg/document"
)

// Source kinds accepted by --source.
const (
	sourceJSONL = "jsonl"
	sourceSQL   = "sql"
	sourceRedis = "redis"
	sourceKafka = "kafka"
)

// jsonlPath returns file, or the configured JSONL path resolved against
// the project root.
func jsonlPath(cfg *config.Config, root, file string) (string, error) {
	if file != "" {
		return filepath.Abs(file)
	}
	path := cfg.Sources.JSONL.Path
	if path == "" {
		return "", errors.ValidationError("no JSONL file given", nil).
			WithSuggestion("Pass --file or set sources.jsonl.path")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	return path, nil
}

// openProvider builds the provider of kind from the configuration. The
// returned release function frees the connection behind the provider.
func openProvider(ctx context.Context, cfg *config.Config, root, kind, file string) (document.Provider, func(), error) {
	noop := func() {}

	switch strings.ToLower(kind) {
	case sourceJSONL:
		path, err := jsonlPath(cfg, root, file)
		if err != nil {
			return nil, nil, err
		}
		return source.NewJSONLProvider(path), noop, nil

	case sourceSQL:
		sc := cfg.Sources.SQL
		if sc.Query == "" {
			return nil, nil, errors.ValidationError("sources.sql.query is required", nil)
		}
		db, err := source.OpenSQL(ctx, sc.Driver, sc.DSN)
		if err != nil {
			return nil, nil, err
		}
		return source.NewSQLProvider(db, sc.Query), func() { _ = db.Close() }, nil

	case sourceRedis:
		rc := cfg.Sources.Redis
		client, err := source.NewRedisClient(ctx, rc.Addr, rc.Password, rc.DB)
		if err != nil {
			return nil, nil, err
		}
		return source.NewRedisProvider(client, rc.Pattern, rc.KeyField), func() { _ = client.Close() }, nil

	case sourceKafka:
		kc := cfg.Sources.Kafka
		var idle time.Duration
		if kc.IdleTimeout != "" {
			d, err := time.ParseDuration(kc.IdleTimeout)
			if err != nil {
				return nil, nil, errors.ConfigError("sources.kafka.idle_timeout is not a duration", err)
			}
			idle = d
		}
		return source.NewKafkaProvider(source.KafkaConfig{
			Brokers:     kc.Brokers,
			Topic:       kc.Topic,
			GroupID:     kc.GroupID,
			MaxMessages: kc.MaxMessages,
			IdleTimeout: idle,
		}), noop, nil

	default:
		return nil, nil, errors.ValidationError(
			fmt.Sprintf("unknown source %q: use jsonl, sql, redis or kafka", kind), nil)
	}
}
