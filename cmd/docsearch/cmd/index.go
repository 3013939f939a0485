package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/output"
	"github.com/Aman-CERP/docsearch/internal/source"
	"github.com/Aman-CERP/docsearch/internal/watcher"
	"github.com/Aman-CERP/docsearch/pkg/document"
	"github.com/Aman-CERP/docsearch/pkg/indexer"
)

// indexOptions holds CLI flags for index.
type indexOptions struct {
	source string // jsonl, sql, redis, kafka
	file   string
	watch  bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index documents from a source",
		Long: `Index documents from a JSONL file, a SQL query, Redis hashes or a Kafka topic.

Fields are indexed according to the fields section of the configuration.
Documents sharing an identifier value with an indexed document replace it.

Examples:
  docsearch index --file books.jsonl
  docsearch index --file books.jsonl --watch
  docsearch index --source sql
  docsearch index --source kafka`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.source, "source", "s", sourceJSONL, "Document source: jsonl, sql, redis, kafka")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "JSONL file (default sources.jsonl.path)")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Re-index the JSONL file whenever it changes")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, opts indexOptions) error {
	out := output.New(cmd.OutOrStdout())

	cfg, root, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.watch && opts.source != sourceJSONL {
		return errors.ValidationError("--watch requires the jsonl source", nil)
	}

	dir, err := openDirectory(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = dir.Close() }()

	idx, err := indexer.New(dir, indexer.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	defer func() { _ = idx.Close() }()

	provider, release, err := openProvider(ctx, cfg, root, opts.source, opts.file)
	if err != nil {
		return err
	}
	defer release()

	descs := cfg.FieldDescriptions()
	slog.Info("index_started",
		slog.String("source", opts.source),
		slog.String("index", dir.Path()),
		slog.Int("described_fields", len(descs)))

	start := time.Now()
	if err := idx.Index(ctx, descs, provider); err != nil {
		return err
	}
	stats, err := idx.Stats()
	if err != nil {
		return err
	}

	slog.Info("index_complete",
		slog.String("source", opts.source),
		slog.Uint64("documents", stats.DocumentCount),
		slog.Duration("duration", time.Since(start)))
	out.Successf("Indexed %s source in %s", opts.source, time.Since(start).Round(time.Millisecond))
	out.Statusf("📚", "Documents in index: %d", stats.DocumentCount)

	if !opts.watch {
		return nil
	}

	path, err := jsonlPath(cfg, root, opts.file)
	if err != nil {
		return err
	}
	if len(descs.Identifiers()) == 0 {
		out.Warning("No identifier field is configured; every change adds all documents again")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchJSONL(ctx, out, idx, descs, path, cfg.WatchDebounce(), nil)
}

// watchJSONL re-indexes path after every debounced change until ctx is
// done.
func watchJSONL(ctx context.Context, out *output.Writer, idx *indexer.Indexer, descs document.Descriptions, path string, debounce time.Duration, refresh func() error) error {
	wopts := watcher.DefaultOptions()
	wopts.DebounceWindow = debounce

	w, err := watcher.NewFileWatcher(path, wopts, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	if out != nil {
		out.Statusf("👀", "Watching %s (%s, Ctrl+C to stop)", path, w.Mode())
	}
	return watcher.Watch(ctx, w, func(ctx context.Context, _ []watcher.FileEvent) error {
		start := time.Now()
		if err := idx.Index(ctx, descs, source.NewJSONLProvider(path)); err != nil {
			return err
		}
		stats, err := idx.Stats()
		if err != nil {
			return err
		}
		if refresh != nil {
			if err := refresh(); err != nil {
				return err
			}
		}
		slog.Info("reindex_complete",
			slog.String("path", path),
			slog.Uint64("documents", stats.DocumentCount),
			slog.Duration("duration", time.Since(start)))
		if out != nil {
			out.Successf("Re-indexed %s (%d documents)", path, stats.DocumentCount)
		}
		return nil
	})
}
