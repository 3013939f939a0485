package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/logging"
	"github.com/Aman-CERP/docsearch/internal/metrics"
	"github.com/Aman-CERP/docsearch/internal/output"
	"github.com/Aman-CERP/docsearch/internal/server"
	"github.com/Aman-CERP/docsearch/internal/source"
	"github.com/Aman-CERP/docsearch/pkg/indexer"
	"github.com/Aman-CERP/docsearch/pkg/searcher"
)

// serveOptions holds CLI flags for serve.
type serveOptions struct {
	transport string // "http", "stdio"
	addr      string
	watch     string
	missing   string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve search over HTTP or as an MCP tool",
		Long: `Serve the index.

The http transport exposes:
  GET /search    query with q, field, group, sort, limit and highlight
  GET /healthz   liveness and version
  GET /metrics   Prometheus metrics

The stdio transport speaks the Model Context Protocol on stdin/stdout and
offers a single "search" tool. Logs go to the log file only.

With --watch the given JSONL file is indexed at startup and re-indexed
whenever it changes, which also makes an in-memory index useful.

Examples:
  docsearch serve --addr :8080
  docsearch serve --transport stdio
  docsearch serve --watch books.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.transport, "transport", "t", "", "Transport: http, stdio (default server.transport)")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address (default server.addr)")
	cmd.Flags().StringVarP(&opts.watch, "watch", "w", "", "JSONL file to index and keep up to date")
	cmd.Flags().StringVar(&opts.missing, "missing", "(none)", "Group key for results without the group field")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, opts serveOptions) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	transport := strings.ToLower(opts.transport)
	if transport == "" {
		transport = strings.ToLower(cfg.Server.Transport)
	}
	addr := opts.addr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	// stdout belongs to the protocol in stdio mode.
	var out *output.Writer
	switch transport {
	case "stdio":
		if err := installStdioLogging(resolveLevel(cfg.Server.LogLevel)); err != nil {
			return err
		}
	case "http":
		if err := installLogging(resolveLevel(cfg.Server.LogLevel)); err != nil {
			return err
		}
		out = output.New(cmd.OutOrStdout())
	default:
		return errors.ValidationError(fmt.Sprintf("unknown transport %q: use http or stdio", transport), nil)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dir, err := openDirectory(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = dir.Close() }()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	logger := slog.Default()

	g, ctx := errgroup.WithContext(ctx)

	var idx *indexer.Indexer
	var watchPath string
	descs := cfg.FieldDescriptions()
	if opts.watch != "" {
		watchPath, err = jsonlPath(cfg, "", opts.watch)
		if err != nil {
			return err
		}
		idx, err = indexer.New(dir, indexer.WithLogger(logger), indexer.WithMetrics(m))
		if err != nil {
			return err
		}
		defer func() { _ = idx.Close() }()

		if err := idx.Index(ctx, descs, source.NewJSONLProvider(watchPath)); err != nil {
			return err
		}
	} else if cfg.Index.Memory && out != nil {
		out.Warning("Serving an empty in-memory index; pass --watch to load documents")
	}

	newSearcher := func() (*searcher.Searcher, error) {
		return searcher.New(dir,
			searcher.WithLogger(logger),
			searcher.WithMetrics(m),
			searcher.WithQueryCacheSize(cfg.Search.QueryCacheSize))
	}
	s, err := newSearcher()
	if err != nil {
		return err
	}
	exec := server.NewExecutor(s, searchDefaults(cfg, opts.missing))
	defer func() { _ = closeSearcher(exec.Swap(nil)) }()

	// Searchers read a snapshot, so every re-index swaps in a fresh one.
	var watch func() error
	if idx != nil {
		refresh := func() error {
			next, err := newSearcher()
			if err != nil {
				return err
			}
			return closeSearcher(exec.Swap(next))
		}
		watch = func() error {
			return watchJSONL(ctx, out, idx, descs, watchPath, cfg.WatchDebounce(), refresh)
		}
	}

	slog.Info("serve_started",
		slog.String("transport", transport),
		slog.String("addr", addr),
		slog.String("index", dir.Path()),
		slog.String("watch", opts.watch))

	switch transport {
	case "stdio":
		ms := server.NewMCPServer(exec, logger)
		g.Go(func() error {
			defer cancel()
			return ms.ServeStdio(ctx)
		})
	case "http":
		hs := server.NewHTTPServer(exec, server.WithLogger(logger), server.WithMetrics(m, reg))
		out.Statusf("🚀", "Serving search on %s (Ctrl+C to stop)", addr)
		g.Go(func() error {
			defer cancel()
			return hs.ListenAndServe(ctx, addr)
		})
	}
	// Started last so that nothing else writes to out concurrently.
	if watch != nil {
		g.Go(watch)
	}

	err = g.Wait()
	slog.Info("serve_stopped", slog.String("transport", transport))
	return err
}

func closeSearcher(s server.Searcher) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// installStdioLogging logs to the file only, honouring --log-file.
func installStdioLogging(level string) error {
	if logFile != "" {
		return installLogging(level)
	}
	_ = stopLogging(nil, nil)
	cleanup, err := logging.SetupStdioMode(level)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	return nil
}
