package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsearch/internal/config"
	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/output"
	"github.com/Aman-CERP/docsearch/internal/server"
	"github.com/Aman-CERP/docsearch/pkg/searcher"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	fields    []string
	limit     int
	group     string
	sort      []string
	missing   string
	highlight bool
	format    string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index",
		Long: `Search the index with a query over one or more fields.

Without --field the query runs over the full content of each document.
With --group results are grouped by the folded value of a field, and
--sort orders each group by the given fields.

Examples:
  docsearch search fox
  docsearch search "quick fox" --field title --field body
  docsearch search fox --group genre --sort title
  docsearch search 'title:"getting started"' --highlight --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.fields, "field", nil, "Field to search (repeatable, default search.default_fields)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default search.max_results)")
	cmd.Flags().StringVarP(&opts.group, "group", "g", "", "Group results by this field")
	cmd.Flags().StringArrayVar(&opts.sort, "sort", nil, "Sort each group by this field (repeatable, requires --group)")
	cmd.Flags().StringVar(&opts.missing, "missing", "(none)", "Group key for results without the group field")
	cmd.Flags().BoolVar(&opts.highlight, "highlight", false, "Show highlighted fragments")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	slog.Info("search_started",
		slog.String("query", query),
		slog.Int("limit", opts.limit),
		slog.String("group", opts.group))
	out := output.New(cmd.OutOrStdout())

	if opts.format != "text" && opts.format != "json" {
		return errors.ValidationError(fmt.Sprintf("unknown format %q: use text or json", opts.format), nil)
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Index.Memory {
		return errors.ConfigError("an in-memory index only exists inside a running server", nil).
			WithSuggestion("Query 'docsearch serve' over HTTP, or unset index.memory")
	}

	dir, err := openDirectory(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = dir.Close() }()

	s, err := searcher.New(dir, searcher.WithLogger(slog.Default()), searcher.WithQueryCacheSize(0))
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	exec := server.NewExecutor(s, searchDefaults(cfg, opts.missing))
	req := server.Request{
		Query:     query,
		Fields:    opts.fields,
		Limit:     opts.limit,
		Group:     opts.group,
		Sort:      opts.sort,
		Highlight: opts.highlight,
	}

	if opts.format == "json" {
		resp, err := exec.Execute(ctx, req)
		if err != nil {
			return err
		}
		slog.Info("search_complete", slog.Int("results", resp.Total))
		return out.JSON(resp)
	}
	return printSearch(ctx, out, s, exec, req)
}

// searchDefaults returns the request defaults of cfg.
func searchDefaults(cfg *config.Config, missing string) server.Defaults {
	return server.Defaults{
		MaxResults: cfg.Search.MaxResults,
		Fields:     cfg.Search.DefaultFields,
		MissingKey: missing,
	}
}

// printSearch renders req as text. Groups stream straight from the
// searcher into the group renderer.
func printSearch(ctx context.Context, out *output.Writer, s *searcher.Searcher, exec *server.Executor, req server.Request) error {
	req, err := exec.Normalize(req)
	if err != nil {
		return err
	}

	if req.Group == "" {
		c := searcher.NewSliceCollector(req.Limit)
		if err := s.Search(ctx, req.Query, req.Fields, c); err != nil {
			return err
		}
		slog.Info("search_complete", slog.Int("results", len(c.Results)))
		return out.Results(req.Query, c.Results, req.Highlight)
	}

	g := searcher.NewResultGroups(req.Group, exec.MissingKey(), req.Sort...).WithMaxResults(req.Limit)
	if err := s.Search(ctx, req.Query, req.Fields, g); err != nil {
		return err
	}
	slog.Info("search_complete", slog.Int("groups", g.Len()))
	if g.Len() == 0 {
		out.Status("", fmt.Sprintf("No results found for %q", req.Query))
		return nil
	}
	out.Statusf("🔍", "Found %d groups for %q:", g.Len(), req.Query)
	out.Newline()
	return g.Render(out.GroupRenderer(req.Highlight))
}
