package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wichananm65/priceflo-storefront/internal/config"
	"github.com/wichananm65/priceflo-storefront/internal/logging"
	"github.com/wichananm65/priceflo-storefront/internal/reports"
	"github.com/wichananm65/priceflo-storefront/internal/stats"
	"github.com/wichananm65/priceflo-storefront/internal/upstream"
)

// backend is what the commands need from the API client.
type backend interface {
	reports.Source
	stats.Source
}

type cli struct {
	out     io.Writer
	baseURL string
	timeout time.Duration
	verbose bool

	logger *zap.Logger
	dial   func(c *cli) (backend, error)
}

func newRootCmd(out io.Writer) *cobra.Command {
	return newCLI(out, dialUpstream).rootCmd()
}

func newCLI(out io.Writer, dial func(c *cli) (backend, error)) *cli {
	return &cli{out: out, dial: dial}
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pricefloctl",
		Short:         "Inspect the price backend and manage the not-found search report",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if c.verbose {
				level = "debug"
			}
			logger, err := logging.New(level)
			if err != nil {
				return err
			}
			c.logger = logger
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.baseURL, "api", "", "backend base URL (default from API_BASE_URL / PUBLIC_HOST)")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 10*time.Second, "per request timeout")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log retries and requests")

	root.AddCommand(c.statsCmd(), c.reportsCmd())
	return root
}

func dialUpstream(c *cli) (backend, error) {
	base := c.baseURL
	retry := upstream.DefaultRetryConfig()
	if base == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		base = cfg.APIBaseURL
		retry = cfg.Retry
	}
	return upstream.New(upstream.Options{
		BaseURL: base,
		Timeout: c.timeout,
		Retry:   retry,
		Logger:  c.logger.Named("upstream"),
	}), nil
}

func (c *cli) backend() (backend, error) {
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c.dial(c)
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print catalog totals and the last scrape time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := c.backend()
			if err != nil {
				return err
			}
			s, err := b.Stats(cmd.Context())
			if err != nil {
				return describe(err)
			}
			w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "products\t%d\n", s.TotalProducts)
			fmt.Fprintf(w, "stores\t%d\n", s.TotalStores)
			fmt.Fprintf(w, "snapshots\t%d\n", s.TotalSnapshots)
			last := "never"
			if s.LastScrape != nil {
				last = s.LastScrape.Time.Format("2006-01-02 15:04") + " (" + stats.Relative(time.Now(), s.LastScrape.Time) + ")"
			}
			fmt.Fprintf(w, "last scrape\t%s\n", last)
			return w.Flush()
		},
	}
}

func (c *cli) reportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Manage searches that returned no products",
	}

	var limit int
	var includeIgnored bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List the most searched missing terms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := c.backend()
			if err != nil {
				return err
			}
			entries, err := b.NotFoundReport(cmd.Context(), limit, includeIgnored)
			if err != nil {
				return describe(err)
			}
			return c.printEntries(entries)
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", reports.PageLimit, "maximum entries")
	list.Flags().BoolVar(&includeIgnored, "include-ignored", false, "also show ignored terms")

	cmd.AddCommand(list,
		c.entryCmd("ignore", "Hide a term from the active report", func(ctx context.Context, b backend, id int) error {
			return b.SetIgnored(ctx, id, true)
		}),
		c.entryCmd("reactivate", "Show an ignored term again", func(ctx context.Context, b backend, id int) error {
			return b.SetIgnored(ctx, id, false)
		}),
		c.entryCmd("delete", "Remove a term from the report", func(ctx context.Context, b backend, id int) error {
			return b.DeleteNotFound(ctx, id)
		}),
	)
	return cmd
}

func (c *cli) entryCmd(use, short string, run func(ctx context.Context, b backend, id int) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id < 1 {
				return fmt.Errorf("invalid id %q", args[0])
			}
			b, err := c.backend()
			if err != nil {
				return err
			}
			if err := run(cmd.Context(), b, id); err != nil {
				if upstream.IsNotFound(err) {
					return fmt.Errorf("entry %d not found", id)
				}
				return describe(err)
			}
			fmt.Fprintf(c.out, "%s: entry %d\n", use, id)
			return nil
		},
	}
}

func (c *cli) printEntries(entries []reports.Entry) error {
	sum := reports.Summarize(entries)
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTERM\tSEARCHES\tLAST SEARCHED\tSTATUS")
	for _, e := range entries {
		status := "active"
		if e.Ignored {
			status = "ignored"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", e.ID, e.SearchTerm, e.SearchCount,
			e.LastSearchedAt.Time.Format("2006-01-02 15:04"), status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(c.out, "%d terms, %d searches, %d active, %d ignored\n",
		sum.UniqueTerms, sum.TotalSearches, sum.Active, sum.Ignored)
	return err
}

// describe turns a backend failure into the same wording the site shows.
func describe(err error) error {
	var ue *upstream.Error
	if !errors.As(err, &ue) {
		return err
	}
	n := upstream.NoticeFor(err)
	return fmt.Errorf("%s: %s (%w)", n.Title, n.Message, err)
}
