// Command sixdegrees ingests Wikimedia SQL dumps and answers
// shortest-title-path queries over the resulting link graph.
package main

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/k0kubun/pp/v3"

	"github.com/sixdegrees/wikigraph/config"
	"github.com/sixdegrees/wikigraph/extract"
	"github.com/sixdegrees/wikigraph/fetch"
	"github.com/sixdegrees/wikigraph/index"
	"github.com/sixdegrees/wikigraph/store"
	"github.com/sixdegrees/wikigraph/util"
)

var dumpTables = []string{"page", "redirect", "pagelinks"}

type options struct {
	Config string `long:"config" description:"Path to a sixdegrees.yaml config file"`

	Download struct{} `command:"download" description:"Fetch the three dump files for the configured wiki"`

	Parse struct {
		Args struct {
			Table string `positional-arg-name:"table" description:"page, redirect, or pagelinks"`
		} `positional-args:"yes" required:"yes"`
	} `command:"parse" description:"Print each tuple extracted from one dump file"`

	Index struct {
		Args struct {
			Table string `positional-arg-name:"table" description:"page, redirect, or pagelinks (default: all three)"`
		} `positional-args:"yes"`
	} `command:"index" description:"Load one or all dump tables into the store"`

	Search struct {
		Args struct {
			Pattern string `positional-arg-name:"pattern" description:"SQL LIKE pattern; omit to read patterns from stdin"`
		} `positional-args:"yes"`
	} `command:"search" description:"Search page titles"`

	Path struct {
		Args struct {
			From string `positional-arg-name:"from"`
			To   string `positional-arg-name:"to"`
		} `positional-args:"yes" required:"yes"`
	} `command:"path" description:"Find a shortest title-to-title path"`
}

func main() {
	util.InitSlog()

	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[options] <command>"

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var runErr error
	switch parser.Active.Name {
	case "download":
		runErr = runDownload(ctx, cfg)
	case "parse":
		runErr = runParse(cfg, opts.Parse.Args.Table)
	case "index":
		runErr = runIndex(cfg, opts.Index.Args.Table)
	case "search":
		runErr = runSearch(cfg, opts.Search.Args.Pattern)
	case "path":
		runErr = runPath(cfg, opts.Path.Args.From, opts.Path.Args.To)
	default:
		parser.WriteHelp(os.Stdout)
		os.Exit(1)
	}

	if runErr != nil {
		slog.Error("command failed", "command", parser.Active.Name, "error", runErr)
		os.Exit(1)
	}
}

func runDownload(ctx context.Context, cfg config.Config) error {
	for _, table := range dumpTables {
		dest := cfg.DumpFileName(table)
		url := cfg.DumpURL(table)
		slog.Info("downloading", "table", table, "url", url, "dest", dest)
		if err := fetch.Fetch(ctx, nil, url, dest); err != nil {
			return fmt.Errorf("downloading %s: %w", table, err)
		}
	}
	return nil
}

func openDumpFile(path string) (*os.File, *gzip.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	gz, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("decompressing %s: %w", path, err)
	}
	return f, gz, nil
}

func runParse(cfg config.Config, table string) error {
	path := cfg.DumpFileName(table)
	f, gz, err := openDumpFile(path)
	if err != nil {
		return err
	}
	defer f.Close()
	defer gz.Close()

	ex, err := extract.New(gz)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	for {
		tuple, err := ex.Next()
		if err != nil {
			break
		}
		pp.Println(tuple)
	}
	return nil
}

func runIndex(cfg config.Config, table string) error {
	s, err := store.Open(cfg.StoreConfig())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	builder := index.New(s, slog.Default())

	tables := dumpTables
	if table != "" {
		tables = []string{table}
	}

	for _, t := range tables {
		f, gz, err := openDumpFile(cfg.DumpFileName(t))
		if err != nil {
			return err
		}

		var sum index.Summary
		switch t {
		case "page":
			sum, err = builder.Pages(gz)
		case "redirect":
			sum, err = builder.Redirects(gz)
		case "pagelinks":
			sum, err = builder.Links(gz)
		default:
			err = fmt.Errorf("unknown table %q", t)
		}
		gz.Close()
		f.Close()
		if err != nil {
			return fmt.Errorf("indexing %s: %w", t, err)
		}

		slog.Info("indexed table", "table", t,
			"seen", sum.Seen, "accepted", sum.Accepted,
			"namespace_rejected", sum.NamespaceRejected, "unresolved", sum.Unresolved)
	}
	return nil
}

func runSearch(cfg config.Config, pattern string) error {
	s, err := store.Open(cfg.StoreConfig())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	if pattern != "" {
		return searchOne(s, pattern)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if err := searchOne(s, scanner.Text()); err != nil {
			slog.Error("search failed", "error", err)
		}
	}
	return scanner.Err()
}

func searchOne(s *store.Store, pattern string) error {
	results, err := s.Search(pattern)
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.RedirectTarget.Valid {
			fmt.Printf("%d\t%s\t-> %s\n", r.ID, r.Title, r.RedirectTarget.String)
		} else {
			fmt.Printf("%d\t%s\n", r.ID, r.Title)
		}
	}
	return nil
}

func runPath(cfg config.Config, from, to string) error {
	s, err := store.Open(cfg.StoreConfig())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	titles, err := s.Path(from, to)
	if err != nil {
		return err
	}

	for i, title := range titles {
		if i > 0 {
			fmt.Print(" -> ")
		}
		fmt.Print(title)
	}
	fmt.Println()
	return nil
}
