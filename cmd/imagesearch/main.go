package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"imagesearch/internal/biz"
	"imagesearch/internal/conf"
	"imagesearch/internal/data"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/env"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
)

var (
	// Name is the name of the compiled software.
	Name = "imagesearch"
	// Version is the version of the compiled software.
	Version = "dev"

	id, _ = os.Hostname()
)

// envPrefix scopes environment overrides, e.g. IMAGESEARCH_PIXABAY_API_KEY
// resolves ${PIXABAY_API_KEY} in the config file.
const envPrefix = "IMAGESEARCH_"

type app struct {
	search   *biz.SearchUsecase
	resolver *biz.FetchOrchestrator
}

func newApp(search *biz.SearchUsecase, resolver *biz.FetchOrchestrator) *app {
	return &app{search: search, resolver: resolver}
}

func main() {
	if err := newCLI(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCLI(out io.Writer) *cli.App {
	return &cli.App{
		Name:    Name,
		Usage:   "Keyword image search over external providers and local posts",
		Version: Version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "conf",
				Aliases: []string{"c"},
				Usage:   "Path to the config file",
				Value:   "configs/config.yaml",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Log level (debug, info, warn, error), overrides log.level",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Rank images for a free-text query",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "top-k", Usage: "Number of hits to return"},
					&cli.IntFlag{Name: "max-per-keyword", Usage: "Hits kept per keyword"},
					&cli.IntFlag{Name: "max-per-provider", Usage: "Candidates fetched per provider"},
					&cli.DurationFlag{Name: "timeout", Usage: "Overall request deadline"},
				},
			},
			{
				Name:      "resolve",
				Usage:     "List the candidates for one keyword",
				ArgsUsage: "<keyword>",
				Action:    resolveCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "max-per-provider", Usage: "Candidates fetched per provider"},
				},
			},
			{
				Name:      "keywords",
				Usage:     "Print the keywords extracted from text",
				ArgsUsage: "<text>",
				Action:    keywordsCommand,
			},
		},
	}
}

// loadConfig reads the config file with environment overrides.
func loadConfig(path string) (*conf.Bootstrap, error) {
	c := config.New(
		config.WithSource(
			file.NewSource(path),
			env.NewSource(envPrefix),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		return nil, fmt.Errorf("scan config %s: %w", path, err)
	}
	return &bc, nil
}

func newLogger(w io.Writer, level string) log.Logger {
	if level == "" {
		level = "info"
	}
	logger := log.With(log.NewStdLogger(w),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
	)
	return log.NewFilter(logger, log.FilterLevel(log.ParseLevel(level)))
}

// setup loads configuration and builds the dependency graph.
func setup(c *cli.Context) (*app, *conf.Bootstrap, func(), error) {
	bc, err := loadConfig(c.String("conf"))
	if err != nil {
		return nil, nil, nil, err
	}
	level := c.String("log-level")
	if level == "" {
		level = bc.GetLog().GetLevel()
	}
	logger := newLogger(os.Stderr, level)

	a, cleanup, err := wireApp(bc.GetData(), bc.GetSearch(), bc.GetClip(), bc.GetProviders(), bc.GetStorage(), logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return a, bc, cleanup, nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return errors.New("search: query is required")
	}
	a, _, cleanup, err := setup(c)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := a.search.Search(c.Context, query, biz.SearchOptions{
		TopK:           c.Int("top-k"),
		MaxPerKeyword:  c.Int("max-per-keyword"),
		MaxPerProvider: c.Int("max-per-provider"),
		Timeout:        c.Duration("timeout"),
	})
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, res)
}

func resolveCommand(c *cli.Context) error {
	keyword := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if keyword == "" {
		return errors.New("resolve: keyword is required")
	}
	a, bc, cleanup, err := setup(c)
	if err != nil {
		return err
	}
	defer cleanup()

	limit := c.Int("max-per-provider")
	if limit <= 0 {
		limit = bc.GetSearch().GetMaxPerProvider()
	}
	if limit <= 0 {
		limit = 10
	}
	images, err := a.resolver.ResolveKeyword(c.Context, keyword, limit)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, images)
}

func keywordsCommand(c *cli.Context) error {
	text := strings.Join(c.Args().Slice(), " ")
	return writeJSON(c.App.Writer, data.NewKeywordExtractor().Keywords(text))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
