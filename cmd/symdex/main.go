package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/symdex"
	"github.com/jward/symdex/internal/tsprovider"
)

var (
	flagDB     string
	flagConfig string
	flagFormat string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "symdex",
	Short:         "Persistent, incrementally updated symbol index with substring search",
	Long:          "Symdex extracts source-code symbols with tree-sitter, keeps them in a SQLite index that updates incrementally, and serves fast multi-keyword substring search.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .symdex/index.db under the workspace root)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .symdex.toml under the workspace root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(watchCmd)
}

var flagForce bool

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Build or update the symbol index for a workspace",
	Long:  "Reconciles the index against the workspace and indexes new or changed files. With --force the index is wiped and rebuilt from scratch.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "wipe the index and reindex every file")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	engine, cfg, err := newEngine(args)
	if err != nil {
		return err
	}
	defer engine.Close()
	if !cfg.Enabled {
		fmt.Fprintln(os.Stderr, "Indexing is disabled by configuration")
		return nil
	}

	done := make(chan struct{})
	unsubscribe := engine.OnIndexingComplete(func() {
		select {
		case done <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	ctx := cmd.Context()
	if flagForce {
		err = engine.RebuildFull(ctx)
	} else {
		err = engine.RebuildIncremental(ctx)
	}
	if err != nil {
		return err
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	files, symbols, err := engine.Stats()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Indexed %d files, %d symbols in %s\n",
		files, symbols, time.Since(start).Round(time.Millisecond))
	return nil
}

var (
	flagLimit  int
	flagOffset int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the symbol index",
	Long:  "Tokenizes the query on whitespace and returns symbols whose name or container name contains every token, ordered by name then path.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&flagLimit, "limit", 50, "maximum results per page")
	searchCmd.Flags().IntVar(&flagOffset, "offset", 0, "result offset for paging")
}

func runSearch(cmd *cobra.Command, args []string) error {
	engine, _, err := newEngine(nil)
	if err != nil {
		return err
	}
	defer engine.Close()

	results, err := engine.Search(args[0], flagLimit, flagOffset)
	if err != nil {
		return err
	}

	if flagFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for _, r := range results {
		name := r.Name
		if r.ContainerName != "" {
			name = r.ContainerName + "." + r.Name
		}
		fmt.Printf("%s\t%s:%d\n", name, r.Path, r.SelectionRange.Start.Line+1)
	}
	return nil
}

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Index a workspace and keep the index current as files change",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	engine, cfg, err := newEngine(args)
	if err != nil {
		return err
	}
	defer engine.Close()
	if !cfg.Enabled {
		fmt.Fprintln(os.Stderr, "Indexing is disabled by configuration")
		return nil
	}

	unsubscribe := engine.OnProgress(func(percent int) {
		fmt.Fprintf(os.Stderr, "\rIndexing: %3d%%", percent)
		if percent >= 100 {
			fmt.Fprintln(os.Stderr)
		}
	})
	defer unsubscribe()

	watcher, err := symdex.NewWatcher(engine)
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}
	defer watcher.Close()

	if err := engine.RebuildIncremental(cmd.Context()); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
	case <-cmd.Context().Done():
	}
	fmt.Fprintln(os.Stderr, "\nShutting down")
	return nil
}

// newEngine resolves the workspace root from args, loads the TOML config,
// and constructs an engine with the tree-sitter provider.
func newEngine(args []string) (*symdex.Engine, *fileConfig, error) {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving workspace root: %w", err)
	}

	cfg, err := loadConfig(root, flagConfig)
	if err != nil {
		return nil, nil, err
	}

	dbPath := flagDB
	if dbPath == "" {
		dbPath = filepath.Join(root, ".symdex", "index.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}

	engine, err := symdex.New(dbPath, root, tsprovider.New(),
		symdex.WithConfig(cfg.engineConfig()))
	if err != nil {
		return nil, nil, err
	}
	return engine, cfg, nil
}
