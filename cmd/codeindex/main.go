// Command codeindex is a thin wiring binary over the indexing and query
// engine. The command-line front-end is an out-of-scope external
// surface (§1); this binary exists to demonstrate and exercise the
// core packages end to end, not as a complete CLI product.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jmylchreest/codeindex/internal/version"
	"github.com/jmylchreest/codeindex/pkg/config"
	"github.com/jmylchreest/codeindex/pkg/indexer"
	"github.com/jmylchreest/codeindex/pkg/query"
	"github.com/jmylchreest/codeindex/pkg/server"
	"github.com/jmylchreest/codeindex/pkg/store"
	"github.com/jmylchreest/codeindex/pkg/watch"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if os.Args[1] == "version" || os.Args[1] == "--version" {
		fmt.Println(version.String())
		return
	}

	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "codeindex: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd string, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg := config.Config{RootDir: root, DBPath: filepath.Join(root, ".codeindex", "index.db")}.WithDefaults()

	switch cmd {
	case "index":
		return runIndex(cfg)
	case "watch":
		return runWatch(cfg)
	case "find":
		return runFind(cfg, args)
	case "callchain":
		return runCallChain(cfg, args)
	case "serve":
		return runServe(cfg, args)
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func printUsage() {
	fmt.Println(`codeindex - demonstration wiring for the indexing and query engine

Usage:
  codeindex index              index the current directory
  codeindex watch               index, then watch for changes until interrupted
  codeindex find <name>         find symbols by name
  codeindex callchain <name>    print the forward call chain from a symbol
  codeindex serve <addr>        serve query operations over HTTP (e.g. :8080)
  codeindex version              print version information`)
}

func openStore(cfg config.Config) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return store.Open(cfg.DBPath)
}

func runIndex(cfg config.Config) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ix := indexer.New(cfg, st)
	defer ix.Close()

	var count int
	err = ix.IndexAll(&indexer.Progress{OnFile: func(path string, reindexed bool) {
		if reindexed {
			count++
			fmt.Println(path)
		}
	}})
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d files\n", count)
	return nil
}

func runWatch(cfg config.Config) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ix := indexer.New(cfg, st)
	defer ix.Close()

	if err := ix.IndexAll(nil); err != nil {
		return err
	}

	w, err := watch.New(cfg, ix, st)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}

	fmt.Println("watching for changes, press ctrl-c to stop")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	return w.Stop()
}

func runFind(cfg config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: codeindex find <name>")
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	eng := query.New(st)
	symbols, err := eng.FindSymbols(args[0], "", "")
	if err != nil {
		return err
	}
	for _, s := range symbols {
		fmt.Printf("%s\t%s\t%s\n", s.Kind, s.QualifiedName, s.Language)
	}
	return nil
}

func runCallChain(cfg config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: codeindex callchain <name>")
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	eng := query.New(st)
	symbols, err := eng.FindSymbols(args[0], "", "")
	if err != nil {
		return err
	}
	if len(symbols) == 0 {
		return fmt.Errorf("no symbol named %q", args[0])
	}

	tree, err := eng.BuildCallChain(symbols[0].ID, query.Forward, cfg.CallChainDepth)
	if err != nil {
		return err
	}
	printChain(tree, "")
	return nil
}

func runServe(cfg config.Config, args []string) error {
	addr := ":8080"
	if len(args) > 0 {
		addr = args[0]
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := server.NewServer(query.New(st), addr)
	return srv.Start()
}

func printChain(n *query.CallChainNode, indent string) {
	if n == nil {
		return
	}
	fmt.Printf("%s%s\n", indent, n.QualifiedName)
	for _, c := range n.Children {
		printChain(c, indent+strings.Repeat(" ", 2))
	}
}
