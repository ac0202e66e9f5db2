// Command queryrtdemo loads a handful of source files into a sourcestore,
// drives the frontend.Diagnostics query for each of them through the
// trampoline mode chosen by -parallel, and prints a trace (with -verbose)
// plus a final stats table.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/wbrown/janus-query/annotations"
	"github.com/wbrown/janus-query/frontend"
	"github.com/wbrown/janus-query/queryrt"
	"github.com/wbrown/janus-query/sourcestore"
)

func main() {
	var (
		dbPath   = flag.String("db", "", "sourcestore path; empty for in-memory")
		parallel = flag.Bool("parallel", false, "run the parallel trampoline instead of serial")
		workers  = flag.Int("workers", 0, "parallel trampoline width; 0 means GOMAXPROCS")
		verbose  = flag.Bool("verbose", false, "print a colorized trace of scheduler events")
	)
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: queryrtdemo [flags] file.src [file.src ...]")
		os.Exit(2)
	}

	if err := run(files, *dbPath, *parallel, *workers, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "queryrtdemo:", err)
		os.Exit(1)
	}
}

func run(paths []string, dbPath string, parallel bool, workers int, verbose bool) error {
	store, err := sourcestore.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open sourcestore: %w", err)
	}
	defer store.Close()

	ids := make([]frontend.FileID, len(paths))
	for i, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		id := frontend.FileID(i + 1)
		if err := store.Put(id, src); err != nil {
			return fmt.Errorf("store %s: %w", path, err)
		}
		ids[i] = id
	}

	var collector *annotations.Collector
	opts := []queryrt.Option{queryrt.WithEnv(&frontend.Environment{Source: store})}
	if workers > 0 {
		opts = append(opts, queryrt.WithParallelism(workers))
	}
	if verbose {
		collector = annotations.NewCollector(annotations.ConsoleHandler())
		opts = append(opts, queryrt.WithAnnotations(collector))
	}

	mode := queryrt.Serial
	if parallel {
		mode = queryrt.Parallel
	}

	s := queryrt.New(opts...)
	defer s.Close()

	for i, path := range paths {
		diags := queryrt.RequestAndTrampoline[frontend.Diagnostics, []frontend.Diagnostic](s, frontend.Diagnostics{ID: ids[i]}, mode)
		if len(diags) == 0 {
			fmt.Printf("%s: no diagnostics\n", path)
			continue
		}
		for _, d := range diags {
			fmt.Printf("%s:%d: %s\n", path, d.Pos, d.Message)
		}
	}

	rows := make([]annotations.StatRow, 0, len(s.Stats()))
	for _, stat := range s.Stats() {
		rows = append(rows, annotations.StatRow{Kind: stat.Kind, Hits: stat.Hits, Misses: stat.Misses, Size: stat.Size})
	}
	fmt.Println()
	fmt.Print(annotations.NewStatsTable(rows))

	return nil
}
