package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"biblegen/config"
	"biblegen/internal/adapter/fs"
	"biblegen/internal/logging"
	"biblegen/internal/port"
	"biblegen/internal/usecase"
)

func main() {
	datasets := flag.String("datasets", "", "Comma-separated dataset files")
	dir := flag.String("dir", ".", "Project directory holding biblegen.yaml")
	from := flag.Float64("from", 0.60, "First Jaccard threshold")
	to := flag.Float64("to", 0.80, "Last Jaccard threshold")
	step := flag.Float64("step", 0.05, "Threshold increment")
	lev := flag.Float64("lev", -1, "Levenshtein threshold (default from config)")
	flag.Parse()

	if *datasets == "" {
		fmt.Println("Usage: sweep -datasets kjv.txt,web.txt [-from 0.60 -to 0.80 -step 0.05]")
		fmt.Println("\nMaps the corpus once per Jaccard threshold and reports coverage.")
		fmt.Println("A step whose coverage rises by more than 0.01 over the previous one is flagged.")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *lev >= 0 {
		cfg.Mapper.LevenshteinThreshold = *lev
	}

	var ds []port.Dataset
	for _, p := range strings.Split(*datasets, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ds = append(ds, fs.DatasetFor(p))
		}
	}

	logging.InitLogger(logging.LevelWarn, logging.FormatText)
	steps, err := usecase.NewSweepUseCase(cfg, logging.GetLogger()).Run(context.Background(), ds, *from, *to, *step)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sweep failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("THRESHOLD SWEEP")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("%-9s %-10s %-8s %-8s %-9s %s\n", "jaccard", "coverage", "mapped", "nulls", "conflicts", "")
	fmt.Println(strings.Repeat("-", 70))

	flagged := 0
	for _, s := range steps {
		mark := ""
		if s.Increased {
			mark = "NON-MONOTONIC"
			flagged++
		}
		fmt.Printf("%-9.3f %-10.4f %-8d %-8d %-9d %s\n", s.Jaccard, s.Coverage, s.Mapped, s.Nulls, s.Conflicts, mark)
	}
	fmt.Println(strings.Repeat("=", 70))

	if flagged > 0 {
		fmt.Printf("Status: %d step(s) raised coverage with a stricter threshold\n", flagged)
		os.Exit(2)
	}
	fmt.Println("Status: OK - coverage is non-increasing")
}
