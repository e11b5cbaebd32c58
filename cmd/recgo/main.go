// Command recgo runs the co-occurrence recommendation pipeline over a local
// data directory and prints the resulting per-user top-N lists.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hupe1980/recgo"
	"github.com/hupe1980/recgo/blobstore"
	"github.com/hupe1980/recgo/dataset"
	"github.com/hupe1980/recgo/pipeline"
)

func main() {
	var (
		dataDir     = flag.String("data", ".", "directory holding the input blob and all datasets")
		input       = flag.String("input", "preferences.csv", "input blob name (userID,itemID[,value] per line)")
		output      = flag.String("output", "", "write text output to this file instead of stdout")
		numRecs     = flag.Int("num-recommendations", recgo.DefaultNumRecommendations, "recommendations per user")
		maxPrefs    = flag.Int("max-prefs-per-user", recgo.DefaultMaxPrefsPerUser, "preferences considered per user")
		booleanData = flag.Bool("boolean-data", false, "treat input as boolean preferences (implicit value 1.0)")
		usersFile   = flag.String("users-file", "", "blob listing user IDs to recommend for (one per line)")
		compression = flag.String("compression", "zstd", "dataset compression: none, zstd or lz4")
		startPhase  = flag.String("start-phase", "itemindex", "first phase to run")
		endPhase    = flag.String("end-phase", "recommendations", "last phase to run")
		force       = flag.Bool("force", false, "recompute all phases even when recorded complete")
		concurrency = flag.Int("concurrency", 0, "max concurrent groups per phase (0 = GOMAXPROCS)")
		verbose     = flag.Bool("verbose", false, "debug logging")
	)
	flag.Parse()

	if err := run(*dataDir, *input, *output, *numRecs, *maxPrefs, *booleanData,
		*usersFile, *compression, *startPhase, *endPhase, *force, *concurrency, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "recgo:", err)
		os.Exit(1)
	}
}

func run(dataDir, input, output string, numRecs, maxPrefs int, booleanData bool,
	usersFile, compression, startPhase, endPhase string, force bool, concurrency int, verbose bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comp, err := dataset.ParseCompression(compression)
	if err != nil {
		return err
	}
	start, err := pipeline.ParsePhase(startPhase)
	if err != nil {
		return err
	}
	end, err := pipeline.ParsePhase(endPhase)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	store, err := blobstore.NewLocalStore(dataDir)
	if err != nil {
		return err
	}

	opts := []recgo.Option{
		recgo.WithNumRecommendations(numRecs),
		recgo.WithMaxPrefsPerUser(maxPrefs),
		recgo.WithBooleanData(booleanData),
		recgo.WithCompression(comp),
		recgo.WithStartPhase(start),
		recgo.WithEndPhase(end),
		recgo.WithForceRerun(force),
		recgo.WithMaxConcurrency(concurrency),
		recgo.WithLogger(recgo.NewTextLogger(level)),
	}
	if usersFile != "" {
		opts = append(opts, recgo.WithUsersFile(usersFile))
	}

	p, err := recgo.New(store, opts...)
	if err != nil {
		return err
	}

	if err := p.Run(ctx, input); err != nil {
		return err
	}

	if end != pipeline.PhaseRecommendations {
		return nil
	}

	out := os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		out = f
	}
	return p.WriteText(ctx, out)
}
