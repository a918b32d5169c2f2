package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/dialectmap/gswcorpus/internal/cleantext"
	"github.com/dialectmap/gswcorpus/internal/config"
	"github.com/dialectmap/gswcorpus/internal/corpussearch"
	"github.com/dialectmap/gswcorpus/internal/dataset"
	"github.com/dialectmap/gswcorpus/internal/geocode"
	"github.com/dialectmap/gswcorpus/internal/langid"
	"github.com/dialectmap/gswcorpus/internal/pipeline"
	"github.com/dialectmap/gswcorpus/internal/sentence"
	"github.com/dialectmap/gswcorpus/internal/spinner"
	"github.com/dialectmap/gswcorpus/internal/wordstats"
)

// file names under paths.out_dir
const (
	corpusFile     = "corpus.csv"
	statesFile     = "states.json"
	labelledFile   = "labelled.tsv"
	unlabelledFile = "unlabelled.tsv"
)

// setupLogger configures the default slog logger. Debug wins over quiet.
func setupLogger(debug, quiet bool) {
	level := slog.LevelInfo
	switch {
	case debug:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelError
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// loadConfig reads the config file named by the persistent --config flag.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// buildResolver wires the geocoding stack: the rate-limited Maps service,
// the on-disk location cache, the CH-word gazetteer and the country border.
// The caller must Close the resolver to flush the cache file.
func buildResolver(cfg config.Config) (*geocode.Resolver, error) {
	creds, err := config.LoadCredentials()
	if err != nil {
		return nil, err
	}
	svc, err := geocode.NewMapsService(creds.GeocodingAPIKey, cfg.Geocoding.Region, cfg.Geocoding.MinDelay.Std())
	if err != nil {
		return nil, fmt.Errorf("geocoding service: %w", err)
	}
	cache, err := geocode.OpenCache(cfg.Paths.LocationCache)
	if err != nil {
		return nil, err
	}
	gaz := geocode.NewGazetteer(nil)
	if cfg.Paths.CHWords != "" {
		if gaz, err = geocode.LoadGazetteer(cfg.Paths.CHWords); err != nil {
			return nil, err
		}
	}
	return geocode.NewResolver(svc, cache, gaz, geocode.Polygon(cfg.Geocoding.Boundary)), nil
}

// buildPipeline assembles the batch pipeline. With recreate true the ledger
// is ignored and rebuilt and the user table starts empty.
func buildPipeline(cfg config.Config, recreate, removeProcessed bool) (*pipeline.Pipeline, *geocode.Resolver, error) {
	resolver, err := buildResolver(cfg)
	if err != nil {
		return nil, nil, err
	}

	filter := sentence.DefaultFilter()
	if cfg.Paths.SentenceRules != "" {
		rules, err := sentence.LoadRules(cfg.Paths.SentenceRules)
		if err != nil {
			return nil, nil, err
		}
		if filter, err = sentence.NewFilter(rules); err != nil {
			return nil, nil, err
		}
	}

	pairs := make([][2]string, len(cfg.Pipeline.Preprocessing))
	for i, s := range cfg.Pipeline.Preprocessing {
		pairs[i] = [2]string{s.Pattern, s.Replacement}
	}
	preprocess, err := cleantext.CompileSubstitutions(pairs)
	if err != nil {
		return nil, nil, fmt.Errorf("preprocessing rules: %w", err)
	}

	var dedup pipeline.DedupTracker
	if recreate {
		dedup = pipeline.NewRecreateTracker(cfg.Paths.Ledger)
	} else {
		if dedup, err = pipeline.OpenLedger(cfg.Paths.Ledger); err != nil {
			return nil, nil, err
		}
	}
	users, err := pipeline.OpenUserCounter(cfg.Paths.UserCounts, recreate)
	if err != nil {
		return nil, nil, err
	}
	segments, err := pipeline.NewSegmentStore(cfg.Paths.OutDir)
	if err != nil {
		return nil, nil, err
	}

	p := pipeline.New(pipeline.Options{
		AdmissionThreshold: cfg.Pipeline.AdmissionThreshold,
		NewUserThreshold:   cfg.Pipeline.NewUserThreshold,
		MinLocationLen:     cfg.Pipeline.MinLocationLen,
		KeepForeign:        cfg.Pipeline.KeepForeign,
		ClassifyBatchSize:  cfg.Pipeline.ClassifyBatchSize,
		RemoveProcessed:    removeProcessed,
	}, pipeline.Deps{
		Splitter:   sentence.NewSplitter(sentence.DefaultMinWords),
		Filter:     filter,
		Classifier: langid.NewHTTPClassifier(cfg.LangID.URL, cfg.LangID.Timeout.Std()),
		Resolver:   resolver,
		Dedup:      dedup,
		Users:      users,
		Segments:   segments,
		Preprocess: preprocess,
	})
	return p, resolver, nil
}

var rootCmd = &cobra.Command{
	Use:   "gswcorpus",
	Short: "Build a Swiss German dialect corpus from raw tweet batches",
	Long: `gswcorpus turns raw tweet batches into a geolocated Swiss German corpus:
it cleans and splits the text, scores it with a language-identification
model, resolves locations to coordinates, and aggregates the collected
sentences into dialect-labelled datasets.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		quiet, _ := cmd.Flags().GetBool("quiet")
		setupLogger(debug, quiet)
	},
}

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Process raw tweet batches into corpus segments",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		removeProcessed, _ := cmd.Flags().GetBool("remove-processed")
		watch, _ := cmd.Flags().GetString("watch")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		p, resolver, err := buildPipeline(cfg, false, removeProcessed)
		if err != nil {
			return err
		}
		defer resolver.Close()

		if watch == "" {
			return p.Run(ctx, cfg.Paths.BatchDir)
		}

		// watch mode: run now, then on every cron tick; a tick that fires
		// while a run is still going is skipped
		if err := p.Run(ctx, cfg.Paths.BatchDir); err != nil {
			return err
		}
		c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
		_, err = c.AddFunc(watch, func() {
			if err := p.Run(ctx, cfg.Paths.BatchDir); err != nil {
				slog.Error("scheduled run failed", "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid --watch schedule %q: %w", watch, err)
		}
		c.Start()
		slog.Info("watching batch directory", "dir", cfg.Paths.BatchDir, "schedule", watch)
		<-ctx.Done()
		<-c.Stop().Done()
		return nil
	},
}

var recreateCmd = &cobra.Command{
	Use:   "recreate",
	Short: "Rebuild all segments from the raw batches from scratch",
	Long: `Recreate reprocesses every batch file while ignoring the existing dedup
ledger, so tweets already collected are admitted again. The user table is
reset and the ledger rewritten from this run alone. Existing segments are
not removed; point paths.out_dir at a fresh directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		p, resolver, err := buildPipeline(cfg, true, false)
		if err != nil {
			return err
		}
		defer resolver.Close()
		return p.Run(ctx, cfg.Paths.BatchDir)
	},
}

var concatCmd = &cobra.Command{
	Use:   "concat",
	Short: "Merge collected segments into the corpus file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := pipeline.NewSegmentStore(cfg.Paths.OutDir)
		if err != nil {
			return err
		}
		result, err := dataset.Concat(store, filepath.Join(cfg.Paths.OutDir, corpusFile))
		if err != nil {
			return err
		}
		fmt.Printf("added %d sentences, skipped %d duplicates\n", result.Added, result.Skipped)
		fmt.Printf("corpus confidence tiers: %d >= 0.90, %d >= 0.95, %d >= 0.99\n",
			result.Tiers.AtLeast90, result.Tiers.AtLeast95, result.Tiers.AtLeast99)
		return nil
	},
}

var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "Derive dialect labels and write the labelled/unlabelled splits",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		records, err := dataset.ReadCorpus(filepath.Join(cfg.Paths.OutDir, corpusFile))
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return fmt.Errorf("corpus is empty, run concat first")
		}

		states, err := dataset.OpenStateTable(filepath.Join(cfg.Paths.OutDir, statesFile))
		if err != nil {
			return err
		}
		resolver, err := buildResolver(cfg)
		if err != nil {
			return err
		}
		defer resolver.Close()

		sp := spinner.New(ctx, os.Stderr, "Resolving coordinates to cantons...")
		sp.Start()
		err = states.Resolve(ctx, resolver, records, cfg.Labelling.CheckpointInterval)
		sp.Stop()
		if err != nil {
			return err
		}

		lists, err := dataset.LoadReviewLists(
			cfg.Labelling.UsefulLocations, cfg.Labelling.UselessLocations, cfg.Labelling.Corrections)
		if err != nil {
			return err
		}
		sentences, err := dataset.Label(records, states, lists, dataset.LabelOptions{
			AdmissionThreshold: cfg.Pipeline.AdmissionThreshold,
			OverallThreshold:   cfg.Labelling.OverallThreshold,
			DominantThreshold:  cfg.Labelling.DominantThreshold,
		})
		if err != nil {
			return err
		}
		labelled, unlabelled := dataset.Split(sentences)
		if err := dataset.WriteSplit(filepath.Join(cfg.Paths.OutDir, labelledFile), labelled, true); err != nil {
			return err
		}
		if err := dataset.WriteSplit(filepath.Join(cfg.Paths.OutDir, unlabelledFile), unlabelled, false); err != nil {
			return err
		}
		fmt.Printf("%d labelled, %d unlabelled sentences\n", len(labelled), len(unlabelled))
		return nil
	},
}

var wordstatsCmd = &cobra.Command{
	Use:   "wordstats [dialect]",
	Short: "Report dialect-specific words from the labelled split",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		count, _ := cmd.Flags().GetInt("count")
		stem, _ := cmd.Flags().GetBool("stem")

		labelled, err := dataset.ReadSplit(filepath.Join(cfg.Paths.OutDir, labelledFile), true)
		if err != nil {
			return err
		}
		byDialect := make(map[string][]string)
		for _, s := range labelled {
			d := string(s.Label)
			byDialect[d] = append(byDialect[d], s.Sentence)
		}
		stats := wordstats.New(stem)
		dialects := make([]string, 0, len(byDialect))
		for d := range byDialect {
			dialects = append(dialects, d)
		}
		sort.Strings(dialects)
		for _, d := range dialects {
			stats.AddCorpus(d, byDialect[d])
		}

		if len(args) == 1 {
			dialects = args
		}
		for _, d := range dialects {
			words := stats.SpecificWords(d, threshold, count)
			fmt.Printf("%s: %d sentences, %d specific words (coverage %.1f%%)\n",
				d, len(byDialect[d]), len(words), 100*stats.Coverage(d, words))
			for _, w := range words {
				fmt.Printf("  %-20s %.4f%%\n", w, 100*stats.Proportion(d, w))
			}
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the corpus sentences",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		top, _ := cmd.Flags().GetInt("top")

		records, err := dataset.ReadCorpus(filepath.Join(cfg.Paths.OutDir, corpusFile))
		if err != nil {
			return err
		}
		sentences := make([]string, len(records))
		for i, r := range records {
			sentences[i] = r.Sentence
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		sp := spinner.New(ctx, os.Stderr, "Searching corpus...")
		sp.Start()
		ix := corpussearch.NewIndex(sentences)
		results := ix.Search(strings.Join(args, " "), top)
		sp.Stop()

		for _, r := range results {
			fmt.Printf("%8.3f  %s\n", r.Score, r.Sentence)
		}
		if len(results) == 0 {
			fmt.Println("no matches")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "config.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress progress logging")

	filterCmd.Flags().String("watch", "", "Keep running and reprocess the batch directory on this cron schedule")
	filterCmd.Flags().Bool("remove-processed", false, "Delete batch files after they processed cleanly")

	wordstatsCmd.Flags().Float64("threshold", 0.9, "Minimum specificity for a word to count as dialect-specific")
	wordstatsCmd.Flags().Int("count", 20, "Maximum words to report per dialect (0 for all)")
	wordstatsCmd.Flags().Bool("stem", false, "Pool inflection variants with a German stemmer")

	searchCmd.Flags().Int("top", 10, "Maximum results to print (0 for all)")

	rootCmd.AddCommand(filterCmd, recreateCmd, concatCmd, labelCmd, wordstatsCmd, searchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
