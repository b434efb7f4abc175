package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"document-diff/internal/analysis"
	"document-diff/internal/chromemdb"
	"document-diff/internal/compare"
	"document-diff/internal/config"
	"document-diff/internal/db"
	"document-diff/internal/embedding"
	"document-diff/internal/helper"
	"document-diff/internal/llmservice"
	"document-diff/internal/obligations"
	"document-diff/internal/parser"
	"document-diff/internal/server"
)

const (
	configFilePath = "./configs/config.yaml"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the YAML config file")
	originalPath := flag.String("original", "", "Path to the original document")
	revisedPath := flag.String("revised", "", "Path to the revised document")
	analyzePath := flag.String("analyze", "", "Path to a document to explain in plain language")
	obligationsPath := flag.String("obligations", "", "Path to a document to extract obligations and deadlines from")
	serve := flag.Bool("serve", false, "Run the HTTP API")
	flag.Parse()

	modes := 0
	for _, set := range []bool{*originalPath != "" || *revisedPath != "", *analyzePath != "", *obligationsPath != "", *serve} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		log.Fatal().Msg("Please provide exactly one of -original with -revised, -analyze, -obligations or -serve")
	}
	if (*originalPath != "") != (*revisedPath != "") {
		log.Fatal().Msg("Please provide both -original and -revised")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	setLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *serve:
		err = runServer(ctx, cfg)
	case *analyzePath != "":
		err = analyzeFile(ctx, cfg, *analyzePath)
	case *obligationsPath != "":
		err = extractObligations(ctx, cfg, *obligationsPath)
	default:
		err = compareFiles(ctx, cfg, *originalPath, *revisedPath)
	}
	if err != nil {
		stop()
		log.Fatal().Err(err).Msg("Command failed")
	}
}

func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Warn().Str("log_level", level).Msg("Unknown log level, using debug")
		return
	}
	zerolog.SetGlobalLevel(lvl)
}

// compareFiles prints the comparison report of two files. The embedding cache is
// exported before returning, on failure too.
func compareFiles(ctx context.Context, cfg *config.Config, originalPath, revisedPath string) error {
	comparator, closeCache, err := newComparator(cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	original, err := readDocument(originalPath)
	if err != nil {
		return err
	}
	revised, err := readDocument(revisedPath)
	if err != nil {
		return err
	}

	report, err := comparator.CompareDocuments(ctx, original, revised)
	if err != nil {
		return fmt.Errorf("error comparing documents: %w", err)
	}

	if cfg.Database.Enabled {
		archive, err := newArchive(ctx, &cfg.Database)
		if err != nil {
			log.Error().Err(err).Msg("Error opening report archive")
		} else {
			if err := archive.Store(ctx, original.Name, revised.Name, report); err != nil {
				log.Error().Err(err).Msg("Error archiving report")
			}
			archive.Close()
		}
	}

	helper.PrettyPrint(report)
	return nil
}

func analyzeFile(ctx context.Context, cfg *config.Config, path string) error {
	analyzer, err := newAnalyzer(cfg)
	if err != nil {
		return err
	}

	text, err := parser.ExtractFile(path)
	if err != nil {
		return fmt.Errorf("error parsing %s: %w", path, err)
	}

	res, err := analyzer.Analyze(ctx, text)
	if err != nil {
		return err
	}
	res.Filename = filepath.Base(path)
	helper.PrettyPrint(res)
	return nil
}

func extractObligations(ctx context.Context, cfg *config.Config, path string) error {
	extractor, err := newExtractor(cfg)
	if err != nil {
		return err
	}

	text, err := parser.ExtractFile(path)
	if err != nil {
		return fmt.Errorf("error parsing %s: %w", path, err)
	}

	report, err := extractor.Extract(ctx, filepath.Base(path), text)
	if err != nil {
		return err
	}
	helper.PrettyPrint(report)
	return nil
}

func runServer(ctx context.Context, cfg *config.Config) error {
	comparator, closeCache, err := newComparator(cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	analyzer, err := newAnalyzer(cfg)
	if err != nil {
		return err
	}
	extractor, err := newExtractor(cfg)
	if err != nil {
		return err
	}

	var archive server.ReportArchive
	if cfg.Database.Enabled {
		a, err := newArchive(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("error opening report archive: %w", err)
		}
		defer a.Close()
		archive = a
	}

	info := server.ModelInfo{Embedding: cfg.EmbedLLM.Model, Inference: cfg.InferenceLLM.Model}
	srv := server.New(comparator, analyzer, extractor, archive, info)
	if err := srv.Run(ctx, cfg.Server.Address); err != nil {
		return fmt.Errorf("HTTP server stopped: %w", err)
	}
	return nil
}

func readDocument(path string) (compare.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return compare.Document{}, fmt.Errorf("error reading document: %w", err)
	}
	return compare.Document{Name: filepath.Base(path), Data: data}, nil
}

func newGenerator(cfg *config.Config) (llmservice.Generator, error) {
	llm, err := llmservice.NewGenerator(&cfg.InferenceLLM)
	if err != nil {
		return nil, fmt.Errorf("error initializing inference model: %w", err)
	}
	return llm, nil
}

func newAnalyzer(cfg *config.Config) (*analysis.Analyzer, error) {
	llm, err := newGenerator(cfg)
	if err != nil {
		return nil, err
	}
	return analysis.NewAnalyzer(llm, cfg.InferenceLLM.Model, cfg.Analysis.MaxDocumentChars), nil
}

func newExtractor(cfg *config.Config) (*obligations.Extractor, error) {
	opts := obligations.Options{MaxChars: cfg.Obligations.MaxDocumentChars, Timeout: cfg.InferenceLLM.Timeout}
	if cfg.Obligations.RulesOnly {
		return obligations.NewExtractor(nil, opts), nil
	}
	llm, err := newGenerator(cfg)
	if err != nil {
		return nil, err
	}
	return obligations.NewExtractor(llm, opts), nil
}

// newComparator builds the comparison pipeline. The returned func persists the
// embedding cache and must be called on exit.
func newComparator(cfg *config.Config) (*compare.Comparator, func(), error) {
	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing embedder: %w", err)
	}
	llm, err := newGenerator(cfg)
	if err != nil {
		return nil, nil, err
	}

	var clauseEmbedder embeddings.Embedder = embedder
	closeCache := func() {}
	if cfg.Cache.Enabled {
		store, err := openCache(&cfg.Cache)
		if err != nil {
			return nil, nil, err
		}
		clauseEmbedder = embedding.NewCachedEmbedder(embedder, store, cfg.EmbedLLM.Model)
		closeCache = func() {
			if err := store.Export(); err != nil {
				log.Error().Err(err).Msg("Error exporting embedding cache")
			}
		}
	}

	return compare.New(clauseEmbedder, llm, compare.OptionsFromConfig(cfg)), closeCache, nil
}

// openCache loads the embedding cache. With Reset the cached collection is dropped
// and recreated empty.
func openCache(cfg *config.CacheConfig) (*chromemdb.VectorDBManager, error) {
	if err := helper.CreateFolder(cfg.Path); err != nil {
		return nil, err
	}

	store, err := chromemdb.NewVectorDBManager(cfg.Path, cfg.Collection, cfg.InMemory, cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	if err := store.Import(); err != nil {
		return nil, err
	}
	if _, err := store.GetOrCreateCollection(cfg.Collection); err != nil {
		return nil, err
	}
	if cfg.Reset {
		if err := store.DeleteCollection(); err != nil {
			return nil, err
		}
		if _, err := store.GetOrCreateCollection(cfg.Collection); err != nil {
			return nil, err
		}
		log.Info().Str("collection", cfg.Collection).Msg("Reset embedding cache")
	}
	log.Info().Int("cached", store.Count()).Str("collection", cfg.Collection).Msg("Embedding cache ready")
	return store, nil
}

func newArchive(ctx context.Context, cfg *config.DatabaseConfig) (*db.Archive, error) {
	sqldb, err := db.ConnectDB(cfg)
	if err != nil {
		return nil, err
	}
	bunDB := db.NewDB(sqldb, cfg.Debug)
	if cfg.Reset {
		if err := db.DropReports(ctx, bunDB); err != nil {
			bunDB.Close()
			return nil, err
		}
		log.Info().Msg("Dropped report archive")
	}
	if err := db.InitDB(ctx, bunDB); err != nil {
		bunDB.Close()
		return nil, err
	}
	return db.NewArchive(bunDB), nil
}
