package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"imageqa/internal/chunker"
	"imageqa/internal/config"
	"imageqa/internal/embedding"
	"imageqa/internal/extract"
	"imageqa/internal/llm"
	"imageqa/internal/service"
	"imageqa/internal/tui"
	"imageqa/internal/vectorstore"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, question string
	var topK int
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/imageqa/config.yaml if not provided)")
	flag.StringVar(&question, "ask", "", "Ask a single question and print the answer instead of starting the TUI")
	flag.IntVar(&topK, "k", 0, "Number of chunks to retrieve (0 uses the configured default)")
	flag.Parse()
	sources := flag.Args()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// The TUI owns the terminal; route logs away from it.
	interactive := question == ""
	logger := zap.NewNop()
	if !interactive {
		logger, err = zap.NewDevelopment()
		if err != nil {
			log.Fatalf("failed to init logger: %v", err)
		}
		defer func() { _ = logger.Sync() }()
	}

	svc, err := assemble(cfg, logger)
	if err != nil {
		log.Fatalf("failed to assemble pipeline: %v", err)
	}

	ctx := context.Background()
	banner := "Using existing index."
	if len(sources) > 0 {
		stats, err := svc.Ingest(ctx, sources)
		if err != nil {
			log.Fatalf("ingest failed: %v", err)
		}
		banner = stats.String()
	}

	if !interactive {
		answer, err := svc.Answer(ctx, question, topK)
		if err != nil {
			log.Fatalf("ask failed: %v", err)
		}
		fmt.Println(answer)
		return
	}

	if len(sources) == 0 && cfg.Store.Type == "memory" {
		fmt.Println("Usage: imageqa [--config=config.yaml] [--ask=\"question\"] [-k=3] file1.txt [file2.txt ...]")
		os.Exit(1)
	}

	m := tui.New(svc, banner)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}

func assemble(cfg *config.AppConfig, logger *zap.Logger) (*service.QAService, error) {
	ch, err := chunker.NewWindowChunker(cfg.Chunker.MaxChars, cfg.Chunker.OverlapChars)
	if err != nil {
		return nil, err
	}

	var emb embedding.Embedder
	switch cfg.Embedder.Type {
	case "hash", "":
		dim := 0
		if cfg.Embedder.Hash != nil {
			dim = cfg.Embedder.Hash.Dimension
		}
		emb = embedding.NewHashEmbedder(dim)
	case "openai":
		oc := cfg.Embedder.OpenAI
		if oc == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		// Lazy handle: the client is built on first use, so a missing key
		// only surfaces when embedding is actually needed.
		emb = embedding.NewHandle(func() (embedding.Embedder, error) {
			return embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
				BaseURL:       oc.BaseURL,
				APIKeyEnv:     oc.APIKeyEnv,
				Model:         oc.Model,
				Timeout:       time.Duration(oc.TimeoutSecs) * time.Second,
				PassagePrefix: oc.PassagePrefix,
				QueryPrefix:   oc.QueryPrefix,
				MaxInputChars: oc.MaxInputChars,
				BatchSize:     oc.BatchSize,
			})
		})
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}

	var store vectorstore.Store
	switch cfg.Store.Type {
	case "disk", "":
		store, err = vectorstore.NewDiskStore(cfg.Store.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("open vector store at %s: %w", cfg.Store.Path, err)
		}
	case "memory":
		store = vectorstore.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Store.Type)
	}

	gen, err := llm.NewClient(llm.Config{
		BaseURL:     cfg.Generator.BaseURL,
		APIKeyEnv:   cfg.Generator.APIKeyEnv,
		Model:       cfg.Generator.Model,
		Temperature: cfg.Generator.Temperature,
		MaxTokens:   cfg.Generator.MaxTokens,
		Timeout:     time.Duration(cfg.Generator.TimeoutSecs) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	return service.New(
		extract.NewFileExtractor(logger),
		ch,
		emb,
		store,
		gen,
		service.NewBarReporter(true),
		logger,
		cfg.TopK,
	), nil
}
