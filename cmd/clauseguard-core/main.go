package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/clauseguard/clauseguard-core/internal/adapters/driven/ai"
	"github.com/clauseguard/clauseguard-core/internal/adapters/driven/filestore"
	"github.com/clauseguard/clauseguard-core/internal/adapters/driven/postgres"
	"github.com/clauseguard/clauseguard-core/internal/adapters/driven/qdrant"
	redisqueue "github.com/clauseguard/clauseguard-core/internal/adapters/driven/queue/redis"
	redisadapter "github.com/clauseguard/clauseguard-core/internal/adapters/driven/redis"
	"github.com/clauseguard/clauseguard-core/internal/config"
	"github.com/clauseguard/clauseguard-core/internal/core/domain"
	"github.com/clauseguard/clauseguard-core/internal/core/ports/driven"
	"github.com/clauseguard/clauseguard-core/internal/core/ports/driving"
	"github.com/clauseguard/clauseguard-core/internal/core/services"
	"github.com/clauseguard/clauseguard-core/internal/fusion"
	"github.com/clauseguard/clauseguard-core/internal/index"
	"github.com/clauseguard/clauseguard-core/internal/runtime"
	"github.com/clauseguard/clauseguard-core/internal/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

var version = "dev"

func main() {
	// Get run mode from environment (RUN_MODE) or command line arg
	mode := getEnv("RUN_MODE", "all")
	args := os.Args[1:]
	if len(args) > 0 {
		mode = args[0]
		args = args[1:]
	}

	log.Printf("clauseguard-core %s starting in %s mode", version, mode)

	cfg := config.Load()

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()

	// ===== Initialize PostgreSQL =====
	log.Println("Connecting to PostgreSQL...")
	db, err := postgres.Connect(ctx, postgres.DefaultConfig(cfg.Database.DSN))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize schema (idempotent)
	if err := db.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	log.Println("PostgreSQL connected and schema initialized")

	runStore := postgres.NewRunStore(db)

	// ===== Initialize Redis (optional) =====
	// Without Redis the report cache and async analysis are disabled;
	// synchronous analyze mode still works.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		log.Println("Connecting to Redis...")
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("Warning: Redis unavailable: %v (report cache and task queue disabled)", err)
			client.Close()
		} else {
			redisClient = client
			defer redisClient.Close()
			log.Println("Redis connected")
		}
	}

	var reportCache driven.ReportCache
	var taskQueue driven.TaskQueue
	if redisClient != nil {
		reportCache = redisadapter.NewReportCache(redisClient)
		taskQueue, err = redisqueue.NewQueue(redisClient, fmt.Sprintf("worker-%d", os.Getpid()))
		if err != nil {
			log.Fatalf("Failed to create task queue: %v", err)
		}
	}

	// Runtime configuration
	queueBackend := "memory"
	if redisClient != nil {
		queueBackend = "redis"
	}
	runtimeConfig := domain.NewRuntimeConfig(queueBackend)
	runtimeServices := runtime.NewServices(runtimeConfig)
	defer runtimeServices.Close()

	// ===== AI clients =====
	aiFactory := ai.NewFactory()

	generator, err := aiFactory.CreateGenerator(ai.ProviderSettings{
		Provider: ai.ProviderOpenAI,
		APIKey:   cfg.AI.OpenAI.APIKey,
		Model:    cfg.AI.OpenAI.Model,
		BaseURL:  cfg.AI.OpenAI.BaseURL,
	})
	if err != nil {
		log.Fatalf("Failed to create generator: %v", err)
	}
	if generator == nil {
		log.Println("No OpenAI key configured, drafting and review disabled")
	} else if err := runtimeServices.ValidateAndSetGenerator(ctx, generator); err != nil {
		log.Printf("Warning: generator unavailable: %v", err)
	}

	embedder, err := aiFactory.CreateEmbedding(ai.ProviderSettings{
		Provider: ai.ProviderOpenAI,
		APIKey:   cfg.AI.OpenAI.APIKey,
		Model:    cfg.AI.OpenAI.EmbeddingModel,
		BaseURL:  cfg.AI.OpenAI.BaseURL,
	})
	if err != nil {
		log.Fatalf("Failed to create embedding client: %v", err)
	}
	if embedder != nil {
		semantic, err := qdrant.NewSemanticSearch(cfg.AI.Qdrant.URL, cfg.AI.Qdrant.Collection, embedder)
		if err != nil {
			log.Fatalf("Failed to create semantic search: %v", err)
		}
		if err := runtimeServices.ValidateAndSetSemantic(ctx, semantic); err != nil {
			log.Printf("Warning: semantic search unavailable: %v (keyword-only retrieval)", err)
		}
	}

	reranker, err := aiFactory.CreateReranker(ai.ProviderSettings{
		Provider: ai.ProviderCohere,
		APIKey:   cfg.AI.Cohere.APIKey,
		Model:    cfg.AI.Cohere.Model,
		BaseURL:  cfg.AI.Cohere.BaseURL,
	})
	if err != nil {
		log.Fatalf("Failed to create reranker: %v", err)
	}
	if reranker != nil {
		runtimeServices.SetReranker(reranker)
	}

	log.Printf("Runtime config: queue_backend=%s, semantic=%t, reranker=%t, generator=%t",
		runtimeConfig.QueueBackend,
		runtimeConfig.SemanticAvailable(),
		runtimeConfig.RerankerAvailable(),
		runtimeConfig.GeneratorAvailable())

	// ===== Corpus and keyword index =====
	chunks, err := filestore.LoadCorpus(cfg.Storage.CorpusPath)
	if err != nil {
		log.Fatalf("Failed to load corpus: %v", err)
	}
	keywordIndex := index.NewKeywordIndex(index.DefaultK1, index.DefaultB)
	keywordIndex.Index(chunks)
	log.Printf("Keyword index built over %d chunks", len(chunks))

	documents, err := filestore.NewSource(cfg.Storage.DocumentsDir)
	if err != nil {
		log.Fatalf("Failed to open documents directory: %v", err)
	}

	// ===== Services (core business logic) =====
	searchService := services.NewSearchService(services.SearchServiceConfig{
		KeywordIndex: keywordIndex,
		Fuser:        fusion.New(cfg.Retrieval.RRFK),
		Services:     runtimeServices,
		Corpus:       chunks,
		DefaultOptions: domain.SearchOptions{
			RetrievalK: cfg.Retrieval.RetrievalK,
			FusionK:    cfg.Retrieval.FusionK,
			RerankK:    cfg.Retrieval.RerankK,
		},
		RerankTimeout: cfg.Retrieval.RerankTimeout,
		Logger:        slog.Default(),
	})

	reviewers := make([]*services.Reviewer, 0, len(domain.ReviewerKinds))
	for _, kind := range domain.ReviewerKinds {
		reviewers = append(reviewers, services.NewReviewer(kind, runtimeServices, slog.Default()))
	}

	pipeline := services.NewReviewPipeline(services.ReviewPipelineConfig{
		Writer:        services.NewWriter(runtimeServices, slog.Default()),
		Reviewers:     reviewers,
		Arbitrator:    services.NewArbitrator(runtimeServices, slog.Default()),
		MaxIterations: cfg.Pipeline.MaxIterations,
		Logger:        slog.Default(),
	})

	analysisService := services.NewAnalysisService(services.AnalysisServiceConfig{
		Documents:      documents,
		Search:         searchService,
		Pipeline:       pipeline,
		Assembler:      services.NewAssembler(slog.Default()),
		Cache:          reportCache,
		Store:          runStore,
		Queue:          taskQueue,
		AnalyzeTimeout: cfg.Pipeline.AnalyzeTimeout,
		CacheTTL:       cfg.Pipeline.CacheTTL,
		Logger:         slog.Default(),
	})

	switch mode {
	case "analyze":
		// One-shot mode: analyze a single document and print the report
		runAnalyze(ctx, analysisService, args)

	case "worker":
		// Worker-only mode: process queued analysis tasks
		runWorkerMode(ctx, cfg, taskQueue, analysisService)

	case "all":
		// Combined mode: enqueue any documents given on the command
		// line, then process tasks until shutdown
		for _, docID := range args {
			taskID, err := analysisService.AnalyzeAsync(ctx, docID, domain.AnalysisContractReview)
			if err != nil {
				log.Fatalf("Failed to enqueue %s: %v", docID, err)
			}
			log.Printf("Enqueued analysis of %s as task %s", docID, taskID)
		}
		runWorkerMode(ctx, cfg, taskQueue, analysisService)

	default:
		log.Fatalf("Unknown mode: %s (use: analyze, worker, or all)", mode)
	}
}

// runAnalyze runs one synchronous analysis and writes the report as JSON
// to stdout.
func runAnalyze(ctx context.Context, analysis driving.AnalysisService, args []string) {
	if len(args) < 1 {
		log.Fatal("Usage: clauseguard-core analyze <document-id> [analysis-type]")
	}
	docID := args[0]
	analysisType := domain.AnalysisContractReview
	if len(args) > 1 {
		analysisType = domain.AnalysisType(args[1])
	}

	report, partial, err := analysis.Analyze(ctx, docID, analysisType)
	if err != nil {
		if partial != nil {
			log.Printf("Analysis incomplete: %s (last stage %s)", partial.Reason, partial.Stage)
		}
		log.Fatalf("Analysis failed: %v", err)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode report: %v", err)
	}
	fmt.Println(string(out))
}

// runWorkerMode starts the worker and blocks until shutdown.
func runWorkerMode(ctx context.Context, cfg config.Config, taskQueue driven.TaskQueue, analysis driving.AnalysisService) {
	if taskQueue == nil {
		log.Fatal("Worker mode requires Redis (set REDIS_ADDR)")
	}

	if cfg.Worker.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Printf("Metrics listening on %s", cfg.Worker.MetricsAddr)
			if err := http.ListenAndServe(cfg.Worker.MetricsAddr, mux); err != nil {
				log.Printf("Metrics server error: %v", err)
			}
		}()
	}

	w := worker.New(worker.Config{
		TaskQueue:   taskQueue,
		Analysis:    analysis,
		Logger:      slog.Default(),
		Concurrency: cfg.Worker.Concurrency,
	})

	if err := w.Start(ctx); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}
	log.Println("Worker started, processing tasks...")

	<-ctx.Done()

	log.Println("Stopping worker...")
	w.Stop()
	w.Wait()
	log.Println("Worker stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
