// aletheia-verify drives the verification core: verify a task from a JSON
// file, inspect a worker's quality profile, list recent results from the
// audit log, or serve the HTTP API.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/eipp/mindburn-aletheia-sub003/internal/config"
	"github.com/eipp/mindburn-aletheia-sub003/internal/fraud"
	"github.com/eipp/mindburn-aletheia-sub003/internal/metrics"
	"github.com/eipp/mindburn-aletheia-sub003/internal/quality"
	"github.com/eipp/mindburn-aletheia-sub003/internal/redisstore"
	"github.com/eipp/mindburn-aletheia-sub003/internal/server"
	"github.com/eipp/mindburn-aletheia-sub003/internal/storage"
	"github.com/eipp/mindburn-aletheia-sub003/internal/verification"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: aletheia-verify [-config file] <command> [args]

Commands:
  verify <input.json>   run verification for a task + submissions file
  worker <worker-id>    show a worker's metrics, quality score, and tier
  history [-hours n]    list recent verification results (SQLite store only)
  serve [-addr a]       serve the HTTP API
`)
	os.Exit(2)
}

// verifyInput is the file format accepted by the verify command.
type verifyInput struct {
	Task        verification.VerificationTask   `json:"task"`
	Submissions []verification.WorkerSubmission `json:"submissions"`
}

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.MetricsAddr != "" {
		metrics.Register()
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			log.Printf("Metrics server started on %s/metrics", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
				log.Printf("Failed to start metrics server: %v", err)
			}
		}()
	}

	ctx := context.Background()

	switch flag.Arg(0) {
	case "verify":
		if flag.NArg() != 2 {
			usage()
		}
		runVerify(ctx, cfg, flag.Arg(1))
	case "worker":
		if flag.NArg() != 2 {
			usage()
		}
		runWorker(ctx, cfg, flag.Arg(1))
	case "history":
		fs := flag.NewFlagSet("history", flag.ExitOnError)
		hours := fs.Int("hours", 24, "lookback window in hours")
		fs.Parse(flag.Args()[1:])
		runHistory(ctx, cfg, *hours)
	case "serve":
		fs := flag.NewFlagSet("serve", flag.ExitOnError)
		addr := fs.String("addr", ":8080", "listen address")
		fs.Parse(flag.Args()[1:])
		runServe(cfg, *addr)
	default:
		usage()
	}
}

// buildOrchestrator wires stores, detector, and orchestrator from config.
// The returned DB is nil when the Redis store is selected; the ranking func
// is backed by whichever store was picked.
func buildOrchestrator(cfg config.Config) (*verification.Orchestrator, *storage.DB, server.TopWorkersFunc) {
	var (
		store   verification.WorkerMetricsStore
		history verification.PerformanceHistoryStore
		db      *storage.DB
		top     server.TopWorkersFunc
	)

	scorer := quality.NewScorer(cfg.Quality)

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		rs := redisstore.NewStore(rdb, scorer)
		store, history = rs, rs
		top = func(ctx context.Context, limit int) ([]verification.WorkerMetrics, error) {
			return rs.TopWorkers(ctx, int64(limit))
		}
	} else {
		var err error
		db, err = storage.NewDB(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		store, history = db, db
		top = func(ctx context.Context, limit int) ([]verification.WorkerMetrics, error) {
			return db.TopWorkers(ctx, scorer, limit)
		}
	}

	detector := fraud.NewDetector(cfg.Fraud, history)
	return verification.NewOrchestrator(cfg.Verification, cfg.Quality, store, history, detector), db, top
}

func runVerify(ctx context.Context, cfg config.Config, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read input file: %v", err)
	}
	var input verifyInput
	if err := json.Unmarshal(data, &input); err != nil {
		log.Fatalf("Failed to parse input file: %v", err)
	}

	orch, db, _ := buildOrchestrator(cfg)
	if db != nil {
		defer db.Close()
	}

	result, err := orch.VerifyTask(ctx, &input.Task, input.Submissions)
	if err != nil {
		log.Fatalf("Verification failed: %v", err)
	}

	if db != nil {
		if err := db.RecordResult(ctx, result); err != nil {
			log.Printf("WARNING: failed to record result in audit log: %v", err)
		}
	}

	printJSON(result)
}

func runWorker(ctx context.Context, cfg config.Config, workerID string) {
	orch, db, _ := buildOrchestrator(cfg)
	if db != nil {
		defer db.Close()
	}

	profile, err := orch.WorkerProfile(ctx, workerID)
	if err != nil {
		log.Fatalf("Failed to load worker profile: %v", err)
	}
	printJSON(profile)
}

func runHistory(ctx context.Context, cfg config.Config, hours int) {
	if cfg.RedisAddr != "" {
		log.Fatal("The history command requires the SQLite store (audit log)")
	}

	db, err := storage.NewDB(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	since := time.Now().Add(-time.Duration(hours) * time.Hour).UnixMilli()
	records, err := db.RecentResults(ctx, since, 100)
	if err != nil {
		log.Fatalf("Failed to read audit log: %v", err)
	}
	printJSON(records)
}

func runServe(cfg config.Config, addr string) {
	orch, db, top := buildOrchestrator(cfg)
	if db != nil {
		defer db.Close()
	}

	var results server.ResultLog
	if db != nil {
		results = db
	}

	srv := server.New(orch, results, top)
	log.Printf("API server listening on %s", addr)
	if err := http.ListenAndServe(addr, srv); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
	fmt.Println(string(out))
}
