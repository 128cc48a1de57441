// Package main serves the cycle simulation over HTTP: bars come from
// ClickHouse (or a CSV loaded at startup), requests carry the strategy
// configuration, responses carry the ledger, cycle summaries, and metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"jollygold-backtest/services/clickhouse"
	"jollygold-backtest/services/engine"
	"jollygold-backtest/services/ingest"
	"jollygold-backtest/services/report"
)

// BarSource yields the bars for a requested date range.
type BarSource interface {
	Bars(ctx context.Context, from, to time.Time) ([]engine.Bar, error)
}

type storeSource struct{ store *clickhouse.Store }

func (s storeSource) Bars(ctx context.Context, from, to time.Time) ([]engine.Bar, error) {
	return s.store.QueryBars(ctx, from, to)
}

// csvSource serves a file loaded once at startup; the engine does its own
// range selection, so the full set is returned.
type csvSource struct{ bars []engine.Bar }

func (s csvSource) Bars(context.Context, time.Time, time.Time) ([]engine.Bar, error) {
	return s.bars, nil
}

// SimulationService wires the bar source to the engine.
type SimulationService struct {
	source BarSource
	logger *zap.Logger
}

type runRequest struct {
	StartDate       string    `json:"start_date" binding:"required"`
	EndDate         string    `json:"end_date"`
	Lots            []float64 `json:"lots"`
	Gaps            []float64 `json:"gaps"`
	ProfitTargetPct float64   `json:"profit_target_pct"`
	Multiplier      float64   `json:"multiplier"`
	MaxLegs         int       `json:"max_legs"`
	SingleCycle     bool      `json:"single_cycle"`
	Scheduler       string    `json:"scheduler"` // "contiguous" (default) or "calendar"
}

type runResponse struct {
	JobID       string                `json:"job_id"`
	TotalProfit float64               `json:"total_profit"`
	Metrics     report.Metrics        `json:"metrics"`
	Cycles      []engine.CycleSummary `json:"cycles"`
	Ledger      []engine.LedgerRow    `json:"ledger"`
	ElapsedMs   int64                 `json:"elapsed_ms"`
}

func (s *SimulationService) handleRun(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("bad start_date: %v", err)})
		return
	}
	var end time.Time
	if req.EndDate != "" {
		if end, err = time.Parse("2006-01-02", req.EndDate); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("bad end_date: %v", err)})
			return
		}
	}

	jobID := uuid.New().String()
	started := time.Now()
	s.logger.Info("starting simulation",
		zap.String("job_id", jobID),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
		zap.Bool("single_cycle", req.SingleCycle),
		zap.String("scheduler", req.Scheduler),
	)

	cfg := engine.DefaultConfig()
	if len(req.Lots) > 0 {
		cfg.Lots = req.Lots
	}
	if len(req.Gaps) > 0 {
		cfg.Gaps = req.Gaps
	}
	if req.ProfitTargetPct > 0 {
		cfg.ProfitTarget = req.ProfitTargetPct / 100
	}
	cfg.Multiplier = req.Multiplier
	cfg.MaxLegs = req.MaxLegs

	opts := engine.Options{Start: start, End: end, SingleCycle: req.SingleCycle}
	if req.Scheduler == "calendar" {
		opts.Scheduler = engine.CalendarScheduler{}
	}

	queryEnd := end
	if queryEnd.IsZero() {
		// The position may run past the nominal end; fetch generously.
		queryEnd = start.AddDate(10, 0, 0)
	} else {
		queryEnd = queryEnd.AddDate(1, 0, 0)
	}
	bars, err := s.source.Bars(c.Request.Context(), start, queryEnd)
	if err != nil {
		s.logger.Error("bar source failed", zap.String("job_id", jobID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	res, err := engine.Run(engine.NewSeries(bars), cfg, opts)
	if err != nil {
		s.logger.Warn("invalid configuration", zap.String("job_id", jobID), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	elapsed := time.Since(started)
	s.logger.Info("simulation complete",
		zap.String("job_id", jobID),
		zap.Int("cycles", len(res.Cycles)),
		zap.Float64("total_profit", res.TotalProfit),
		zap.Duration("elapsed", elapsed),
	)
	c.JSON(http.StatusOK, runResponse{
		JobID:       jobID,
		TotalProfit: res.TotalProfit,
		Metrics:     report.Summarize(res),
		Cycles:      res.Cycles,
		Ledger:      res.Ledger,
		ElapsedMs:   elapsed.Milliseconds(),
	})
}

func main() {
	var (
		addr    = flag.String("addr", ":8080", "HTTP listen address")
		csvFile = flag.String("csv", "", "Serve bars from this CSV instead of ClickHouse")
	)
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var source BarSource
	if *csvFile != "" {
		bars, err := ingest.LoadCSV(*csvFile)
		if err != nil {
			logger.Fatal("load csv", zap.String("path", *csvFile), zap.Error(err))
		}
		logger.Info("serving bars from csv", zap.String("path", *csvFile), zap.Int("bars", len(bars)))
		source = csvSource{bars: bars}
	} else {
		store, err := clickhouse.NewStore(clickhouse.FromEnv())
		if err != nil {
			logger.Fatal("clickhouse connect", zap.Error(err))
		}
		defer store.Close()
		logger.Info("serving bars from clickhouse")
		source = storeSource{store: store}
	}

	svc := &SimulationService{source: source, logger: logger}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": time.Now().UTC()})
	})
	router.POST("/api/v1/backtest", svc.handleRun)

	srv := &http.Server{Addr: *addr, Handler: router}
	go func() {
		logger.Info("http server listening", zap.String("addr", *addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
