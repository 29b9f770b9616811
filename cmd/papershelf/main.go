package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/papershelf/internal/config"
	"github.com/xxxsen/papershelf/internal/handler"
	"github.com/xxxsen/papershelf/internal/middleware"
	"github.com/xxxsen/papershelf/internal/repo"
	"github.com/xxxsen/papershelf/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configPath string
	var seedPath string

	rootCmd := &cobra.Command{
		Use:   "papershelf",
		Short: "research paper summary backend",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run papershelf server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(configPath)
			if err != nil {
				return err
			}
			handle := repo.NewHandle(cfg.DBPath)
			defer handle.Close()
			if _, err := handle.Acquire(cmd.Context()); err != nil {
				return err
			}
			return runServer(cfg, handle)
		},
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "replace all papers with the ones in --file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if seedPath == "" {
				return fmt.Errorf("--file is required")
			}
			cfg, err := setup(configPath)
			if err != nil {
				return err
			}
			inputs, err := service.ReadSeedFile(seedPath)
			if err != nil {
				return err
			}
			handle := repo.NewHandle(cfg.DBPath)
			defer handle.Close()
			papers := service.NewPaperService(repo.NewPaperRepo(handle), 0, 0)
			ids, err := papers.Seed(cmd.Context(), inputs)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			fmt.Printf("seeded %d papers\n", len(ids))
			return nil
		},
	}
	seedCmd.Flags().StringVar(&seedPath, "file", "", "path to a JSON array of papers")

	rootCmd.AddCommand(runCmd, seedCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func setup(configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded",
		zap.String("config", configPath),
		zap.String("db_path", cfg.DBPath),
	)
	return cfg, nil
}

func runServer(cfg *config.Config, handle *repo.Handle) error {
	gin.SetMode(gin.ReleaseMode)
	paperRepo := repo.NewPaperRepo(handle)
	papers := service.NewPaperService(
		paperRepo,
		cfg.CacheSize,
		time.Duration(cfg.CacheTTLSeconds)*time.Second,
	)

	middlewares := []gin.HandlerFunc{
		middleware.RequestID(),
		middleware.AccessLog(),
		middleware.CORS(cfg.CORSOrigins),
	}
	if cfg.Gzip {
		middlewares = append(middlewares, gzip.Gzip(gzip.DefaultCompression))
	}
	router := handler.NewRouter(handler.RouterDeps{
		Papers:       handler.NewPaperHandler(papers),
		Tags:         handler.NewTagHandler(service.NewTagService(paperRepo)),
		WriteLimiter: middleware.RateLimit(time.Duration(cfg.WriteIntervalMS) * time.Millisecond),
	}, middlewares...)

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logutil.GetLogger(context.Background()).Info("server stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
