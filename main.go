package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Shanayardptrial/Passport-Photo-maker/config"
	"github.com/Shanayardptrial/Passport-Photo-maker/handler"
	"github.com/Shanayardptrial/Passport-Photo-maker/middleware"
	"github.com/Shanayardptrial/Passport-Photo-maker/segmentation"
	"github.com/Shanayardptrial/Passport-Photo-maker/service"
	"github.com/Shanayardptrial/Passport-Photo-maker/utils"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	BuildID   = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Printf("Failed to load .env: %v\n", err)
	}

	cfg, err := config.New()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := utils.InitLogger(cfg.Server.Mode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.Sync()

	utils.Logger.Info("starting passport photo server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("git_branch", GitBranch),
		zap.String("remover", cfg.Remover.Backend))

	geometry := service.GeometryFromConfig(&cfg.Passport)
	if err := geometry.Validate(); err != nil {
		utils.Logger.Fatal("invalid passport geometry", zap.Error(err))
	}

	remover, err := buildRemover(cfg)
	if err != nil {
		utils.Logger.Fatal("failed to set up background remover", zap.Error(err))
	}

	var cache handler.ResultCache
	if cfg.Redis.Enabled {
		redisService := service.NewRedisService(&cfg.Redis)
		if err := redisService.Ping(context.Background()); err != nil {
			utils.Logger.Warn("redis connection failed, cache disabled", zap.Error(err))
			_ = redisService.Close()
		} else {
			utils.Logger.Info("redis connected successfully")
			cache = redisService
			defer redisService.Close()
		}
	}

	pipeline := service.NewPipeline(remover, service.NewImageCompositor(), geometry, cfg.Remover.Timeout)
	sheets := service.NewSheetComposer(service.SheetLayoutFromConfig(&cfg.Sheet))

	gin.SetMode(cfg.Server.Mode)
	r := newRouter(cfg,
		handler.NewPassportHandler(&cfg.Upload, pipeline, cache, geometry.String()),
		handler.NewSheetHandler(sheets))

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	utils.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := serveHTTPServer(server, cfg.Server.ShutdownTimeout, utils.Logger); err != nil {
		utils.Logger.Fatal("server stopped with error", zap.Error(err))
	}
	utils.Logger.Info("server stopped")
}

// buildRemover selects the background removal back-end named in the config.
func buildRemover(cfg *config.Config) (service.Remover, error) {
	switch cfg.Remover.Backend {
	case "command":
		store := service.NewDirScratchStore(cfg.Upload.ScratchDir, cfg.Remover.CleanupTempFiles)
		return service.NewScratchRemover(store, service.NewCommandRemover(&cfg.Remover.Command)), nil
	case "http":
		return service.NewHTTPRemover(&cfg.Remover.HTTP, nil), nil
	case "grabcut":
		return segmentation.NewGrabCutRemover(&cfg.Remover.GrabCut), nil
	case "none":
		return service.DisabledRemover{}, nil
	default:
		return nil, fmt.Errorf("unknown remover backend %q", cfg.Remover.Backend)
	}
}

func newRouter(cfg *config.Config, passport *handler.PassportHandler, sheet *handler.SheetHandler) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = cfg.Upload.MaxSize
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())

	if cfg.Server.StaticDir != "" {
		r.Static("/static", cfg.Server.StaticDir)
		r.StaticFile("/", filepath.Join(cfg.Server.StaticDir, "index.html"))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Server is running",
			"version": Version,
		})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"build_id":   BuildID,
			"git_commit": GitCommit,
			"git_branch": GitBranch,
		})
	})

	// the browser UI posts here
	r.POST("/api/remove-background", passport.Create)

	api := r.Group("/api/v1")
	{
		api.POST("/passport", passport.Create)
		api.GET("/photo/:key", passport.Get)
		api.POST("/sheet", sheet.Create)
	}

	return r
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	sigCh := signalCh
	if sigCh == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(ch)
		sigCh = ch
	}

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
