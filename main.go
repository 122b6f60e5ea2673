package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/malekbenamor02/AyachiProd/internal/auth"
	"github.com/malekbenamor02/AyachiProd/internal/catalog"
	"github.com/malekbenamor02/AyachiProd/internal/config"
	"github.com/malekbenamor02/AyachiProd/internal/logging"
	"github.com/malekbenamor02/AyachiProd/internal/s3"
	"github.com/malekbenamor02/AyachiProd/internal/upload"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	logOpts := logging.DefaultOptions()
	logOpts.Filename = cfg.LogFile
	log := logging.New(logOpts)
	defer log.Sync()

	uploadCfg, err := config.LoadUploadConfig()
	if err != nil {
		log.Fatalf("Failed to load upload config: %v", err)
	}

	store, err := s3.NewClient(ctx, cfg.S3Region, cfg.S3Bucket, cfg.AWSAccessKey, cfg.AWSSecretKey, cfg.S3Endpoint, cfg.CDNURL)
	if err != nil {
		log.Fatalf("Failed to create storage client: %v", err)
	}

	cat, err := catalog.NewStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer cat.Close()

	service := upload.NewService(store, cat, uploadCfg.Upload, log)

	api := http.NewServeMux()
	upload.NewHandler(service, "galleries", uploadCfg.Upload, log).
		Register(api, "/api/galleries/{ownerID}/media")
	upload.NewHandler(service, "sections", uploadCfg.Upload, log).
		Register(api, "/api/sections/{ownerID}/work-images")

	middleware := auth.AdminMiddleware(&auth.Config{Token: cfg.AdminToken})

	mux := http.NewServeMux()
	mux.Handle("/api/", middleware(api))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: mux,
		// Part bodies travel through /upload-part; give binary transfers room.
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
