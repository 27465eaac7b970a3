package main

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ahmedrzakhan/portfolio-analytics/internal/config"
	"github.com/ahmedrzakhan/portfolio-analytics/internal/handler"
	"github.com/ahmedrzakhan/portfolio-analytics/internal/logger"
	"github.com/ahmedrzakhan/portfolio-analytics/internal/service"
	"github.com/ahmedrzakhan/portfolio-analytics/internal/store/rest"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	log.Info("Starting dashboard service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("port", cfg.Service.APIPort))

	// Initialize analytics store client
	storeClient, err := rest.NewClient(cfg.Store, log)
	if err != nil {
		log.Fatal("Failed to create analytics store client", zap.Error(err))
	}

	// Initialize stats service
	statsService := service.NewStatsService(storeClient, log)

	// Initialize handler
	h := handler.NewHandler(statsService, log)

	addr := fmt.Sprintf(":%s", cfg.Service.APIPort)
	log.Info("Dashboard server starting", zap.String("address", addr))

	if err := http.ListenAndServe(addr, h); err != nil {
		log.Fatal("Failed to start dashboard server", zap.Error(err))
	}
}
