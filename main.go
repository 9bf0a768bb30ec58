package main

import (
	"context"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"earn-ledger/catalog"
	"earn-ledger/config"
	"earn-ledger/handlers"
	"earn-ledger/ledger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	var logger *zap.Logger
	if cfg.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Article catalog
	cat, err := catalog.Open(cfg.CatalogDB)
	if err != nil {
		logger.Fatal("catalog open failed", zap.Error(err))
	}
	if cfg.CatalogSeed != "" {
		articles, err := catalog.LoadSeedFile(cfg.CatalogSeed)
		if err != nil {
			logger.Fatal("catalog seed load failed", zap.Error(err))
		}
		if err := cat.Seed(context.Background(), articles); err != nil {
			logger.Fatal("catalog seed failed", zap.Error(err))
		}
		logger.Info("catalog seeded", zap.Int("articles", len(articles)))
	}
	if n, err := cat.Count(context.Background()); err == nil {
		logger.Info("catalog ready", zap.Int64("articles", n))
	}

	// Ledger store
	store, err := ledger.Open(ledger.Options{
		Path:           cfg.DataFile,
		Catalog:        cat,
		Logger:         logger,
		RateCap:        cfg.RateCap,
		RateWindow:     cfg.RateWindow,
		PersistTimeout: cfg.PersistTimeout,
	})
	if err != nil {
		logger.Fatal("ledger open failed", zap.Error(err))
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	earn := &handlers.Earn{Store: store, Cfg: cfg, Log: logger}
	admin := &handlers.Admin{Store: store, Token: cfg.AdminToken, Log: logger}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	v1 := r.Group("/v1/earn")
	{
		v1.POST("/claim", earn.SubmitClaim)
		v1.GET("/status/:claim_id", earn.GetStatus)
		v1.GET("/leaderboard", earn.GetLeaderboard)
		v1.GET("/rates", earn.GetRates)

		adm := v1.Group("/admin", admin.RequireToken())
		adm.POST("/reject", admin.RejectAgent)
		adm.POST("/settle", admin.SettleClaim)
	}

	color.Cyan("⚡ The Agent Times earn ledger on %s", cfg.ListenAddr)
	logger.Info("starting earn ledger",
		zap.String("listen", cfg.ListenAddr),
		zap.String("data_file", cfg.DataFile),
		zap.Bool("admin_enabled", cfg.AdminToken != ""))

	if err := r.Run(cfg.ListenAddr); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
