package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/park-passes/internal/config"
	"github.com/iliyamo/park-passes/internal/database"
	"github.com/iliyamo/park-passes/internal/handler"
	"github.com/iliyamo/park-passes/internal/logging"
	"github.com/iliyamo/park-passes/internal/middleware"
	"github.com/iliyamo/park-passes/internal/repository"
	"github.com/iliyamo/park-passes/internal/router"
	"github.com/iliyamo/park-passes/internal/service"
	"github.com/iliyamo/park-passes/internal/storage"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.Log)

	db, err := database.Open(cfg.Database())
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	ctx := context.Background()
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.WithError(err).Fatal("object storage unavailable")
	}

	rdb := config.NewRedisClient()
	events := service.NewAMQPPublisher(cfg.RabbitMQ)
	defer events.Close()

	tx := database.NewTransactor(db)
	passes := repository.NewPassRepo(db)
	vouchers := repository.NewVoucherRepo(db)
	voucherTxns := repository.NewVoucherTransactionRepo(db)
	groups := repository.NewRetailerGroupRepo(db)

	catalogue := &service.CatalogueService{
		PassTypes: repository.NewPassTypeRepo(db),
		Windows:   repository.NewPricingWindowRepo(db),
		Options:   repository.NewPricingOptionRepo(db),
		Tx:        tx,
		Cache:     middleware.NewCachePurger(cfg.Cache, rdb),
		Settings:  cfg.Settings,
	}
	passSvc := &service.PassService{
		Passes:      passes,
		Catalogue:   catalogue,
		Concessions: repository.NewConcessionRepo(db),
		Codes:       repository.NewDiscountCodeRepo(db),
		Vouchers:    vouchers,
		VoucherTxns: voucherTxns,
		Groups:      groups,
		Tx:          tx,
		Events:      events,
		Settings:    cfg.Settings,
	}
	voucherSvc := &service.VoucherService{
		Vouchers:    vouchers,
		VoucherTxns: voucherTxns,
		Tx:          tx,
		Events:      events,
		Settings:    cfg.Settings,
	}
	docs := &service.DocumentService{
		Passes:    passes,
		Templates: repository.NewPassTemplateRepo(db),
		Store:     store,
	}
	admin := &service.AdminService{
		Concessions: passSvc.Concessions,
		Codes:       passSvc.Codes,
		Groups:      groups,
		Reports:     repository.NewReportRepo(db),
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.Validator{}
	e.Use(logging.RequestLogger())
	e.Use(middleware.NewTokenBucket(cfg.RateLimit, rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db)), cfg.JWTSecret)
	router.RegisterCatalogue(e, handler.NewCatalogueHandler(catalogue), cfg.JWTSecret, middleware.NewRedisCache(cfg.Cache, rdb))
	router.RegisterPasses(e, handler.NewPassHandler(passSvc, docs), cfg.JWTSecret)
	router.RegisterVouchers(e, handler.NewVoucherHandler(voucherSvc), cfg.JWTSecret, middleware.NewTokenBucket(cfg.RateLimit.ValidateBucket(), rdb))
	router.RegisterAdmin(e, handler.NewAdminHandler(admin, docs), cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(log.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
