// Command worker consumes the pass and voucher events published by the
// API and does the slow work after commit: pass documents and emails.
package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/park-passes/internal/config"
	"github.com/iliyamo/park-passes/internal/database"
	"github.com/iliyamo/park-passes/internal/logging"
	"github.com/iliyamo/park-passes/internal/mail"
	"github.com/iliyamo/park-passes/internal/notify"
	"github.com/iliyamo/park-passes/internal/queue"
	"github.com/iliyamo/park-passes/internal/repository"
	"github.com/iliyamo/park-passes/internal/service"
	"github.com/iliyamo/park-passes/internal/storage"
)

func main() {
	config.LoadDotEnv()
	logging.Setup(config.LoadLogConfig())
	settings := config.LoadSettings()
	mq := config.LoadRabbitMQConfig()

	db, err := database.Open(config.LoadDatabaseConfig())
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(ctx, config.LoadStorageConfig())
	if err != nil {
		log.WithError(err).Fatal("object storage unavailable")
	}

	passes := repository.NewPassRepo(db)
	w := &service.Worker{
		Passes:   passes,
		Vouchers: repository.NewVoucherRepo(db),
		Users:    repository.NewUserRepo(db),
		Documents: &service.DocumentService{
			Passes:    passes,
			Templates: repository.NewPassTemplateRepo(db),
			Store:     store,
		},
		Notifier: notify.New(mail.New(config.LoadSMTPConfig(), settings.NoReplyEmail), settings),
		Settings: settings,
	}

	c := queue.NewConsumer(mq.URL, mq.Prefetch)
	c.Handle(mq.PassSavedQueue, w.HandlePassSaved)
	c.Handle(mq.VoucherPurchasedQueue, w.HandleVoucherPurchased)

	log.WithFields(log.Fields{"pass_saved": mq.PassSavedQueue, "voucher_purchased": mq.VoucherPurchasedQueue}).Info("worker started")
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("consumer stopped")
	}
	log.Info("worker stopped")
}
