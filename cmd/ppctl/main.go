// Command ppctl runs the scheduled park passes jobs and the database
// migrations.  Each job is meant to be run once a day from cron.
package main

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/iliyamo/park-passes/internal/config"
	"github.com/iliyamo/park-passes/internal/database"
	"github.com/iliyamo/park-passes/internal/logging"
	"github.com/iliyamo/park-passes/internal/mail"
	"github.com/iliyamo/park-passes/internal/notify"
	"github.com/iliyamo/park-passes/internal/repository"
	"github.com/iliyamo/park-passes/internal/service"
	"github.com/iliyamo/park-passes/internal/storage"
)

func main() {
	config.LoadDotEnv()
	logging.Setup(config.LoadLogConfig())

	app := &cli.App{
		Name:  "ppctl",
		Usage: "park passes management commands",
		Commands: []*cli.Command{
			migrateCommand(),
			{
				Name:   "send-voucher-notifications",
				Usage:  "email vouchers due for delivery today",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "test", Usage: "count the vouchers without sending"}},
				Action: sendVoucherNotifications,
			},
			{
				Name:   "generate-retailer-invoices",
				Usage:  "generate last month's invoice and sales report for each retailer group",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "test", Usage: "invoice the current month instead"}},
				Action: generateRetailerInvoices,
			},
			{
				Name:  "send-pass-expiry-notices",
				Usage: "email holders of passes about to expire or expired yesterday",
				Flags: []cli.Flag{&cli.IntFlag{
					Name:  "days",
					Usage: "look-ahead in days (default from settings)",
				}},
				Action: sendPassExpiryNotices,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("ppctl failed")
	}
}

func migrateCommand() *cli.Command {
	run := func(fn func(*database.Migrator) error) cli.ActionFunc {
		return func(*cli.Context) error {
			m, err := database.NewMigrator(config.LoadDatabaseConfig())
			if err != nil {
				return err
			}
			defer m.Close()
			return fn(m)
		}
	}
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply or roll back schema migrations",
		Subcommands: []*cli.Command{
			{Name: "up", Usage: "apply all pending migrations", Action: run(func(m *database.Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				log.Info("migrations applied")
				return nil
			})},
			{Name: "down", Usage: "roll back the latest migration", Action: run(func(m *database.Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				log.Info("migrations rolled back")
				return nil
			})},
			{Name: "status", Usage: "print the schema version", Action: run(func(m *database.Migrator) error {
				v, dirty, ok, err := m.Version()
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("no migrations applied")
					return nil
				}
				fmt.Printf("version %d (dirty=%t)\n", v, dirty)
				return nil
			})},
		},
	}
}

// env is what every job needs: a database and the settings.
type env struct {
	db       *sql.DB
	settings config.Settings
}

func openEnv() (*env, error) {
	db, err := database.Open(config.LoadDatabaseConfig())
	if err != nil {
		return nil, err
	}
	return &env{db: db, settings: config.LoadSettings()}, nil
}

func (e *env) notifier() service.Notifier {
	return notify.New(mail.New(config.LoadSMTPConfig(), e.settings.NoReplyEmail), e.settings)
}

func report(name string, r service.JobReport) error {
	entry := log.WithFields(log.Fields{"job": name, "found": r.Found, "done": r.Done, "errors": len(r.Errors)})
	if len(r.Errors) > 0 {
		entry.Warn("job finished with errors")
		return cli.Exit(fmt.Sprintf("%s: %d errors:\n%s", name, len(r.Errors), strings.Join(r.Errors, "\n")), 1)
	}
	entry.Info("job finished")
	return nil
}

func sendVoucherNotifications(c *cli.Context) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.db.Close()
	job := &service.VoucherNotificationJob{
		Vouchers: repository.NewVoucherRepo(e.db),
		Users:    repository.NewUserRepo(e.db),
		Notifier: e.notifier(),
	}
	r, err := job.Run(c.Context, c.Bool("test"))
	if err != nil {
		return err
	}
	return report(c.Command.Name, r)
}

func generateRetailerInvoices(c *cli.Context) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.db.Close()
	store, err := storage.New(c.Context, config.LoadStorageConfig())
	if err != nil {
		return err
	}
	job := &service.InvoiceJob{
		Groups:   repository.NewRetailerGroupRepo(e.db),
		Passes:   repository.NewPassRepo(e.db),
		Reports:  repository.NewReportRepo(e.db),
		Store:    store,
		Settings: e.settings,
	}
	r, err := job.Run(c.Context, c.Bool("test"))
	if err != nil {
		return err
	}
	return report(c.Command.Name, r)
}

func sendPassExpiryNotices(c *cli.Context) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.db.Close()
	days := e.settings.ExpiryNoticeDays
	if c.IsSet("days") {
		days = c.Int("days")
	}
	if days < 0 {
		return cli.Exit("--days must not be negative", 2)
	}
	job := &service.ExpiryNoticeJob{
		Passes:   repository.NewPassRepo(e.db),
		Notifier: e.notifier(),
	}
	r, err := job.Run(c.Context, days)
	if err != nil {
		return err
	}
	return report(c.Command.Name, r)
}
