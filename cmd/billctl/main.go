package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appbilling "github.com/billing/backend/internal/application/billing"
	"github.com/billing/backend/internal/application/dunning"
	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/infrastructure/config"
	"github.com/billing/backend/internal/infrastructure/logger"
	"github.com/billing/backend/internal/infrastructure/persistence"
)

// billctl is the back-office CLI for invoice and reminder operations.
// The scheduler and the queue workers live in the server binary; this
// tool covers the operator-driven side.
func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	reminderRepo := persistence.NewGormReminderRepository(db.DB)
	uow := persistence.NewGormUnitOfWork(db.DB)

	reminderService := dunning.NewReminderService(invoiceRepo, reminderRepo, dunning.ReminderServiceConfig{
		DefaultIntervalDays: cfg.Dunning.DefaultIntervalDays,
		NotifyBeforeDays:    cfg.Dunning.NotifyBeforeDays,
	}, log)
	invoiceService := appbilling.NewInvoiceService(invoiceRepo, reminderService, log)
	settlementService := appbilling.NewSettlementService(uow, log)

	ctx := context.Background()

	switch command {
	case "create-invoice":
		runCreateInvoice(ctx, invoiceService, log, args[1:])
	case "apply-payment":
		runApplyPayment(ctx, settlementService, log, args[1:])
	case "reverse-payment":
		runReversePayment(ctx, settlementService, log, args[1:])
	case "delete-invoice":
		runDeleteInvoice(ctx, settlementService, log, args[1:])
	case "create-reminder":
		runCreateReminder(ctx, reminderService, log, args[1:])
	case "list-reminders":
		runListReminders(ctx, reminderRepo, log, args[1:])
	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

func runCreateInvoice(ctx context.Context, svc *appbilling.InvoiceService, log *zap.Logger, args []string) {
	fs := flag.NewFlagSet("create-invoice", flag.ExitOnError)
	owner := fs.String("owner", "", "Owner user ID")
	client := fs.String("client", "", "Client ID")
	number := fs.String("number", "", "Invoice number")
	amount := fs.String("amount", "", "Total amount")
	due := fs.String("due", "", "Due date (RFC 3339)")
	_ = fs.Parse(args)

	req := appbilling.CreateInvoiceRequest{
		CreatedBy:   mustUUID(log, "owner", *owner),
		ClientID:    mustUUID(log, "client", *client),
		Number:      *number,
		TotalAmount: mustDecimal(log, "amount", *amount),
		DueDate:     mustTime(log, "due", *due),
	}

	invoice, err := svc.CreateInvoice(ctx, req)
	if err != nil {
		log.Fatal("Failed to create invoice", zap.Error(err))
	}
	fmt.Println(invoice.ID)
}

func runApplyPayment(ctx context.Context, svc *appbilling.SettlementService, log *zap.Logger, args []string) {
	fs := flag.NewFlagSet("apply-payment", flag.ExitOnError)
	invoice := fs.String("invoice", "", "Invoice ID")
	user := fs.String("user", "", "Paying user ID")
	amount := fs.String("amount", "", "Payment amount")
	method := fs.String("method", "bank_transfer", "Payment method")
	_ = fs.Parse(args)

	updated, err := svc.ApplyPayment(ctx, mustUUID(log, "invoice", *invoice), appbilling.ApplyPaymentRequest{
		UserID: mustUUID(log, "user", *user),
		Amount: mustDecimal(log, "amount", *amount),
		Method: *method,
		PaidAt: time.Now(),
	})
	if err != nil {
		log.Fatal("Failed to apply payment", zap.Error(err))
	}
	fmt.Printf("%s %s/%s\n", updated.Status, updated.AmountPaid, updated.TotalAmount)
}

func runReversePayment(ctx context.Context, svc *appbilling.SettlementService, log *zap.Logger, args []string) {
	fs := flag.NewFlagSet("reverse-payment", flag.ExitOnError)
	payment := fs.String("payment", "", "Payment ID")
	_ = fs.Parse(args)

	updated, err := svc.ReversePayment(ctx, mustUUID(log, "payment", *payment))
	if err != nil {
		log.Fatal("Failed to reverse payment", zap.Error(err))
	}
	fmt.Printf("%s %s/%s\n", updated.Status, updated.AmountPaid, updated.TotalAmount)
}

func runDeleteInvoice(ctx context.Context, svc *appbilling.SettlementService, log *zap.Logger, args []string) {
	fs := flag.NewFlagSet("delete-invoice", flag.ExitOnError)
	invoice := fs.String("invoice", "", "Invoice ID")
	owner := fs.String("owner", "", "Owner user ID")
	_ = fs.Parse(args)

	if err := svc.DeleteInvoice(ctx, mustUUID(log, "invoice", *invoice), mustUUID(log, "owner", *owner)); err != nil {
		log.Fatal("Failed to delete invoice", zap.Error(err))
	}
}

func runCreateReminder(ctx context.Context, svc *dunning.ReminderService, log *zap.Logger, args []string) {
	fs := flag.NewFlagSet("create-reminder", flag.ExitOnError)
	invoice := fs.String("invoice", "", "Invoice ID")
	due := fs.String("due", "", "Due date (RFC 3339)")
	recurring := fs.Bool("recurring", false, "Recurring reminder")
	interval := fs.Int("interval", 0, "Recurrence interval in days")
	_ = fs.Parse(args)

	reminder, err := svc.CreateReminder(ctx, dunning.CreateReminderRequest{
		InvoiceID:    mustUUID(log, "invoice", *invoice),
		DueDate:      *due,
		IsRecurring:  *recurring,
		IntervalDays: *interval,
	})
	if err != nil {
		log.Fatal("Failed to create reminder", zap.Error(err))
	}
	fmt.Println(reminder.ID)
}

func runListReminders(ctx context.Context, repo billing.ReminderRepository, log *zap.Logger, args []string) {
	fs := flag.NewFlagSet("list-reminders", flag.ExitOnError)
	invoice := fs.String("invoice", "", "Invoice ID")
	_ = fs.Parse(args)

	reminders, err := repo.FindByInvoice(ctx, mustUUID(log, "invoice", *invoice))
	if err != nil {
		log.Fatal("Failed to list reminders", zap.Error(err))
	}
	for _, r := range reminders {
		fmt.Printf("%s %s due=%s recurring=%t interval=%d canceled=%t\n",
			r.ID, r.Status, r.DueDate.Format(time.RFC3339), r.IsRecurring, r.IntervalDays, r.Canceled)
	}
}

func mustUUID(log *zap.Logger, name, value string) uuid.UUID {
	id, err := uuid.Parse(value)
	if err != nil {
		log.Fatal("Invalid UUID flag", zap.String("flag", name), zap.String("value", value))
	}
	return id
}

func mustDecimal(log *zap.Logger, name, value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		log.Fatal("Invalid decimal flag", zap.String("flag", name), zap.String("value", value))
	}
	return d
}

func mustTime(log *zap.Logger, name, value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		log.Fatal("Invalid time flag", zap.String("flag", name), zap.String("value", value))
	}
	return t
}

func printUsage() {
	fmt.Println(`Billing Back-Office Tool

Usage:
  billctl [flags] <command> [arguments]

Commands:
  create-invoice   -owner <id> -client <id> -number <n> -amount <dec> -due <rfc3339>
  apply-payment    -invoice <id> -user <id> -amount <dec> [-method <m>]
  reverse-payment  -payment <id>
  delete-invoice   -invoice <id> -owner <id>
  create-reminder  -invoice <id> -due <rfc3339> [-recurring -interval <days>]
  list-reminders   -invoice <id>

Flags:
  -log-level string Log level (default: info)`)
}
