package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/api-sage/retail-banking-ledger/internal/adapter/repository/memory"
	"github.com/api-sage/retail-banking-ledger/internal/adapter/repository/postgres"
	"github.com/api-sage/retail-banking-ledger/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/retail-banking-ledger/internal/adapter/repository/sqlite"
	"github.com/api-sage/retail-banking-ledger/internal/config"
	"github.com/api-sage/retail-banking-ledger/internal/logger"
	"github.com/api-sage/retail-banking-ledger/internal/models"
	"github.com/api-sage/retail-banking-ledger/internal/notifier"
	"github.com/api-sage/retail-banking-ledger/internal/usecase/service_interfaces"
	"github.com/api-sage/retail-banking-ledger/internal/usecase/services"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerd",
		Short:         "Retail banking ledger operations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		migrateCmd(),
		openCmd(),
		depositCmd(),
		withdrawCmd(),
		loanCmd(),
		repayCmd(),
		transferCmd(),
		reportCmd(),
	)

	return root
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Storage != config.StoragePostgres {
				return fmt.Errorf("migrate applies to postgres storage only, got %q", cfg.Storage)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			if err := postgres.RunMigrations(ctx, cfg.DatabaseDSN, cfg.MigrationsDir); err != nil {
				return err
			}

			logger.Info("migrations applied", logger.Fields{"dir": cfg.MigrationsDir})
			return nil
		},
	}
}

func openCmd() *cobra.Command {
	var ownerID, kind, initialDeposit string

	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a new account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, deps serviceSet) error {
				req := models.OpenAccountRequest{OwnerID: ownerID, Kind: kind}
				if initialDeposit != "" {
					amount, err := decimal.NewFromString(initialDeposit)
					if err != nil {
						return fmt.Errorf("parse initial deposit: %w", err)
					}
					req.InitialDeposit = &amount
				}

				resp, err := deps.accounts.OpenAccount(ctx, req)
				printResponse(resp)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&ownerID, "owner", "", "owner identifier")
	cmd.Flags().StringVar(&kind, "kind", "SAVINGS", "account kind (SAVINGS or CURRENT)")
	cmd.Flags().StringVar(&initialDeposit, "initial-deposit", "", "optional opening deposit amount")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func depositCmd() *cobra.Command {
	var accountID int64
	var amount string

	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposit funds into an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, deps serviceSet) error {
				value, err := decimal.NewFromString(amount)
				if err != nil {
					return fmt.Errorf("parse amount: %w", err)
				}

				resp, err := deps.ledger.Deposit(ctx, models.DepositRequest{AccountID: accountID, Amount: value})
				printResponse(resp)
				return err
			})
		},
	}

	cmd.Flags().Int64Var(&accountID, "account", 0, "account id")
	cmd.Flags().StringVar(&amount, "amount", "", "amount to deposit")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func withdrawCmd() *cobra.Command {
	var accountID int64
	var amount string

	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw funds from an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, deps serviceSet) error {
				value, err := decimal.NewFromString(amount)
				if err != nil {
					return fmt.Errorf("parse amount: %w", err)
				}

				resp, err := deps.ledger.Withdraw(ctx, models.WithdrawRequest{AccountID: accountID, Amount: value})
				printResponse(resp)
				return err
			})
		},
	}

	cmd.Flags().Int64Var(&accountID, "account", 0, "account id")
	cmd.Flags().StringVar(&amount, "amount", "", "amount to withdraw")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func loanCmd() *cobra.Command {
	var accountID int64
	var amount string

	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Request a loan against an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, deps serviceSet) error {
				value, err := decimal.NewFromString(amount)
				if err != nil {
					return fmt.Errorf("parse amount: %w", err)
				}

				resp, err := deps.ledger.RequestLoan(ctx, models.LoanRequest{AccountID: accountID, Amount: value})
				printResponse(resp)
				return err
			})
		},
	}

	cmd.Flags().Int64Var(&accountID, "account", 0, "account id")
	cmd.Flags().StringVar(&amount, "amount", "", "loan amount")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func repayCmd() *cobra.Command {
	var entryID int64

	cmd := &cobra.Command{
		Use:   "repay",
		Short: "Repay an approved loan entry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, deps serviceSet) error {
				resp, err := deps.ledger.RepayLoan(ctx, models.RepayLoanRequest{EntryID: entryID})
				printResponse(resp)
				return err
			})
		},
	}

	cmd.Flags().Int64Var(&entryID, "entry", 0, "loan entry id")
	_ = cmd.MarkFlagRequired("entry")

	return cmd
}

func transferCmd() *cobra.Command {
	var senderID, receiverNumber int64
	var amount string

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Transfer funds between two accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, deps serviceSet) error {
				value, err := decimal.NewFromString(amount)
				if err != nil {
					return fmt.Errorf("parse amount: %w", err)
				}

				resp, err := deps.ledger.Transfer(ctx, models.TransferRequest{
					SenderAccountID:       senderID,
					ReceiverAccountNumber: receiverNumber,
					Amount:                value,
				})
				printResponse(resp)
				return err
			})
		},
	}

	cmd.Flags().Int64Var(&senderID, "from", 0, "sender account id")
	cmd.Flags().Int64Var(&receiverNumber, "to", 0, "receiver account number")
	cmd.Flags().StringVar(&amount, "amount", "", "amount to transfer")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func reportCmd() *cobra.Command {
	var accountID int64
	var startDate, endDate string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print an account statement",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, deps serviceSet) error {
				resp, err := deps.reports.Statement(ctx, models.StatementRequest{
					AccountID: accountID,
					StartDate: startDate,
					EndDate:   endDate,
				})
				printResponse(resp)
				return err
			})
		},
	}

	cmd.Flags().Int64Var(&accountID, "account", 0, "account id")
	cmd.Flags().StringVar(&startDate, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "end date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

type serviceSet struct {
	accounts service_interfaces.AccountService
	ledger   service_interfaces.LedgerService
	reports  service_interfaces.ReportService
}

func withServices(parent context.Context, run func(context.Context, serviceSet) error) error {
	ctx, cancel := context.WithTimeout(parent, 60*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	deps, cleanup, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	return run(ctx, deps)
}

func buildServices(ctx context.Context, cfg config.Config) (serviceSet, func(), error) {
	var (
		accountRepo repo_interfaces.AccountRepository
		ledgerRepo  repo_interfaces.LedgerRepository
		cleanup     = func() {}
	)

	switch cfg.Storage {
	case config.StoragePostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return serviceSet{}, nil, err
		}
		accountRepo = postgres.NewAccountRepository(db, cfg.BaseAccountNumber)
		ledgerRepo = postgres.NewLedgerRepository(db)
		cleanup = func() { _ = db.Close() }
	case config.StorageSQLite:
		store, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return serviceSet{}, nil, err
		}
		accountRepo = store
		ledgerRepo = store
		cleanup = func() { _ = store.Close() }
	case config.StorageMemory:
		store := memory.NewStore()
		accountRepo = store
		ledgerRepo = store
	default:
		return serviceSet{}, nil, fmt.Errorf("unsupported storage %q", cfg.Storage)
	}

	var notify notifier.Notifier = notifier.NewLogNotifier()
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		notify = notifier.NewRedisPublisher(client, cfg.NotificationStream)
		inner := cleanup
		cleanup = func() {
			_ = client.Close()
			inner()
		}
	}

	policy := services.NewLoanPolicy(ledgerRepo, cfg.LoanLimit)
	deps := serviceSet{
		accounts: services.NewAccountService(accountRepo, ledgerRepo),
		ledger:   services.NewLedgerService(ledgerRepo, accountRepo, policy, notify, cfg.LoanCreditsOnApproval),
		reports:  services.NewReportService(ledgerRepo, accountRepo),
	}

	return deps, cleanup, nil
}

func printResponse(resp any) {
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		fmt.Println(resp)
		return
	}
	fmt.Println(string(out))
}
