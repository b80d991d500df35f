// Package cli implements creditctl, the operator tool for the ledger database.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"socialcredit-api/internal/config"
	"socialcredit-api/internal/mojang"
	"socialcredit-api/internal/repository"
	"socialcredit-api/internal/service"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "creditctl",
	Short: "Operate the social credit ledger",
	Long: `creditctl talks to the ledger database directly, using the same
configuration as the API server (environment, .env and CONFIG_FILE).`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// env is what every subcommand needs: the loaded config, an open store and
// the ledger service built on top of it.
type env struct {
	cfg    *config.Config
	store  *repository.SQLStore
	ledger *service.LedgerService
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	store, err := repository.Open(cfg.LedgerDB.Type, cfg.LedgerDB.Target())
	if err != nil {
		return nil, fmt.Errorf("open ledger store: %w", err)
	}
	settings := service.NewSettingsService(store, nil, 0)
	verifier := mojang.NewClient(cfg.Mojang.BaseURL, cfg.Mojang.Timeout)
	return &env{
		cfg:    cfg,
		store:  store,
		ledger: service.NewLedgerService(store, verifier, settings),
	}, nil
}

// withEnv opens the store for the duration of fn.
func withEnv(fn func(ctx context.Context, e *env) error) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.store.Close()
	return fn(context.Background(), e)
}

func parseID(name, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return id, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
