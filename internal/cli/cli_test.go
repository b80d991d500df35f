package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"socialcredit-api/internal/model"
	"socialcredit-api/internal/repository"
)

// useTempLedger points the config at a fresh SQLite file holding one account.
func useTempLedger(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("LEDGER_DB_TYPE", "sqlite")
	t.Setenv("LEDGER_DB_PATH", path)

	store, err := repository.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := store.RegisterAccount(ctx, model.Account{
		DiscordID:         42,
		DiscordUsername:   "alice",
		MinecraftUsername: "alice_mc",
		MinecraftUUID:     "alice-uuid",
		JoinedAt:          time.Now(),
	}); err != nil {
		t.Fatalf("RegisterAccount() error: %v", err)
	}
	if _, err := store.SetBalance(ctx, 42, 100); err != nil {
		t.Fatalf("SetBalance() error: %v", err)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestMigrate(t *testing.T) {
	useTempLedger(t)

	out, err := run(t, "migrate")
	if err != nil {
		t.Fatalf("migrate error: %v", err)
	}
	if !strings.Contains(out, "sqlite") {
		t.Errorf("output = %q, want dialect name", out)
	}
}

func TestAccountShow(t *testing.T) {
	useTempLedger(t)

	out, err := run(t, "account", "show", "42")
	if err != nil {
		t.Fatalf("account show error: %v", err)
	}
	if !strings.Contains(out, `"discord_username": "alice"`) {
		t.Errorf("output = %q, want alice's account", out)
	}

	if _, err := run(t, "account", "show", "7"); err == nil {
		t.Error("account show for unknown id: expected error")
	}
	if _, err := run(t, "account", "show", "abc"); err == nil {
		t.Error("account show with non-numeric id: expected error")
	}
}

func TestBalanceSet(t *testing.T) {
	useTempLedger(t)

	out, err := run(t, "balance", "set", "42", "250", "--actor", "1")
	if err != nil {
		t.Fatalf("balance set error: %v", err)
	}
	if !strings.Contains(out, "alice: 100 -> 250") {
		t.Errorf("output = %q", out)
	}

	if _, err := run(t, "balance", "set", "--actor", "1", "--", "42", "-5"); err == nil {
		t.Error("negative balance: expected error")
	}
}

func TestTransfersListEmpty(t *testing.T) {
	useTempLedger(t)

	out, err := run(t, "transfers", "list", "42", "--page", "1", "--limit", "10")
	if err != nil {
		t.Fatalf("transfers list error: %v", err)
	}
	if !strings.Contains(out, "0 of 0") {
		t.Errorf("output = %q, want empty listing", out)
	}
}
