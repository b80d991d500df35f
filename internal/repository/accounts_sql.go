package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"socialcredit-api/internal/model"
)

const accountColumns = `id, discord_id, discord_username, minecraft_username, minecraft_uuid, balance, ledger_channel_id, joined_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var acc model.Account
	var channel sql.NullInt64
	var joined int64
	if err := row.Scan(&acc.ID, &acc.DiscordID, &acc.DiscordUsername, &acc.MinecraftUsername,
		&acc.MinecraftUUID, &acc.Balance, &channel, &joined); err != nil {
		return nil, err
	}
	if channel.Valid {
		id := channel.Int64
		acc.LedgerChannelID = &id
		acc.HasLedger = true
	}
	acc.JoinedAt = fromMillis(joined)
	return &acc, nil
}

// RegisterAccount inserts a new account with zero balance and no ledger.
func (s *SQLStore) RegisterAccount(ctx context.Context, acc model.Account) (*model.Account, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var taken int
		err := tx.QueryRowContext(ctx, s.q(`
			SELECT COUNT(*) FROM accounts
			WHERE discord_id = ? OR discord_username = ? OR minecraft_username = ? OR minecraft_uuid = ?`),
			acc.DiscordID, acc.DiscordUsername, acc.MinecraftUsername, acc.MinecraftUUID).Scan(&taken)
		if err != nil {
			return fmt.Errorf("failed to check identity: %w", err)
		}
		if taken > 0 {
			return model.ErrDuplicateIdentity
		}

		_, err = tx.ExecContext(ctx, s.q(`
			INSERT INTO accounts (discord_id, discord_username, minecraft_username, minecraft_uuid, balance, joined_at)
			VALUES (?, ?, ?, ?, 0, ?)`),
			acc.DiscordID, acc.DiscordUsername, acc.MinecraftUsername, acc.MinecraftUUID, toMillis(acc.JoinedAt))
		if err != nil {
			if isUniqueViolation(err) {
				return model.ErrDuplicateIdentity
			}
			return fmt.Errorf("failed to register account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.FindAccount(ctx, model.ByDiscordID, acc.DiscordID)
}

// FindAccount looks an account up by one of its unique fields.
func (s *SQLStore) FindAccount(ctx context.Context, field model.AccountField, value interface{}) (*model.Account, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("invalid account field %q", field)
	}

	// field is one of a closed set of column names
	query := s.q(`SELECT ` + accountColumns + ` FROM accounts WHERE ` + string(field) + ` = ?`)

	acc, err := scanAccount(s.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return acc, nil
}

// BindLedgerChannel attaches a ledger channel to an account.
func (s *SQLStore) BindLedgerChannel(ctx context.Context, discordID, channelID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var owner int64
		err := tx.QueryRowContext(ctx, s.q(`SELECT discord_id FROM accounts WHERE ledger_channel_id = ?`), channelID).Scan(&owner)
		switch {
		case err == nil && owner != discordID:
			return model.ErrDuplicateIdentity
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("failed to check ledger channel: %w", err)
		}

		res, err := tx.ExecContext(ctx, s.q(`UPDATE accounts SET ledger_channel_id = ? WHERE discord_id = ?`), channelID, discordID)
		if err != nil {
			if isUniqueViolation(err) {
				return model.ErrDuplicateIdentity
			}
			return fmt.Errorf("failed to bind ledger channel: %w", err)
		}
		return requireRow(res)
	})
}

// SetBalance overwrites the balance and returns the previous one.
func (s *SQLStore) SetBalance(ctx context.Context, discordID, balance int64) (int64, error) {
	var prior int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, s.q(`SELECT balance FROM accounts WHERE discord_id = ?`), discordID).Scan(&prior)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.ErrNotFound
			}
			return fmt.Errorf("failed to read balance: %w", err)
		}

		res, err := tx.ExecContext(ctx, s.q(`UPDATE accounts SET balance = ? WHERE discord_id = ?`), balance, discordID)
		if err != nil {
			return fmt.Errorf("failed to set balance: %w", err)
		}
		return requireRow(res)
	})
	return prior, err
}

// requireRow maps an UPDATE that matched nothing to model.ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}
