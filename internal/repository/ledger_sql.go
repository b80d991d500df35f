package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"socialcredit-api/internal/model"
)

// Transfer debits sender and credits receiver in one transaction. The debit is
// conditional on the balance still covering amount, so concurrent transfers
// cannot overdraw an account.
func (s *SQLStore) Transfer(ctx context.Context, senderID, receiverID, amount int64, at time.Time) (*model.TransferRecord, int64, error) {
	if amount <= 0 {
		return nil, 0, model.ErrInvalidAmount
	}

	record := &model.TransferRecord{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     amount,
		CreatedAt:  fromMillis(toMillis(at)),
	}
	var senderBalance int64

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.q(`
			UPDATE accounts SET balance = balance - ?
			WHERE discord_id = ? AND balance >= ?`), amount, senderID, amount)
		if err != nil {
			return fmt.Errorf("failed to debit sender: %w", err)
		}
		if err := requireRow(res); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.ErrInsufficientFunds
			}
			return err
		}

		res, err = tx.ExecContext(ctx, s.q(`UPDATE accounts SET balance = balance + ? WHERE discord_id = ?`), amount, receiverID)
		if err != nil {
			return fmt.Errorf("failed to credit receiver: %w", err)
		}
		if err := requireRow(res); err != nil {
			return err
		}

		record.ID, err = s.insertTransfer(ctx, tx, record, "")
		if err != nil {
			return err
		}

		return tx.QueryRowContext(ctx, s.q(`SELECT balance FROM accounts WHERE discord_id = ?`), senderID).Scan(&senderBalance)
	})
	if err != nil {
		return nil, 0, err
	}
	return record, senderBalance, nil
}

// SettleClaim marks a claim paid, credits the claimant and appends a reward
// record, all in one transaction.
func (s *SQLStore) SettleClaim(ctx context.Context, kind model.WorkKind, messageID, claimantID, reward int64, at time.Time) (*model.TransferRecord, int64, error) {
	record := &model.TransferRecord{
		SenderID:   model.SystemSenderID,
		ReceiverID: claimantID,
		Amount:     reward,
		TaskReward: kind == model.KindTask,
		JobReward:  kind == model.KindJob,
		CreatedAt:  fromMillis(toMillis(at)),
	}
	var newBalance int64

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var paidAt sql.NullInt64
		err := tx.QueryRowContext(ctx, s.q(`
			SELECT paid_at FROM work_claims
			WHERE kind = ? AND message_id = ? AND claimant_id = ?`), string(kind), messageID, claimantID).Scan(&paidAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.ErrNotClaimedByUser
			}
			return fmt.Errorf("failed to read claim: %w", err)
		}
		if paidAt.Valid {
			return model.ErrAlreadyPaid
		}

		res, err := tx.ExecContext(ctx, s.q(`
			UPDATE work_claims SET paid_at = ?
			WHERE kind = ? AND message_id = ? AND claimant_id = ? AND paid_at IS NULL`),
			toMillis(at), string(kind), messageID, claimantID)
		if err != nil {
			return fmt.Errorf("failed to settle claim: %w", err)
		}
		if err := requireRow(res); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.ErrAlreadyPaid
			}
			return err
		}

		res, err = tx.ExecContext(ctx, s.q(`UPDATE accounts SET balance = balance + ? WHERE discord_id = ?`), reward, claimantID)
		if err != nil {
			return fmt.Errorf("failed to credit claimant: %w", err)
		}
		if err := requireRow(res); err != nil {
			return err
		}

		record.ID, err = s.insertTransfer(ctx, tx, record, string(kind))
		if err != nil {
			return err
		}

		return tx.QueryRowContext(ctx, s.q(`SELECT balance FROM accounts WHERE discord_id = ?`), claimantID).Scan(&newBalance)
	})
	if err != nil {
		return nil, 0, err
	}
	return record, newBalance, nil
}

func (s *SQLStore) insertTransfer(ctx context.Context, tx *sql.Tx, r *model.TransferRecord, rewardKind string) (int64, error) {
	id, err := s.insertID(ctx, tx, `
		INSERT INTO transfers (sender_discord_id, receiver_discord_id, amount, reward_kind, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		r.SenderID, r.ReceiverID, r.Amount, rewardKind, toMillis(r.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to log transfer: %w", err)
	}
	return id, nil
}

// ListTransfers returns records involving discordID, newest first.
func (s *SQLStore) ListTransfers(ctx context.Context, discordID int64, limit, offset int) ([]model.TransferRecord, int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT COUNT(*) FROM transfers WHERE sender_discord_id = ? OR receiver_discord_id = ?`),
		discordID, discordID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count transfers: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, sender_discord_id, receiver_discord_id, amount, reward_kind, created_at
		FROM transfers
		WHERE sender_discord_id = ? OR receiver_discord_id = ?
		ORDER BY id DESC
		LIMIT ? OFFSET ?`), discordID, discordID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	records := []model.TransferRecord{}
	for rows.Next() {
		var r model.TransferRecord
		var kind string
		var created int64
		if err := rows.Scan(&r.ID, &r.SenderID, &r.ReceiverID, &r.Amount, &kind, &created); err != nil {
			return nil, 0, err
		}
		r.TaskReward = kind == string(model.KindTask)
		r.JobReward = kind == string(model.KindJob)
		r.CreatedAt = fromMillis(created)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return records, total, nil
}
