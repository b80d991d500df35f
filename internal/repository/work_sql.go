package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"socialcredit-api/internal/model"
)

const workColumns = `id, kind, message_id, name, description, reward, author_id, created_at`

func scanWorkItem(row rowScanner) (*model.WorkItem, error) {
	var item model.WorkItem
	var kind string
	var created int64
	if err := row.Scan(&item.ID, &kind, &item.MessageID, &item.Name, &item.Description,
		&item.Reward, &item.AuthorID, &created); err != nil {
		return nil, err
	}
	item.Kind = model.WorkKind(kind)
	item.CreatedAt = fromMillis(created)
	return &item, nil
}

// CreateWorkItem inserts a new task or job keyed by its message.
func (s *SQLStore) CreateWorkItem(ctx context.Context, item model.WorkItem) (*model.WorkItem, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM work_items WHERE kind = ? AND message_id = ?`),
			string(item.Kind), item.MessageID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check work item: %w", err)
		}
		if exists > 0 {
			return model.ErrDuplicateItem
		}

		item.ID, err = s.insertID(ctx, tx, `
			INSERT INTO work_items (kind, message_id, name, description, reward, author_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			string(item.Kind), item.MessageID, item.Name, item.Description, item.Reward, item.AuthorID, toMillis(item.CreatedAt))
		if err != nil {
			if isUniqueViolation(err) {
				return model.ErrDuplicateItem
			}
			return fmt.Errorf("failed to create work item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	item.CreatedAt = fromMillis(toMillis(item.CreatedAt))
	item.Claims = map[int64]time.Time{}
	return &item, nil
}

// GetWorkItemByMessage loads an item and its claim set.
func (s *SQLStore) GetWorkItemByMessage(ctx context.Context, kind model.WorkKind, messageID int64) (*model.WorkItem, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+workColumns+` FROM work_items WHERE kind = ? AND message_id = ?`),
		string(kind), messageID)
	return s.loadWorkItem(ctx, row)
}

// GetWorkItemByName loads the first item created with name. Names are not
// unique; later duplicates are shadowed.
func (s *SQLStore) GetWorkItemByName(ctx context.Context, kind model.WorkKind, name string) (*model.WorkItem, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+workColumns+` FROM work_items WHERE kind = ? AND name = ? ORDER BY id ASC LIMIT 1`),
		string(kind), name)
	return s.loadWorkItem(ctx, row)
}

func (s *SQLStore) loadWorkItem(ctx context.Context, row *sql.Row) (*model.WorkItem, error) {
	item, err := scanWorkItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get work item: %w", err)
	}

	claims, err := s.ListClaims(ctx, item.Kind, item.MessageID)
	if err != nil {
		return nil, err
	}
	item.Claims = make(map[int64]time.Time, len(claims))
	for _, c := range claims {
		item.Claims[c.ClaimantID] = c.ClaimedAt
	}
	return item, nil
}

// AddClaim inserts claimantID into the item's claim set.
func (s *SQLStore) AddClaim(ctx context.Context, kind model.WorkKind, messageID, claimantID int64, at time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var items, claims int
		err := tx.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM work_items WHERE kind = ? AND message_id = ?`),
			string(kind), messageID).Scan(&items)
		if err != nil {
			return fmt.Errorf("failed to check work item: %w", err)
		}
		if items == 0 {
			return model.ErrNotFound
		}

		err = tx.QueryRowContext(ctx, s.q(`
			SELECT COUNT(*) FROM work_claims WHERE kind = ? AND message_id = ? AND claimant_id = ?`),
			string(kind), messageID, claimantID).Scan(&claims)
		if err != nil {
			return fmt.Errorf("failed to check claim: %w", err)
		}
		if claims > 0 {
			return model.ErrAlreadyClaimed
		}

		_, err = tx.ExecContext(ctx, s.q(`
			INSERT INTO work_claims (kind, message_id, claimant_id, claimed_at)
			VALUES (?, ?, ?, ?)`), string(kind), messageID, claimantID, toMillis(at))
		if err != nil {
			if isUniqueViolation(err) {
				return model.ErrAlreadyClaimed
			}
			return fmt.Errorf("failed to add claim: %w", err)
		}
		return nil
	})
}

// ListClaims returns every claim of an item in claim order.
func (s *SQLStore) ListClaims(ctx context.Context, kind model.WorkKind, messageID int64) ([]model.Claim, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT claimant_id, claimed_at, paid_at FROM work_claims
		WHERE kind = ? AND message_id = ?
		ORDER BY claimed_at ASC, claimant_id ASC`), string(kind), messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	claims := []model.Claim{}
	for rows.Next() {
		c := model.Claim{Kind: kind, MessageID: messageID}
		var claimed int64
		var paid sql.NullInt64
		if err := rows.Scan(&c.ClaimantID, &claimed, &paid); err != nil {
			return nil, err
		}
		c.ClaimedAt = fromMillis(claimed)
		if paid.Valid {
			t := fromMillis(paid.Int64)
			c.PaidAt = &t
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}
