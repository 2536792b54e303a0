package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/ailogo/internal/apperror"
	"github.com/sakif/ailogo/internal/model"
	"github.com/sakif/ailogo/internal/repository"
)

var _ repository.LogoRepository = (*DB)(nil)

const logoColumns = `id, user_id, user_email, description, model, size, quality, style,
	img_path, img_url, status, creator_nickname, creator_avatar_url,
	created_at, started_at, version`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanLogo(s rowScanner, l *model.Logo) error {
	return s.Scan(
		&l.ID, &l.UserID, &l.UserEmail, &l.Description, &l.Model, &l.Size,
		&l.Quality, &l.Style, &l.ImagePath, &l.ImageURL, &l.Status,
		&l.CreatorNickname, &l.CreatorAvatarURL,
		&l.CreatedAt, &l.StartedAt, &l.Version,
	)
}

// CreateLogo inserts logo with version 1. The caller assigns the ID, paths
// and timestamps.
func (db *DB) CreateLogo(ctx context.Context, logo *model.Logo) error {
	logo.Version = 1

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO logos (`+logoColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		logo.ID, logo.UserID, logo.UserEmail, logo.Description, logo.Model,
		logo.Size, logo.Quality, logo.Style, logo.ImagePath, logo.ImageURL,
		string(logo.Status), logo.CreatorNickname, logo.CreatorAvatarURL,
		logo.CreatedAt.UTC(), logo.StartedAt.UTC(), logo.Version,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating logo: %w", err)
	}
	return nil
}

// GetLogo looks the record up by owner and id together, so another user's
// logo is indistinguishable from a missing one.
func (db *DB) GetLogo(ctx context.Context, userID, logoID string) (*model.Logo, error) {
	var l model.Logo

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+logoColumns+` FROM logos WHERE user_id = ? AND id = ?`,
		userID, logoID,
	)
	if err := scanLogo(row, &l); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("logo", logoID)
		}
		return nil, fmt.Errorf("sqlite: getting logo %s: %w", logoID, err)
	}
	return &l, nil
}

func (db *DB) ListUserLogos(ctx context.Context, userID string) ([]model.Logo, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+logoColumns+` FROM logos
		 WHERE user_id = ?
		 ORDER BY created_at DESC, rowid DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing logos: %w", err)
	}
	defer rows.Close()

	logos := make([]model.Logo, 0)
	for rows.Next() {
		var l model.Logo
		if err := scanLogo(rows, &l); err != nil {
			return nil, fmt.Errorf("sqlite: scanning logo row: %w", err)
		}
		logos = append(logos, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating logos: %w", err)
	}
	return logos, nil
}

// UpdateLogoStatus is a compare-and-swap on the version column. Only the
// lifecycle fields are written; the request parameters never change after
// creation.
func (db *DB) UpdateLogoStatus(ctx context.Context, logo *model.Logo) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE logos
		 SET status = ?, img_url = ?, started_at = ?, version = version + 1
		 WHERE user_id = ? AND id = ? AND version = ?`,
		string(logo.Status),
		logo.ImageURL,
		logo.StartedAt.UTC(),
		logo.UserID,
		logo.ID,
		logo.Version,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating logo %s: %w", logo.ID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		// Distinguish a lost race from a missing row.
		if _, err := db.GetLogo(ctx, logo.UserID, logo.ID); err != nil {
			return err
		}
		return apperror.Conflict("logo", logo.ID)
	}

	logo.Version++
	return nil
}

func (db *DB) CountUserLogos(ctx context.Context, userID string, status model.LogoStatus) (int, error) {
	query := `SELECT COUNT(*) FROM logos WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}

	var n int
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting logos for %s: %w", userID, err)
	}
	return n, nil
}
