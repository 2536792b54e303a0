package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/ailogo/internal/apperror"
	"github.com/sakif/ailogo/internal/model"
	"github.com/sakif/ailogo/internal/repository"
)

var _ repository.PublicLogoRepository = (*DB)(nil)

const publicLogoColumns = `id, user_id, user_email, description, model, size, quality, style,
	img_path, img_url, status, creator_nickname, creator_avatar_url,
	created_at, published_at`

// InsertPublicLogo stores a snapshot. Publishing twice replaces the older
// snapshot.
func (db *DB) InsertPublicLogo(ctx context.Context, p *model.PublicLogo) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO public_logos (`+publicLogoColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.UserEmail, p.Description, p.Model, p.Size,
		p.Quality, p.Style, p.ImagePath, p.ImageURL, string(p.Status),
		p.CreatorNickname, p.CreatorAvatarURL,
		p.CreatedAt.UTC(), p.PublishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: publishing logo %s: %w", p.ID, err)
	}
	return nil
}

func (db *DB) DeletePublicLogo(ctx context.Context, logoID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM public_logos WHERE id = ?`, logoID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: unpublishing logo %s: %w", logoID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("public logo", logoID)
	}
	return nil
}

func (db *DB) PublicLogoExists(ctx context.Context, logoID string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM public_logos WHERE id = ?`, logoID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking public logo %s: %w", logoID, err)
	}
	return n > 0, nil
}

func (db *DB) ListPublicLogos(ctx context.Context) ([]model.PublicLogo, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+publicLogoColumns+` FROM public_logos
		 ORDER BY created_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing public logos: %w", err)
	}
	defer rows.Close()

	logos := make([]model.PublicLogo, 0)
	for rows.Next() {
		var p model.PublicLogo
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.UserEmail, &p.Description, &p.Model, &p.Size,
			&p.Quality, &p.Style, &p.ImagePath, &p.ImageURL, &p.Status,
			&p.CreatorNickname, &p.CreatorAvatarURL,
			&p.CreatedAt, &p.PublishedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning public logo row: %w", err)
		}
		logos = append(logos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating public logos: %w", err)
	}
	return logos, nil
}
