package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/erazemk/achados/internal/model"
)

// AddPhoto links a stored photo URL to an item.
func AddPhoto(ctx context.Context, db *sql.DB, itemID, url string, position int) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO item_photos (item_id, url, position) VALUES (?, ?, ?)`,
		itemID, url, position,
	)
	if err != nil {
		return fmt.Errorf("adding photo: %w", err)
	}
	return nil
}

// ListPhotos returns an item's photos ordered by position.
func ListPhotos(ctx context.Context, db *sql.DB, itemID string) ([]model.Photo, error) {
	item := &model.Item{ID: itemID}
	if err := attachPhotos(ctx, db, []*model.Item{item}); err != nil {
		return nil, err
	}
	return item.Photos, nil
}

// DeletePhotosByURL unlinks every photo record pointing at url.
func DeletePhotosByURL(ctx context.Context, db *sql.DB, url string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM item_photos WHERE url = ?`, url)
	if err != nil {
		return fmt.Errorf("deleting photo links: %w", err)
	}
	return nil
}

// attachPhotos loads the photos of all given items with a single query.
func attachPhotos(ctx context.Context, db *sql.DB, items []*model.Item) error {
	if len(items) == 0 {
		return nil
	}

	byID := make(map[string]*model.Item, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		it.Photos = []model.Photo{}
		byID[it.ID] = it
		ids = append(ids, it.ID)
	}

	rows, err := sq.Select("item_id", "url", "position").
		From("item_photos").
		Where(sq.Eq{"item_id": ids}).
		OrderBy("item_id", "position", "id").
		RunWith(db).
		QueryContext(ctx)
	if err != nil {
		return fmt.Errorf("listing photos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			itemID string
			p      model.Photo
		)
		if err := rows.Scan(&itemID, &p.URL, &p.Position); err != nil {
			return fmt.Errorf("scanning photo: %w", err)
		}
		if it, ok := byID[itemID]; ok {
			it.Photos = append(it.Photos, p)
		}
	}
	return rows.Err()
}

// PutObject stores a binary object under key, replacing any previous one.
func PutObject(ctx context.Context, db *sql.DB, key string, data []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO photo_objects (key, data, mime) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, mime = excluded.mime`,
		key, data, mime,
	)
	if err != nil {
		return fmt.Errorf("storing object: %w", err)
	}
	return nil
}

// GetObject returns an object's data and MIME type. A missing key returns
// nil data and no error.
func GetObject(ctx context.Context, db *sql.DB, key string) ([]byte, string, error) {
	var (
		data []byte
		mime string
	)
	err := db.QueryRowContext(ctx,
		`SELECT data, mime FROM photo_objects WHERE key = ?`, key,
	).Scan(&data, &mime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting object: %w", err)
	}
	return data, mime, nil
}

// DeleteObject removes an object. It reports whether anything was deleted.
func DeleteObject(ctx context.Context, db *sql.DB, key string) (bool, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM photo_objects WHERE key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("deleting object: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting object: %w", err)
	}
	return n > 0, nil
}
