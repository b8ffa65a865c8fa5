package gateway

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/erazemk/achados/internal/imaging"
	"github.com/erazemk/achados/internal/model"
	"github.com/erazemk/achados/internal/store"
)

// PhotoPrefix is the object-key prefix of item photos.
const PhotoPrefix = "items-photos/"

// UploadPhoto processes the photo in r and stores it under
// items-photos/<keyHint>. It returns the public URL.
func (l *Local) UploadPhoto(ctx context.Context, r io.Reader, keyHint string) (string, error) {
	name := path.Base(strings.ReplaceAll(keyHint, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		name = l.newID() + ".jpg"
	}
	if err := imaging.CheckFilename(name); err != nil {
		return "", model.NewValidationError("photo", err.Error())
	}

	res, err := imaging.Process(r)
	if err != nil {
		return "", model.NewValidationError("photo", err.Error())
	}

	key := PhotoPrefix + name
	if err := store.PutObject(ctx, l.db, key, res.Data, res.MIME); err != nil {
		return "", fmt.Errorf("uploading photo: %w", err)
	}
	l.log.Info("photo stored", "key", key, "bytes", len(res.Data), "width", res.Width, "height", res.Height)
	return l.PhotoURL(key), nil
}

// PhotoURL returns the public URL of an object key.
func (l *Local) PhotoURL(key string) string {
	return l.publicURL + "/media/" + key
}

// PhotoKey extracts the object key from a public photo URL.
func PhotoKey(url string) (string, bool) {
	marker := "/" + PhotoPrefix
	i := strings.LastIndex(url, marker)
	if i < 0 || i+len(marker) == len(url) {
		return "", false
	}
	return PhotoPrefix + url[i+len(marker):], true
}

// DeletePhoto removes the stored object behind url and unlinks it from any
// item.
func (l *Local) DeletePhoto(ctx context.Context, url string) error {
	key, ok := PhotoKey(url)
	if !ok {
		return model.NewValidationError("url", "not a photo URL")
	}

	deleted, err := store.DeleteObject(ctx, l.db, key)
	if err != nil {
		return err
	}
	if err := store.DeletePhotosByURL(ctx, l.db, url); err != nil {
		return err
	}
	l.invalidate(ctx)
	if !deleted {
		return fmt.Errorf("photo %s: %w", key, model.ErrNotFound)
	}
	return nil
}

// LinkPhoto attaches a stored photo URL to an item at position.
func (l *Local) LinkPhoto(ctx context.Context, itemID, url string, position int) error {
	if position < 0 {
		return model.NewValidationError("position", "must not be negative")
	}
	if _, err := l.GetItem(ctx, itemID); err != nil {
		return err
	}
	if err := store.AddPhoto(ctx, l.db, itemID, url, position); err != nil {
		return fmt.Errorf("linking photo: %w", err)
	}
	l.invalidate(ctx)
	return nil
}

// Photo returns a stored object's bytes and MIME type.
func (l *Local) Photo(ctx context.Context, key string) ([]byte, string, error) {
	data, mime, err := store.GetObject(ctx, l.db, key)
	if err != nil {
		return nil, "", err
	}
	if data == nil {
		return nil, "", fmt.Errorf("photo %s: %w", key, model.ErrNotFound)
	}
	return data, mime, nil
}
