package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/achados/internal/db"
	"github.com/erazemk/achados/internal/model"
)

func TestPhotosOrderedByPosition(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateItem(ctx, database, "p", newItem("Celular", "Gama", "eletronicos", model.ItemTypeFound), ItemIndex{}, time.Now())
	AddPhoto(ctx, database, "p", "http://x/2.jpg", 2)
	AddPhoto(ctx, database, "p", "http://x/0.jpg", 0)

	photos, err := ListPhotos(ctx, database, "p")
	if err != nil {
		t.Fatalf("ListPhotos: %v", err)
	}
	if len(photos) != 2 || photos[0].Position != 0 || photos[1].Position != 2 {
		t.Fatalf("expected photos ordered by position, got %+v", photos)
	}

	item, _ := GetItem(ctx, database, "p")
	if p := item.PrimaryPhoto(); p == nil || p.URL != "http://x/0.jpg" {
		t.Errorf("expected primary photo 0.jpg, got %+v", p)
	}

	DeletePhotosByURL(ctx, database, "http://x/0.jpg")
	photos, _ = ListPhotos(ctx, database, "p")
	if len(photos) != 1 {
		t.Errorf("expected 1 photo after unlink, got %d", len(photos))
	}
}

func TestAddPhotoUnknownItem(t *testing.T) {
	database := db.NewTestDB(t)

	if err := AddPhoto(context.Background(), database, "ghost", "http://x/a.jpg", 0); err == nil {
		t.Error("expected foreign key violation for unknown item")
	}
}

func TestObjects(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if err := PutObject(ctx, database, "items-photos/a.jpg", []byte("one"), "image/jpeg"); err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	PutObject(ctx, database, "items-photos/a.jpg", []byte("two"), "image/jpeg")

	data, mime, err := GetObject(ctx, database, "items-photos/a.jpg")
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	if string(data) != "two" || mime != "image/jpeg" {
		t.Errorf("expected replaced object, got %q %q", data, mime)
	}

	deleted, err := DeleteObject(ctx, database, "items-photos/a.jpg")
	if err != nil || !deleted {
		t.Fatalf("DeleteObject: %v %v", deleted, err)
	}
	data, _, _ = GetObject(ctx, database, "items-photos/a.jpg")
	if data != nil {
		t.Error("expected nil data after delete")
	}
}
