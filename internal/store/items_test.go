package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erazemk/achados/internal/db"
	"github.com/erazemk/achados/internal/model"
)

func newItem(title, campus, category string, typ model.ItemType) model.NewItem {
	return model.NewItem{
		Type:     typ,
		Title:    title,
		Category: category,
		Campus:   campus,
		Building: "Biblioteca",
		Tags:     []string{"teste"},
	}
}

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	n := newItem("Mochila Preta", "Asa Norte", "acessorios", model.ItemTypeFound)
	n.Geo = &model.Geo{Lat: -15.76, Lng: -47.87}
	idx := ItemIndex{TitleN: "mochila preta", NGrams: []string{"moc", "och"}, Geohash: "6vjyngd"}

	item, err := CreateItem(ctx, database, "item-1", n, idx, now)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.Status != model.ItemStatusOpen {
		t.Errorf("expected status OPEN, got %q", item.Status)
	}
	if !item.CreatedAt.Equal(now) {
		t.Errorf("expected created_at %v, got %v", now, item.CreatedAt)
	}
	if item.Geo == nil || item.Geo.Geohash != "6vjyngd" {
		t.Errorf("expected geo with geohash, got %+v", item.Geo)
	}
	if len(item.Tags) != 1 || item.Tags[0] != "teste" {
		t.Errorf("expected tags [teste], got %v", item.Tags)
	}
	if item.Photos == nil {
		t.Error("expected empty, non-nil photos")
	}

	missing, err := GetItem(ctx, database, "nope")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing item")
	}
}

func TestCreateItemIdempotent(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	n := newItem("Carteira", "Gama", "documentos", model.ItemTypeLost)
	n.IdempotencyKey = "key-1"

	first, err := CreateItem(ctx, database, "a", n, ItemIndex{}, time.Now())
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	second, err := CreateItem(ctx, database, "b", n, ItemIndex{}, time.Now())
	if err != nil {
		t.Fatalf("second CreateItem: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected the same item for a reused key, got %q and %q", first.ID, second.ID)
	}

	items, _ := ListItems(ctx, database, ItemFilter{})
	if len(items) != 1 {
		t.Errorf("expected 1 item, got %d", len(items))
	}
}

func TestCreateItemIdempotencyKeyIsPerOwner(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	alice, err := CreateUser(ctx, database, "alice", "hash", "user")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	bob, err := CreateUser(ctx, database, "bob", "hash", "user")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	wallet := newItem("Carteira", "Gama", "documentos", model.ItemTypeLost)
	wallet.OwnerID = alice.ID
	wallet.ContactEmail = "alice@example.org"
	wallet.IdempotencyKey = "retry-1"
	keys := newItem("Chaves", "Gama", "chaves", model.ItemTypeFound)
	keys.OwnerID = bob.ID
	keys.IdempotencyKey = "retry-1"
	anon := newItem("Guarda-chuva", "Gama", "outros", model.ItemTypeFound)
	anon.IdempotencyKey = "retry-1"

	first, err := CreateItem(ctx, database, "a", wallet, ItemIndex{}, time.Now())
	if err != nil {
		t.Fatalf("CreateItem alice: %v", err)
	}
	second, err := CreateItem(ctx, database, "b", keys, ItemIndex{}, time.Now())
	if err != nil {
		t.Fatalf("CreateItem bob: %v", err)
	}
	third, err := CreateItem(ctx, database, "c", anon, ItemIndex{}, time.Now())
	if err != nil {
		t.Fatalf("CreateItem anonymous: %v", err)
	}

	if second.ID != "b" || second.OwnerID != bob.ID || second.ContactEmail != "" {
		t.Errorf("bob got someone else's item: %+v", second)
	}
	if third.ID != "c" {
		t.Errorf("anonymous reporter got item %q", third.ID)
	}

	again, err := CreateItem(ctx, database, "d", anon, ItemIndex{}, time.Now())
	if err != nil {
		t.Fatalf("repeated anonymous CreateItem: %v", err)
	}
	if again.ID != "c" {
		t.Errorf("expected anonymous replay to return c, got %q", again.ID)
	}

	items, _ := ListItems(ctx, database, ItemFilter{})
	if len(items) != 3 {
		t.Errorf("expected 3 items, got %d", len(items))
	}
	if first.ID != "a" {
		t.Errorf("expected a, got %q", first.ID)
	}
}

func TestReceiveItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	staff, err := CreateUser(ctx, database, "balcao", "hash", "staff")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := CreateItem(ctx, database, "a", newItem("Carteira", "Gama", "documentos", model.ItemTypeFound), ItemIndex{}, now); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	if err := ReceiveItem(ctx, database, "a", staff.ID, "gaveta 3", now.Add(time.Hour)); err != nil {
		t.Fatalf("ReceiveItem: %v", err)
	}

	item, err := GetItem(ctx, database, "a")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if item.Status != model.ItemStatusOpen {
		t.Errorf("expected item to stay OPEN, got %s", item.Status)
	}
	if item.Receipt == nil {
		t.Fatal("expected a receipt")
	}
	if !item.Receipt.ReceivedAt.Equal(now.Add(time.Hour)) || item.Receipt.ReceivedBy != staff.ID || item.Receipt.Notes != "gaveta 3" {
		t.Errorf("unexpected receipt %+v", item.Receipt)
	}

	err = ReceiveItem(ctx, database, "missing", staff.ID, "", now)
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListItemsFiltersAndOrder(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	CreateItem(ctx, database, "1", newItem("Oldest", "Gama", "chaves", model.ItemTypeLost), ItemIndex{}, base.Add(-2*time.Hour))
	CreateItem(ctx, database, "2", newItem("Newest", "Gama", "Chaves", model.ItemTypeFound), ItemIndex{}, base)
	CreateItem(ctx, database, "3", newItem("Middle", "Asa Sul", "chaves", model.ItemTypeFound), ItemIndex{}, base.Add(-time.Hour))

	all, err := ListItems(ctx, database, ItemFilter{Status: model.ItemStatusOpen})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(all) != 3 || all[0].ID != "2" || all[1].ID != "3" || all[2].ID != "1" {
		t.Fatalf("expected newest first [2 3 1], got %v", ids(all))
	}

	gama, _ := ListItems(ctx, database, ItemFilter{Campus: "Gama", Category: "chaves"})
	if len(gama) != 2 {
		t.Errorf("expected 2 items on Gama (category case-insensitive), got %d", len(gama))
	}

	found, _ := ListItems(ctx, database, ItemFilter{Type: model.ItemTypeFound, Limit: 1, Offset: 1})
	if len(found) != 1 || found[0].ID != "3" {
		t.Errorf("expected page [3], got %v", ids(found))
	}
}

func TestUpdateItemResolution(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	CreateItem(ctx, database, "x", newItem("Guarda-chuva", "Gama", "outros", model.ItemTypeFound), ItemIndex{}, now)

	resolved := model.ItemStatusResolved
	reason := "devolvido"
	if err := UpdateItem(ctx, database, "x", model.ItemPatch{Status: &resolved, ResolvedReason: &reason}, nil, now.Add(time.Hour)); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	got, _ := GetItem(ctx, database, "x")
	if got.Status != model.ItemStatusResolved || got.ResolvedAt == nil || got.ResolvedReason != "devolvido" {
		t.Fatalf("expected resolved item, got %+v", got)
	}
	if !got.ResolvedAt.Equal(now.Add(time.Hour)) {
		t.Errorf("expected resolved_at %v, got %v", now.Add(time.Hour), got.ResolvedAt)
	}

	open := model.ItemStatusOpen
	UpdateItem(ctx, database, "x", model.ItemPatch{Status: &open}, nil, now.Add(2*time.Hour))
	got, _ = GetItem(ctx, database, "x")
	if got.ResolvedAt != nil || got.ResolvedReason != "" {
		t.Errorf("expected resolution cleared on reopen, got %+v", got)
	}

	err := UpdateItem(ctx, database, "missing", model.ItemPatch{Status: &open}, nil, now)
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListIndexedItems(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	idx := ItemIndex{TitleN: "chave", TagsN: []string{"chave", "carro"}, NGrams: []string{"cha", "hav", "ave"}}
	CreateItem(ctx, database, "k", newItem("Chave", "Gama", "chaves", model.ItemTypeFound), idx, time.Now())

	got, err := ListIndexedItems(ctx, database, ItemFilter{Status: model.ItemStatusOpen}, 10)
	if err != nil {
		t.Fatalf("ListIndexedItems: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	if len(got[0].Index.NGrams) != 3 || len(got[0].Index.TagsN) != 2 || got[0].Index.TitleN != "chave" {
		t.Errorf("unexpected index %+v", got[0].Index)
	}
}

func ids(items []model.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
