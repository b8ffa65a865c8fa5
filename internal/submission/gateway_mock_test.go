package submission

import (
	"context"
	"io"
	"sync"

	"github.com/erazemk/achados/internal/model"
)

var _ Gateway = &gatewayMock{}

type gatewayMock struct {
	UploadPhotoFunc func(ctx context.Context, r io.Reader, keyHint string) (string, error)
	CreateItemFunc  func(ctx context.Context, n model.NewItem) (*model.Item, error)
	LinkPhotoFunc   func(ctx context.Context, itemID, url string, position int) error

	calls struct {
		UploadPhoto []struct {
			Data    []byte
			KeyHint string
		}
		CreateItem []struct {
			N model.NewItem
		}
		LinkPhoto []struct {
			ItemID   string
			URL      string
			Position int
		}
	}
	lockUploadPhoto sync.RWMutex
	lockCreateItem  sync.RWMutex
	lockLinkPhoto   sync.RWMutex
}

func (mock *gatewayMock) UploadPhoto(ctx context.Context, r io.Reader, keyHint string) (string, error) {
	if mock.UploadPhotoFunc == nil {
		panic("gatewayMock.UploadPhotoFunc: method is nil but Gateway.UploadPhoto was just called")
	}
	data, _ := io.ReadAll(r)
	mock.lockUploadPhoto.Lock()
	mock.calls.UploadPhoto = append(mock.calls.UploadPhoto, struct {
		Data    []byte
		KeyHint string
	}{Data: data, KeyHint: keyHint})
	mock.lockUploadPhoto.Unlock()
	return mock.UploadPhotoFunc(ctx, bytesReader(data), keyHint)
}

func (mock *gatewayMock) UploadPhotoCalls() []struct {
	Data    []byte
	KeyHint string
} {
	mock.lockUploadPhoto.RLock()
	defer mock.lockUploadPhoto.RUnlock()
	return mock.calls.UploadPhoto
}

func (mock *gatewayMock) CreateItem(ctx context.Context, n model.NewItem) (*model.Item, error) {
	if mock.CreateItemFunc == nil {
		panic("gatewayMock.CreateItemFunc: method is nil but Gateway.CreateItem was just called")
	}
	mock.lockCreateItem.Lock()
	mock.calls.CreateItem = append(mock.calls.CreateItem, struct{ N model.NewItem }{N: n})
	mock.lockCreateItem.Unlock()
	return mock.CreateItemFunc(ctx, n)
}

func (mock *gatewayMock) CreateItemCalls() []struct{ N model.NewItem } {
	mock.lockCreateItem.RLock()
	defer mock.lockCreateItem.RUnlock()
	return mock.calls.CreateItem
}

func (mock *gatewayMock) LinkPhoto(ctx context.Context, itemID, url string, position int) error {
	if mock.LinkPhotoFunc == nil {
		panic("gatewayMock.LinkPhotoFunc: method is nil but Gateway.LinkPhoto was just called")
	}
	mock.lockLinkPhoto.Lock()
	mock.calls.LinkPhoto = append(mock.calls.LinkPhoto, struct {
		ItemID   string
		URL      string
		Position int
	}{ItemID: itemID, URL: url, Position: position})
	mock.lockLinkPhoto.Unlock()
	return mock.LinkPhotoFunc(ctx, itemID, url, position)
}

func (mock *gatewayMock) LinkPhotoCalls() []struct {
	ItemID   string
	URL      string
	Position int
} {
	mock.lockLinkPhoto.RLock()
	defer mock.lockLinkPhoto.RUnlock()
	return mock.calls.LinkPhoto
}

type reloaderMock struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (m *reloaderMock) Reload(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.err
}

func (m *reloaderMock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
