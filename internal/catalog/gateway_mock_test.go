package catalog

import (
	"context"
	"sync"

	"github.com/erazemk/achados/internal/gateway"
	"github.com/erazemk/achados/internal/model"
	"github.com/erazemk/achados/internal/realtime"
)

var _ Gateway = &gatewayMock{}

type gatewayMock struct {
	FetchItemsFunc        func(ctx context.Context, f gateway.Filters) ([]model.Item, error)
	SubscribeNewItemsFunc func(campus string, onInsert func(model.Item)) (*realtime.Subscription, error)
	UnsubscribeFunc       func(sub *realtime.Subscription) error

	calls struct {
		FetchItems []struct {
			F gateway.Filters
		}
		SubscribeNewItems []struct {
			Campus string
		}
		Unsubscribe []struct {
			Sub *realtime.Subscription
		}
	}
	lockFetchItems        sync.RWMutex
	lockSubscribeNewItems sync.RWMutex
	lockUnsubscribe       sync.RWMutex
}

func (mock *gatewayMock) FetchItems(ctx context.Context, f gateway.Filters) ([]model.Item, error) {
	if mock.FetchItemsFunc == nil {
		panic("gatewayMock.FetchItemsFunc: method is nil but Gateway.FetchItems was just called")
	}
	mock.lockFetchItems.Lock()
	mock.calls.FetchItems = append(mock.calls.FetchItems, struct{ F gateway.Filters }{F: f})
	mock.lockFetchItems.Unlock()
	return mock.FetchItemsFunc(ctx, f)
}

func (mock *gatewayMock) FetchItemsCalls() []struct{ F gateway.Filters } {
	mock.lockFetchItems.RLock()
	defer mock.lockFetchItems.RUnlock()
	return mock.calls.FetchItems
}

func (mock *gatewayMock) SubscribeNewItems(campus string, onInsert func(model.Item)) (*realtime.Subscription, error) {
	if mock.SubscribeNewItemsFunc == nil {
		panic("gatewayMock.SubscribeNewItemsFunc: method is nil but Gateway.SubscribeNewItems was just called")
	}
	mock.lockSubscribeNewItems.Lock()
	mock.calls.SubscribeNewItems = append(mock.calls.SubscribeNewItems, struct{ Campus string }{Campus: campus})
	mock.lockSubscribeNewItems.Unlock()
	return mock.SubscribeNewItemsFunc(campus, onInsert)
}

func (mock *gatewayMock) SubscribeNewItemsCalls() []struct{ Campus string } {
	mock.lockSubscribeNewItems.RLock()
	defer mock.lockSubscribeNewItems.RUnlock()
	return mock.calls.SubscribeNewItems
}

func (mock *gatewayMock) Unsubscribe(sub *realtime.Subscription) error {
	if mock.UnsubscribeFunc == nil {
		panic("gatewayMock.UnsubscribeFunc: method is nil but Gateway.Unsubscribe was just called")
	}
	mock.lockUnsubscribe.Lock()
	mock.calls.Unsubscribe = append(mock.calls.Unsubscribe, struct{ Sub *realtime.Subscription }{Sub: sub})
	mock.lockUnsubscribe.Unlock()
	return mock.UnsubscribeFunc(sub)
}

func (mock *gatewayMock) UnsubscribeCalls() []struct{ Sub *realtime.Subscription } {
	mock.lockUnsubscribe.RLock()
	defer mock.lockUnsubscribe.RUnlock()
	return mock.calls.Unsubscribe
}
