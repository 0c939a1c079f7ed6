package floor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floorstate/internal/common/logger"
	"floorstate/internal/domain"
	floorcore "floorstate/internal/floor"
	"floorstate/internal/gateway"
)

// stubGateway serves the handler tests; only fetches and status
// writes are exercised, the push stream is never started.
type stubGateway struct {
	orders   []domain.Order
	requests []domain.ServiceRequest
	writeErr map[string]error
}

func (s *stubGateway) FetchOrders(ctx context.Context, since time.Time) ([]domain.Order, error) {
	return s.orders, nil
}

func (s *stubGateway) FetchOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	return []domain.OrderItem{{ItemName: "manti", Quantity: 2, UnitPrice: 6, TotalPrice: 12}}, nil
}

func (s *stubGateway) FetchServiceRequests(ctx context.Context, status domain.RequestStatus, since time.Time) ([]domain.ServiceRequest, error) {
	return s.requests, nil
}

func (s *stubGateway) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	if err := s.writeErr[orderID]; err != nil {
		return err
	}
	for i := range s.orders {
		if s.orders[i].ID == orderID {
			s.orders[i].Status = status
			return nil
		}
	}
	return gateway.ErrNotFound
}

func (s *stubGateway) UpdateServiceRequestStatus(ctx context.Context, requestID string, status domain.RequestStatus) error {
	return nil
}

func (s *stubGateway) Subscribe(ctx context.Context, onEvent func(domain.ChangeEvent)) (gateway.Subscription, error) {
	return noopSubscription{}, nil
}

type noopSubscription struct{}

func (noopSubscription) Cancel() error { return nil }

func newTestAPI(t *testing.T, gw *stubGateway) *api {
	t.Helper()
	lg := logger.New("test")
	hub := NewHub(lg)
	notifier := floorcore.NewNotifier(&floorcore.MemoryPrefsStore{}, hub.BroadcastAlert, lg)
	session := floorcore.NewDisplaySession(floorcore.SessionConfig{Label: "waiter"}, gw, notifier, nil, lg)
	require.NoError(t, session.Orders.Refresh(context.Background()))
	require.NoError(t, session.Requests.Refresh(context.Background()))
	controller := floorcore.NewController(gw, session.Orders, session.Requests, lg)
	return &api{session: session, controller: controller, hub: hub, lg: lg}
}

func doRequest(t *testing.T, a *api, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	a.routes().ServeHTTP(rec, req)
	return rec
}

func tableOrder(id, table string, status domain.OrderStatus) domain.Order {
	return domain.Order{ID: id, TableNumber: &table, Status: status, Total: 10, CreatedAt: time.Now()}
}

func TestGetFloor(t *testing.T) {
	gw := &stubGateway{orders: []domain.Order{
		tableOrder("o1", "2", domain.StatusNew),
		tableOrder("o2", "10", domain.StatusReady),
	}}
	rec := doRequest(t, newTestAPI(t, gw), http.MethodGet, "/floor", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Tables []domain.LiveTable `json:"tables"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Tables, 2)
	assert.Equal(t, "2", body.Tables[0].TableNumber)
	assert.Equal(t, "10", body.Tables[1].TableNumber)
}

func TestMarkServedEndpoint(t *testing.T) {
	gw := &stubGateway{orders: []domain.Order{tableOrder("o1", "2", domain.StatusReady)}}
	a := newTestAPI(t, gw)

	rec := doRequest(t, a, http.MethodPost, "/orders/o1/served", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// once the store reflects "served" the endpoint rejects a repeat
	require.NoError(t, a.session.Orders.Refresh(context.Background()))
	rec = doRequest(t, a, http.MethodPost, "/orders/o1/served", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMarkServedUnknownOrderEndpoint(t *testing.T) {
	rec := doRequest(t, newTestAPI(t, &stubGateway{}), http.MethodPost, "/orders/ghost/served", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCloseTableEndpointPartialFailure(t *testing.T) {
	gw := &stubGateway{
		orders: []domain.Order{
			tableOrder("o1", "5", domain.StatusNew),
			tableOrder("o2", "5", domain.StatusReady),
		},
		writeErr: map[string]error{"o2": assert.AnError},
	}
	rec := doRequest(t, newTestAPI(t, gw), http.MethodPost, "/tables/5/close", "")
	require.Equal(t, http.StatusMultiStatus, rec.Code)

	var report floorcore.CloseReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, []string{"o1"}, report.ClosedOrders)
	assert.Equal(t, []string{"o2"}, report.FailedOrders)
}

func TestNotificationsToggleEndpoint(t *testing.T) {
	a := newTestAPI(t, &stubGateway{})

	rec := doRequest(t, a, http.MethodPost, "/notifications", `{"enabled": false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, a, http.MethodGet, "/notifications", "")
	var body struct {
		Enabled bool `json:"enabled"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Enabled)
}

func TestGetOrderItemsEndpoint(t *testing.T) {
	gw := &stubGateway{orders: []domain.Order{tableOrder("o1", "2", domain.StatusNew)}}
	rec := doRequest(t, newTestAPI(t, gw), http.MethodGet, "/floor/orders/o1/items", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []domain.OrderItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "manti", body.Items[0].ItemName)
}
