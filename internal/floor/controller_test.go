package floor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floorstate/internal/common/logger"
	"floorstate/internal/domain"
)

func newTestController(gw *fakeGateway) (*Controller, *OrderStore, *RequestQueue) {
	orders := NewOrderStore(gw)
	orders.now = fixedClock(testNow)
	requests := NewRequestQueue(gw)
	requests.now = fixedClock(testNow)
	c := NewController(gw, orders, requests, logger.New("test"))
	return c, orders, requests
}

func TestMarkServedFromReady(t *testing.T) {
	gw := newFakeGateway()
	gw.orders = []domain.Order{todayOrder("o1", "1", domain.StatusReady)}
	c, orders, _ := newTestController(gw)
	require.NoError(t, orders.Refresh(context.Background()))

	require.NoError(t, c.MarkServed(context.Background(), "o1"))
	assert.Equal(t, []domain.OrderStatus{domain.StatusServed}, gw.orderWrites["o1"])

	// no optimistic local mutation; the store catches up from the
	// echoed push event
	got, _ := orders.Get("o1")
	assert.Equal(t, domain.StatusReady, got.Status)
}

func TestMarkServedRejectsNonReady(t *testing.T) {
	gw := newFakeGateway()
	gw.orders = []domain.Order{todayOrder("o1", "1", domain.StatusNew)}
	c, orders, _ := newTestController(gw)
	require.NoError(t, orders.Refresh(context.Background()))

	err := c.MarkServed(context.Background(), "o1")
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, gw.orderWrites["o1"], "rejected transition must not reach the gateway")
}

func TestMarkServedUnknownOrder(t *testing.T) {
	c, _, _ := newTestController(newFakeGateway())
	err := c.MarkServed(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUnknownOrder)
}

func TestMarkServedSurfacesGatewayFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.orders = []domain.Order{todayOrder("o1", "1", domain.StatusReady)}
	gw.orderWriteErr["o1"] = errors.New("write rejected")
	c, orders, _ := newTestController(gw)
	require.NoError(t, orders.Refresh(context.Background()))

	err := c.MarkServed(context.Background(), "o1")
	require.Error(t, err)
	got, _ := orders.Get("o1")
	assert.Equal(t, domain.StatusReady, got.Status, "local state unchanged on gateway failure")
}

func TestAcknowledgeRequestIdempotent(t *testing.T) {
	gw := newFakeGateway()
	gw.requests = []domain.ServiceRequest{todayRequest("r1", "1", domain.RequestPending)}
	c, _, requests := newTestController(gw)
	require.NoError(t, requests.Refresh(context.Background()))

	require.NoError(t, c.AcknowledgeRequest(context.Background(), "r1"))
	require.Len(t, gw.requestWrites["r1"], 1)

	// simulate the echoed completion event landing
	_, _, err := requests.ApplyEvent(mustRequestEvent(t, domain.OpUpdate, todayRequest("r1", "1", domain.RequestCompleted)))
	require.NoError(t, err)

	// second acknowledge: no error, no second write
	require.NoError(t, c.AcknowledgeRequest(context.Background(), "r1"))
	assert.Len(t, gw.requestWrites["r1"], 1)
}

func TestCloseTablePartialFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.orders = []domain.Order{
		todayOrder("o1", "5", domain.StatusReady),
		todayOrder("o2", "5", domain.StatusNew),
		todayOrder("o3", "6", domain.StatusNew), // different table, untouched
	}
	gw.requests = []domain.ServiceRequest{todayRequest("r1", "5", domain.RequestPending)}
	gw.orderWriteErr["o2"] = errors.New("row locked")

	c, orders, requests := newTestController(gw)
	require.NoError(t, orders.Refresh(context.Background()))
	require.NoError(t, requests.Refresh(context.Background()))

	report := c.CloseTable(context.Background(), "5")
	assert.False(t, report.Ok())
	assert.Equal(t, []string{"o1"}, report.ClosedOrders)
	assert.Equal(t, []string{"o2"}, report.FailedOrders)
	assert.Equal(t, []string{"r1"}, report.ClosedRequests)
	assert.Empty(t, report.FailedRequests)
	assert.Empty(t, gw.orderWrites["o3"], "other tables untouched")

	// the table stays on the floor until every row is terminal:
	// refresh from the gateway, which now has o1 completed, o2 open
	require.NoError(t, orders.Refresh(context.Background()))
	require.NoError(t, requests.Refresh(context.Background()))
	tables := Aggregate(orders.Snapshot(), requests.Snapshot())
	require.Len(t, tables, 2)
	assert.Equal(t, "5", tables[0].TableNumber)

	// retry of just the failed row clears the table
	gw.mu.Lock()
	delete(gw.orderWriteErr, "o2")
	gw.mu.Unlock()
	report = c.CloseTable(context.Background(), "5")
	assert.True(t, report.Ok())

	require.NoError(t, orders.Refresh(context.Background()))
	require.NoError(t, requests.Refresh(context.Background()))
	tables = Aggregate(orders.Snapshot(), requests.Snapshot())
	require.Len(t, tables, 1)
	assert.Equal(t, "6", tables[0].TableNumber)
}

func TestCloseTableBulkCompletes(t *testing.T) {
	gw := newFakeGateway()
	gw.orders = []domain.Order{
		todayOrder("o1", "5", domain.StatusNew),
		todayOrder("o2", "5", domain.StatusServed),
		todayOrder("o3", "5", domain.StatusCompleted), // already terminal, skipped
	}
	c, orders, requests := newTestController(gw)
	require.NoError(t, orders.Refresh(context.Background()))
	require.NoError(t, requests.Refresh(context.Background()))

	report := c.CloseTable(context.Background(), "5")
	assert.True(t, report.Ok())
	assert.ElementsMatch(t, []string{"o1", "o2"}, report.ClosedOrders)
	assert.Empty(t, gw.orderWrites["o3"])
}
