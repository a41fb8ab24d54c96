package cli

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/ordersync/internal/client/models"
	"github.com/dmitrijs2005/ordersync/internal/client/services"
)

func assertGolden(t *testing.T, name string, got []byte) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, got)
}

func TestRenderClients(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderClients(&buf, []models.Client{
		{ID: 1, FirstName: "Ann", LastName: "Lee", Phone: "+371 2000"},
		{ID: -5, FirstName: "Bob"},
		{ID: 12, Phone: "+1"},
	}))
	assertGolden(t, "clients", buf.Bytes())
}

func TestRenderProducts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderProducts(&buf, []models.Product{
		{ID: 1, Title: "Cheesecake", Price: 1250, Photo: "c.png", Image: "data:image/png;base64,AA=="},
		{ID: -3, Title: "Tea", Price: 45, Photo: "t.png"},
		{ID: 7, Title: "Water"},
	}))
	assertGolden(t, "products", buf.Bytes())
}

func TestRenderOrders(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderOrders(&buf, []services.OrderSummary{
		{
			ID: 1, Title: "Birthday", ClientName: "Ann Lee", Total: 30,
			Start: time.Date(2026, 10, 16, 18, 0, 0, 0, time.UTC),
			Lines: []services.OrderLineSummary{{ProductID: 3, Title: "Cake", Quantity: 2, Price: 15}},
		},
		{ID: -2, Title: "Lunch", ClientName: services.UnknownClient},
	}, time.UTC))
	assertGolden(t, "orders", buf.Bytes())
}

func TestRenderStatus(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderStatus(&buf, services.Status{
		Online:     false,
		Credential: true,
		Collections: []services.CollectionStatus{
			{Name: "clients", Records: 3, Provisional: 1, RefreshedAt: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)},
			{Name: "products"},
			{Name: "orders", Records: 2, Err: errors.New("disk gone")},
		},
	}, true))
	assertGolden(t, "status", buf.Bytes())
}

func TestRenderUser(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderUser(&buf, models.User{FirstName: "Ann", LastName: "Lee", Email: "ann@example.com"}, services.SourceCache))
	assertGolden(t, "user", buf.Bytes())
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderClients(&buf, nil))
	require.NoError(t, renderProducts(&buf, nil))
	require.NoError(t, renderOrders(&buf, nil, time.UTC))
	assertGolden(t, "empty", buf.Bytes())
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "0 ₽", formatMoney(0))
	assert.Equal(t, "1,234,567 ₽", formatMoney(1234567))
	assert.Equal(t, "12.50 ₽", formatMoney(12.5))
}
