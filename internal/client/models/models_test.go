package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_IsProvisional(t *testing.T) {
	assert.True(t, ID(-5).IsProvisional())
	assert.False(t, ID(0).IsProvisional())
	assert.False(t, ID(42).IsProvisional())
}

func TestParseID(t *testing.T) {
	id, err := ParseID("-17")
	require.NoError(t, err)
	assert.Equal(t, ID(-17), id)

	_, err = ParseID("x")
	assert.Error(t, err)
}

func TestNextProvisionalID(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	tests := []struct {
		name string
		last ID
		want ID
	}{
		{name: "first id", last: 0, want: -1_700_000_000_000},
		{name: "clock ahead of last", last: -1_600_000_000_000, want: -1_700_000_000_000},
		{name: "same millisecond", last: -1_700_000_000_000, want: -1_700_000_000_001},
		{name: "clock went backwards", last: -1_800_000_000_000, want: -1_800_000_000_001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextProvisionalID(now, tt.last)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.IsProvisional())
		})
	}
}

func TestOrder_Recalculate(t *testing.T) {
	o := Order{Products: []OrderLine{
		{ProductID: 1, Quantity: 2, PriceAtOrder: 150},
		{ProductID: 2, Quantity: 0, PriceAtOrder: 40},
		{ProductID: 3, Quantity: 3},
	}}

	got := o.Recalculate()

	assert.Equal(t, Money(2*150+40), got.Total)
	assert.Equal(t, int64(1), got.Products[1].Quantity)
	assert.Zero(t, o.Total, "receiver must not be mutated")
	assert.Equal(t, int64(0), o.Products[1].Quantity)
}

func TestOrder_RecalculateEmpty(t *testing.T) {
	got := Order{Total: 99}.Recalculate()
	assert.Zero(t, got.Total)
}

func TestWithID(t *testing.T) {
	c := Client{ID: 1, FirstName: "Ann"}
	c2 := c.WithID(-3)
	assert.Equal(t, ID(-3), c2.RecordID())
	assert.Equal(t, ID(1), c.RecordID())
	assert.Equal(t, "Ann", Client{FirstName: "Ann"}.FullName())
}

func TestMoney_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want Money
	}{
		{in: `10`, want: 10},
		{in: `12.5`, want: 12.5},
		{in: `"7.25"`, want: 7.25},
		{in: `""`, want: 0},
		{in: `null`, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var m Money
			require.NoError(t, json.Unmarshal([]byte(tt.in), &m))
			assert.Equal(t, tt.want, m)
		})
	}

	var m Money
	assert.Error(t, json.Unmarshal([]byte(`"ten"`), &m))
	assert.True(t, Money(3).Whole())
	assert.False(t, Money(3.5).Whole())
}

func TestProducts_FractionalPricesDecode(t *testing.T) {
	var got []Product
	require.NoError(t, json.Unmarshal([]byte(`[{"id":1,"price":10},{"id":2,"price":12.5}]`), &got))
	require.Len(t, got, 2)
	assert.Equal(t, Money(12.5), got[1].Price)
}

func TestOrder_UnmarshalDate(t *testing.T) {
	tests := []struct {
		name string
		date string
		want time.Time
	}{
		{name: "with offset", date: `"2026-10-15T10:00:00+03:00"`, want: time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC)},
		{name: "utc", date: `"2026-10-15T10:00:00Z"`, want: time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)},
		{name: "naive", date: `"2026-10-15T10:00:00"`, want: time.Date(2026, 10, 15, 10, 0, 0, 0, time.Local)},
		{name: "naive with space", date: `"2026-10-15 10:00"`, want: time.Date(2026, 10, 15, 10, 0, 0, 0, time.Local)},
		{name: "date only", date: `"2026-10-15"`, want: time.Date(2026, 10, 15, 0, 0, 0, 0, time.Local)},
		{name: "unix millis", date: `1791021600000`, want: time.UnixMilli(1791021600000)},
		{name: "garbage", date: `"soon"`},
		{name: "null", date: `null`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o Order
			require.NoError(t, json.Unmarshal([]byte(`{"id":3,"title":"Cake","date":`+tt.date+`}`), &o))
			assert.Equal(t, ID(3), o.ID)
			assert.Equal(t, "Cake", o.Title)
			assert.True(t, tt.want.Equal(o.Date), "got %v", o.Date)
		})
	}
}

func TestOrder_JSONRoundTripKeepsDate(t *testing.T) {
	in := Order{ID: 1, Date: time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC), Products: []OrderLine{{ProductID: 2, Quantity: 1, PriceAtOrder: 9.5}}}
	b, err := json.Marshal(in)
	require.NoError(t, err)

	var out Order
	require.NoError(t, json.Unmarshal(b, &out))
	assert.True(t, in.Date.Equal(out.Date))
	assert.Equal(t, Money(9.5), out.Products[0].PriceAtOrder)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Product{Price: 0}.Validate())
	assert.ErrorIs(t, Product{Price: -1}.Validate(), ErrInvalid)

	assert.NoError(t, Order{Products: []OrderLine{{ProductID: 1, Quantity: 1}}}.Validate())
	assert.ErrorIs(t, Order{Products: []OrderLine{{ProductID: 1, Quantity: 0}}}.Validate(), ErrInvalid)
	assert.ErrorIs(t, Order{Products: []OrderLine{{ProductID: 1, Quantity: 2, PriceAtOrder: -3}}}.Validate(), ErrInvalid)
}
