package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExtract = `[
	{"OrderNumber": "1001", "CreatedDate": "2024-05-01 10:30:00", "SKU": "SHOE-42",
	 "Item title": "Running shoe", "Category": "Footwear", "Brand": "Acme",
	 "Quantity": 2, "OriginalUnitPrice": 80, "FinalUnitPrice": 60, "UserID": "u1"},
	{"OrderNumber": 1002, "CreatedDate": 1714559400000, "SKU": "HAT-1",
	 "Quantity": 1.0, "FinalUnitPrice": "12.50"}
]`

func TestParseExtract(t *testing.T) {
	res, err := ParseExtract(strings.NewReader(sampleExtract), DefaultColumnMapping())
	require.NoError(t, err)
	require.Len(t, res.Lines, 2)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 0, res.Dropped)

	first := res.Lines[0]
	assert.Equal(t, "1001", first.OrderNumber)
	assert.Equal(t, "SHOE-42", first.SKU)
	assert.Equal(t, "Running shoe", first.ItemTitle)
	assert.Equal(t, 2, first.Quantity)
	assert.Equal(t, 60.0, first.FinalUnitPrice)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC), first.CreatedDate)

	// numeric identifiers and epoch-millis timestamps coerce
	second := res.Lines[1]
	assert.Equal(t, "1002", second.OrderNumber)
	assert.Equal(t, 12.5, second.FinalUnitPrice)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC), second.CreatedDate)
	assert.Empty(t, second.Category)
}

func TestParseExtractDropsBadLines(t *testing.T) {
	extract := `[
		{"OrderNumber": "1", "CreatedDate": "2024-05-01", "SKU": "A", "Quantity": 1, "FinalUnitPrice": 10},
		{"OrderNumber": "2", "CreatedDate": "not a date", "SKU": "B", "Quantity": 1, "FinalUnitPrice": 10},
		{"OrderNumber": "3", "CreatedDate": "2024-05-01", "SKU": "C", "Quantity": 0, "FinalUnitPrice": 10},
		{"OrderNumber": "4", "CreatedDate": "2024-05-01", "SKU": "", "Quantity": 1, "FinalUnitPrice": 10},
		{"OrderNumber": "5", "CreatedDate": "2024-05-01", "SKU": "E", "Quantity": 1, "FinalUnitPrice": -3}
	]`

	res, err := ParseExtract(strings.NewReader(extract), DefaultColumnMapping())
	require.NoError(t, err)
	assert.Len(t, res.Lines, 1)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 4, res.Dropped)
	assert.Equal(t, "1", res.Lines[0].OrderNumber)
}

func TestParseExtractMissingRequiredMapping(t *testing.T) {
	m := DefaultColumnMapping()
	m.SKU = ""
	_, err := ParseExtract(strings.NewReader(`[]`), m)
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestParseExtractColumnAbsentFromData(t *testing.T) {
	extract := `[{"OrderNumber": "1", "CreatedDate": "2024-05-01", "Quantity": 1, "FinalUnitPrice": 10}]`
	_, err := ParseExtract(strings.NewReader(extract), DefaultColumnMapping())
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestParseExtractRenamedColumns(t *testing.T) {
	extract := `[{"order_no": "9", "ordered_at": "2024-01-02", "sku": "X", "qty": 3, "unit_price": 4.5}]`
	m := ColumnMapping{
		OrderNumber:    "order_no",
		CreatedDate:    "ordered_at",
		SKU:            "sku",
		Quantity:       "qty",
		FinalUnitPrice: "unit_price",
	}

	res, err := ParseExtract(strings.NewReader(extract), m)
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	assert.Equal(t, "9", res.Lines[0].OrderNumber)
	assert.Equal(t, 3, res.Lines[0].Quantity)
	assert.Equal(t, 4.5, res.Lines[0].FinalUnitPrice)
}

func TestParseExtractMalformedJSON(t *testing.T) {
	_, err := ParseExtract(strings.NewReader(`{"not": "an array"`), DefaultColumnMapping())
	assert.Error(t, err)
}
