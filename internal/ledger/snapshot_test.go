package ledger

import (
	"testing"
	"time"

	"bundle-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(order, sku, title string, price float64, at time.Time) models.OrderLine {
	return models.OrderLine{
		OrderNumber:    order,
		CreatedDate:    at,
		SKU:            sku,
		ItemTitle:      title,
		Quantity:       1,
		FinalUnitPrice: price,
	}
}

func TestBuildSnapshotPriceIsLatestByTimestamp(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

	// lines arrive out of chronological order on purpose
	lines := []models.OrderLine{
		line("O2", "A", "Alpha", 12.50, day(20)),
		line("O1", "A", "Alpha", 10.00, day(5)),
		line("O3", "A", "Alpha", 11.00, day(12)),
	}

	snap := BuildSnapshot(lines)

	price, ok := snap.Price("A")
	require.True(t, ok)
	assert.Equal(t, 12.50, price)
}

func TestBuildSnapshotTitleIsFirstOccurrence(t *testing.T) {
	now := time.Now()
	lines := []models.OrderLine{
		line("O1", "A", "First Title", 10, now),
		line("O2", "A", "Renamed Later", 10, now.Add(time.Hour)),
	}

	snap := BuildSnapshot(lines)
	assert.Equal(t, "First Title", snap.Title("A"))
}

func TestBuildSnapshotDeduplicatesOrderSKUs(t *testing.T) {
	now := time.Now()
	lines := []models.OrderLine{
		line("O1", "B", "B", 5, now),
		line("O1", "A", "A", 5, now),
		line("O1", "B", "B", 5, now), // repeat purchase, same order
	}

	snap := BuildSnapshot(lines)

	require.Len(t, snap.Orders, 1)
	assert.Equal(t, []string{"A", "B"}, snap.Orders[0].SKUs, "distinct SKUs, sorted ascending")
}

func TestBuildSnapshotSkipsEmptySKU(t *testing.T) {
	snap := BuildSnapshot([]models.OrderLine{
		line("O1", "", "ghost", 5, time.Now()),
	})

	assert.Empty(t, snap.Orders)
	assert.Zero(t, snap.SKUCount())
}
