package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"bundle-service/internal/models"
	"bundle-service/internal/util"

	"go.uber.org/zap"
)

// ErrColumnNotFound is returned when a required column is missing from
// the mapping or never appears in the extract.
var ErrColumnNotFound = errors.New("column not found")

// ColumnMapping binds the logical order-line fields to the key names
// used in a JSON order extract. It is supplied once at load time; there
// is no runtime column guessing.
type ColumnMapping struct {
	OrderNumber       string `json:"order_number"`
	CreatedDate       string `json:"created_date"`
	SKU               string `json:"sku"`
	ItemTitle         string `json:"item_title"`
	Category          string `json:"category"`
	Brand             string `json:"brand"`
	Quantity          string `json:"quantity"`
	OriginalUnitPrice string `json:"original_unit_price"`
	FinalUnitPrice    string `json:"final_unit_price"`
	UserID            string `json:"user_id"`
}

// DefaultColumnMapping matches the column names produced by the
// standard spreadsheet-to-JSON export.
func DefaultColumnMapping() ColumnMapping {
	return ColumnMapping{
		OrderNumber:       "OrderNumber",
		CreatedDate:       "CreatedDate",
		SKU:               "SKU",
		ItemTitle:         "Item title",
		Category:          "Category",
		Brand:             "Brand",
		Quantity:          "Quantity",
		OriginalUnitPrice: "OriginalUnitPrice",
		FinalUnitPrice:    "FinalUnitPrice",
		UserID:            "UserID",
	}
}

// required returns the mapped keys that must be present for a usable
// extract. Title, category, brand, original price and user are
// optional; missing values default to zero values.
func (m ColumnMapping) required() map[string]string {
	return map[string]string{
		"order number":     m.OrderNumber,
		"created date":     m.CreatedDate,
		"sku":              m.SKU,
		"quantity":         m.Quantity,
		"final unit price": m.FinalUnitPrice,
	}
}

// Result is the outcome of parsing one extract. Lines that fail
// coercion are dropped and counted, never fatal.
type Result struct {
	Lines   []models.OrderLine
	Total   int
	Dropped int
}

// ParseExtract decodes a JSON array of order-line records using the
// given mapping. A required field missing from the mapping, or absent
// from every record, returns ErrColumnNotFound.
func ParseExtract(r io.Reader, mapping ColumnMapping) (*Result, error) {
	for field, key := range mapping.required() {
		if key == "" {
			return nil, fmt.Errorf("%w: no mapping for %s", ErrColumnNotFound, field)
		}
	}

	var records []map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding extract: %w", err)
	}

	if len(records) > 0 {
		for field, key := range mapping.required() {
			if !anyRecordHas(records, key) {
				return nil, fmt.Errorf("%w: %s column %q", ErrColumnNotFound, field, key)
			}
		}
	}

	log := util.GetLogger()
	res := &Result{Total: len(records)}
	for i, rec := range records {
		line, err := mapLine(rec, mapping)
		if err != nil {
			res.Dropped++
			log.Debug("dropping order line",
				zap.Int("record", i),
				zap.Error(err))
			continue
		}
		res.Lines = append(res.Lines, line)
	}

	if res.Dropped > 0 {
		log.Warn("extract parsed with dropped lines",
			zap.Int("total", res.Total),
			zap.Int("dropped", res.Dropped))
	}
	return res, nil
}

func anyRecordHas(records []map[string]json.RawMessage, key string) bool {
	for _, rec := range records {
		if _, ok := rec[key]; ok {
			return true
		}
	}
	return false
}

func mapLine(rec map[string]json.RawMessage, m ColumnMapping) (models.OrderLine, error) {
	var line models.OrderLine
	var err error

	if line.OrderNumber, err = stringField(rec, m.OrderNumber, true); err != nil {
		return line, err
	}
	if line.SKU, err = stringField(rec, m.SKU, true); err != nil {
		return line, err
	}
	if line.CreatedDate, err = timeField(rec, m.CreatedDate); err != nil {
		return line, err
	}

	qty, err := numberField(rec, m.Quantity, true)
	if err != nil {
		return line, err
	}
	if qty < 1 || math.Trunc(qty) != qty {
		return line, fmt.Errorf("quantity %v: not a positive integer", qty)
	}
	line.Quantity = int(qty)

	if line.FinalUnitPrice, err = numberField(rec, m.FinalUnitPrice, true); err != nil {
		return line, err
	}
	if line.FinalUnitPrice < 0 {
		return line, fmt.Errorf("final unit price %v: negative", line.FinalUnitPrice)
	}

	// optional fields
	line.ItemTitle, _ = stringField(rec, m.ItemTitle, false)
	line.Category, _ = stringField(rec, m.Category, false)
	line.Brand, _ = stringField(rec, m.Brand, false)
	line.UserID, _ = stringField(rec, m.UserID, false)
	if line.OriginalUnitPrice, err = numberField(rec, m.OriginalUnitPrice, false); err != nil || line.OriginalUnitPrice < 0 {
		line.OriginalUnitPrice = 0
	}
	return line, nil
}

func stringField(rec map[string]json.RawMessage, key string, required bool) (string, error) {
	raw, ok := rec[key]
	if !ok || string(raw) == "null" {
		if required {
			return "", fmt.Errorf("missing value for %q", key)
		}
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" && required {
			return "", fmt.Errorf("empty value for %q", key)
		}
		return s, nil
	}
	// numeric identifiers exported without quotes
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("value for %q is not a string", key)
}

func numberField(rec map[string]json.RawMessage, key string, required bool) (float64, error) {
	raw, ok := rec[key]
	if !ok || string(raw) == "null" {
		if required {
			return 0, fmt.Errorf("missing value for %q", key)
		}
		return 0, nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("value for %q is not finite", key)
		}
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("value for %q: %v", key, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("value for %q is not numeric", key)
}

func timeField(rec map[string]json.RawMessage, key string) (time.Time, error) {
	raw, ok := rec[key]
	if !ok || string(raw) == "null" {
		return time.Time{}, fmt.Errorf("missing value for %q", key)
	}

	// pandas exports datetimes as epoch milliseconds
	var millis int64
	if err := json.Unmarshal(raw, &millis); err == nil {
		return time.UnixMilli(millis).UTC(), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, fmt.Errorf("value for %q is not a timestamp", key)
	}
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
