// Package report writes inventory and borrow history as CSV for printing
// or spreadsheet import.
package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/samber/lo"

	"Gin_postgres_redis_inventory/models"
)

var itemHeader = []string{
	"id", "name", "type", "quantity", "available", "borrowed", "unit",
	"brand", "location", "condition", "serialNumber", "nextCalibration", "addedDate", "barcode",
}

// Items writes one row per item in the given order.
func Items(w io.Writer, items []models.InventoryItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(itemHeader); err != nil {
		return err
	}
	for _, it := range items {
		if err := cw.Write([]string{
			it.ID,
			it.Name,
			string(it.Type),
			strconv.Itoa(it.Quantity),
			strconv.Itoa(it.Available),
			strconv.Itoa(it.Quantity - it.Available),
			it.Unit,
			it.Brand,
			it.Location,
			it.Condition,
			it.SerialNumber,
			date(it.NextCalibration),
			it.AddedDate.Format(time.RFC3339),
			it.Barcode,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var borrowHeader = []string{
	"id", "itemId", "itemName", "userEmail", "quantity", "status",
	"borrowDate", "returnDate", "estimatedDuration", "barcode",
}

// BorrowRecords writes one row per record. itemName is looked up in items
// and left empty for records whose item no longer exists.
func BorrowRecords(w io.Writer, recs []models.BorrowRecord, items []models.InventoryItem) error {
	names := lo.SliceToMap(items, func(it models.InventoryItem) (string, string) { return it.ID, it.Name })

	cw := csv.NewWriter(w)
	if err := cw.Write(borrowHeader); err != nil {
		return err
	}
	for _, r := range recs {
		if err := cw.Write([]string{
			r.ID,
			r.ItemID,
			names[r.ItemID],
			r.UserEmail,
			strconv.Itoa(r.Quantity),
			string(r.Status),
			r.BorrowDate.Format(time.RFC3339),
			date(r.ReturnDate),
			r.EstimatedDuration,
			r.Barcode,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
