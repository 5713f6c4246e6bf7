package models

import "time"

const BorrowTable = "borrow_records"

type BorrowStatus string

const (
	BorrowActive   BorrowStatus = "active"
	BorrowReturned BorrowStatus = "returned"
)

// BorrowRecord 借用记录：active -> returned，单向
type BorrowRecord struct {
	ID                string       `gorm:"primaryKey;size:40" json:"id"`
	ItemID            string       `gorm:"size:32;index;not null" json:"itemId"`
	UserEmail         string       `gorm:"size:255;index;not null" json:"userEmail"`
	BorrowDate        time.Time    `gorm:"index;not null" json:"borrowDate"`
	ReturnDate        *time.Time   `json:"returnDate"`
	Quantity          int          `gorm:"not null" json:"quantity"`
	Status            BorrowStatus `gorm:"size:20;index;not null" json:"status"`
	EstimatedDuration string       `gorm:"size:60" json:"estimatedDuration,omitempty"`
	Barcode           string       `gorm:"size:64" json:"barcode"`
}

func (BorrowRecord) TableName() string { return BorrowTable }

func (r BorrowRecord) Active() bool { return r.Status == BorrowActive }
