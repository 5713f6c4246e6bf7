package db

import (
	"context"
	"time"

	"Gin_postgres_redis_inventory/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repo) ListBorrowRecords(ctx context.Context) ([]models.BorrowRecord, error) {
	var rs []models.BorrowRecord
	err := r.DB.WithContext(ctx).Order("borrow_date DESC").Find(&rs).Error
	return rs, wrap("db.ListBorrowRecords", err)
}

func (r *Repo) ListBorrowRecordsByUser(ctx context.Context, email string) ([]models.BorrowRecord, error) {
	var rs []models.BorrowRecord
	err := r.DB.WithContext(ctx).
		Where("user_email = ?", email).
		Order("borrow_date DESC").
		Find(&rs).Error
	return rs, wrap("db.ListBorrowRecordsByUser", err)
}

func (r *Repo) ListBorrowRecordsByItem(ctx context.Context, itemID string) ([]models.BorrowRecord, error) {
	var rs []models.BorrowRecord
	err := r.DB.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("borrow_date DESC").
		Find(&rs).Error
	return rs, wrap("db.ListBorrowRecordsByItem", err)
}

func (r *Repo) FindBorrowRecord(ctx context.Context, id string) (*models.BorrowRecord, error) {
	var rec models.BorrowRecord
	if err := r.DB.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, wrap("db.FindBorrowRecord", err)
	}
	return &rec, nil
}

// BorrowItem 借出：同一事务内 锁住物品 → 校验可借数量 → 写记录 → 扣减 available
func (r *Repo) BorrowItem(ctx context.Context, rec *models.BorrowRecord) (*models.InventoryItem, error) {
	const op = "db.BorrowItem"

	var it models.InventoryItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&it, "id = ?", rec.ItemID).Error; err != nil {
			return err
		}
		if it.Available < rec.Quantity {
			return models.ErrInsufficientStock
		}
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.InventoryItem{}).
			Where("id = ?", it.ID).
			Update("available", gorm.Expr("available - ?", rec.Quantity)).Error; err != nil {
			return err
		}
		return tx.First(&it, "id = ?", it.ID).Error
	})
	if err != nil {
		return nil, wrap(op, err)
	}
	return &it, nil
}

// ReturnBorrowRecord 归还：active -> returned，并把数量加回物品。
// 物品已被删除时只更新记录，返回的 item 为 nil。
func (r *Repo) ReturnBorrowRecord(ctx context.Context, id string, at time.Time) (*models.BorrowRecord, *models.InventoryItem, error) {
	const op = "db.ReturnBorrowRecord"

	var (
		rec models.BorrowRecord
		it  *models.InventoryItem
	)
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&rec, "id = ?", id).Error; err != nil {
			return err
		}
		if !rec.Active() {
			return models.ErrAlreadyReturned
		}
		if err := tx.Model(&models.BorrowRecord{}).
			Where("id = ?", rec.ID).
			Updates(map[string]any{
				"status":      models.BorrowReturned,
				"return_date": at,
			}).Error; err != nil {
			return err
		}
		rec.Status = models.BorrowReturned
		rec.ReturnDate = &at

		res := tx.Model(&models.InventoryItem{}).
			Where("id = ?", rec.ItemID).
			Update("available", gorm.Expr("available + ?", rec.Quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		var cur models.InventoryItem
		if err := tx.First(&cur, "id = ?", rec.ItemID).Error; err != nil {
			return err
		}
		it = &cur
		return nil
	})
	if err != nil {
		return nil, nil, wrap(op, err)
	}
	return &rec, it, nil
}

func (r *Repo) DeleteBorrowRecord(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Delete(&models.BorrowRecord{}, "id = ?", id)
	return notFoundIfNone("db.DeleteBorrowRecord", res)
}
