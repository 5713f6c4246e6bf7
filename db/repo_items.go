// db/repo_items.go
package db

import (
	"context"

	"Gin_postgres_redis_inventory/models"
)

func (r *Repo) ListItems(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.DB.WithContext(ctx).Order("added_date ASC, id ASC").Find(&items).Error
	return items, wrap("db.ListItems", err)
}

func (r *Repo) FindItemByID(ctx context.Context, id string) (*models.InventoryItem, error) {
	var it models.InventoryItem
	if err := r.DB.WithContext(ctx).First(&it, "id = ?", id).Error; err != nil {
		return nil, wrap("db.FindItemByID", err)
	}
	return &it, nil
}

// MaxItemSeq 该类别下已有 id 的最大数字后缀；没有记录时为 0
func (r *Repo) MaxItemSeq(ctx context.Context, t models.ItemType) (int, error) {
	var ids []string
	if err := r.DB.WithContext(ctx).Model(&models.InventoryItem{}).
		Where("type = ?", t).
		Pluck("id", &ids).Error; err != nil {
		return 0, wrap("db.MaxItemSeq", err)
	}
	max := 0
	for _, id := range ids {
		if n, ok := models.ItemSeq(id, t); ok && n > max {
			max = n
		}
	}
	return max, nil
}

func (r *Repo) CreateItem(ctx context.Context, it *models.InventoryItem) error {
	return wrap("db.CreateItem", r.DB.WithContext(ctx).Create(it).Error)
}

// UpdateItem 只更新补丁里给出的列，然后读回
func (r *Repo) UpdateItem(ctx context.Context, id string, patch models.ItemPatch) (*models.InventoryItem, error) {
	if cols := patch.Columns(); len(cols) > 0 {
		res := r.DB.WithContext(ctx).Model(&models.InventoryItem{}).
			Where("id = ?", id).
			Updates(cols)
		if err := notFoundIfNone("db.UpdateItem", res); err != nil {
			return nil, err
		}
	}
	return r.FindItemByID(ctx, id)
}

func (r *Repo) DeleteItem(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Delete(&models.InventoryItem{}, "id = ?", id)
	return notFoundIfNone("db.DeleteItem", res)
}
