// controllers/item_controller.go
package controllers

import (
	"net/http"

	"Gin_postgres_redis_inventory/app"
	"Gin_postgres_redis_inventory/models"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type ItemController struct{ *Srv }

func NewItemController(s *Srv) *ItemController { return &ItemController{Srv: s} }

// GET /api/items?type=tool
func (ic *ItemController) ListItems(c *gin.Context) {
	ctx, cancel := ic.reqCtx(c)
	defer cancel()
	items, err := ic.Store.ListItems(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	if t := models.ItemType(c.Query("type")); t != "" {
		items = lo.Filter(items, func(it models.InventoryItem, _ int) bool { return it.Type == t })
	}
	c.JSON(http.StatusOK, app.H{"items": items})
}

// GET /api/items/:id
func (ic *ItemController) GetItem(c *gin.Context) {
	ctx, cancel := ic.reqCtx(c)
	defer cancel()
	it, err := ic.Store.GetItem(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if it == nil {
		c.JSON(http.StatusNotFound, app.H{"error": "item not found"})
		return
	}
	c.JSON(http.StatusOK, app.H{"item": it})
}

// createItemReq 外层字段覆盖内嵌的同名字段：Available 区分“没给”和 0，日期走 Date
type createItemReq struct {
	models.InventoryItem
	Available       *int  `json:"available"`
	LastCalibration *Date `json:"lastCalibration"`
	NextCalibration *Date `json:"nextCalibration"`
}

type updateItemReq struct {
	models.ItemPatch
	LastCalibration *Date `json:"lastCalibration"`
	NextCalibration *Date `json:"nextCalibration"`
}

func (r updateItemReq) toPatch() models.ItemPatch {
	p := r.ItemPatch
	p.LastCalibration = r.LastCalibration.Ptr()
	p.NextCalibration = r.NextCalibration.Ptr()
	return p
}

// POST /api/items（管理员）id / 条码 / 入库日期由服务端生成；available 缺省等于 quantity
func (ic *ItemController) CreateItem(c *gin.Context) {
	var in createItemReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	it := in.InventoryItem
	it.Available = lo.FromPtrOr(in.Available, it.Quantity)
	it.LastCalibration = in.LastCalibration.Ptr()
	it.NextCalibration = in.NextCalibration.Ptr()

	ctx, cancel := ic.reqCtx(c)
	defer cancel()
	created, err := ic.Store.AddItem(ctx, it)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"item": created})
}

// PUT /api/items/:id（管理员）部分更新
func (ic *ItemController) UpdateItem(c *gin.Context) {
	var in updateItemReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	patch := in.toPatch()
	if patch.Empty() {
		c.JSON(http.StatusBadRequest, app.H{"error": "nothing to update"})
		return
	}
	ctx, cancel := ic.reqCtx(c)
	defer cancel()
	it, err := ic.Store.UpdateItem(ctx, c.Param("id"), patch)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"item": it})
}

// DELETE /api/items/:id（管理员）借用记录保留
func (ic *ItemController) DeleteItem(c *gin.Context) {
	ctx, cancel := ic.reqCtx(c)
	defer cancel()
	if err := ic.Store.DeleteItem(ctx, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}
