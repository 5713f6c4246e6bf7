// controllers/borrow_controller.go
package controllers

import (
	"net/http"

	"Gin_postgres_redis_inventory/app"
	"Gin_postgres_redis_inventory/models"
	"Gin_postgres_redis_inventory/store"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type BorrowController struct{ *Srv }

func NewBorrowController(s *Srv) *BorrowController { return &BorrowController{Srv: s} }

// GET /api/borrows?userEmail=&itemId=&status=active|returned
// 普通用户只能看到自己的记录，userEmail 被忽略
func (bc *BorrowController) ListBorrows(c *gin.Context) {
	ctx, cancel := bc.reqCtx(c)
	defer cancel()

	userEmail := c.Query("userEmail")
	if !app.IsAdmin(c) {
		userEmail = app.CurrentEmail(c)
	}
	itemID := c.Query("itemId")

	var (
		recs []models.BorrowRecord
		err  error
	)
	switch {
	case userEmail != "":
		recs, err = bc.Store.ListBorrowRecordsByUser(ctx, userEmail)
	case itemID != "":
		recs, err = bc.Store.ListBorrowRecordsByItem(ctx, itemID)
	default:
		recs, err = bc.Store.ListBorrowRecords(ctx)
	}
	if err != nil {
		fail(c, err)
		return
	}

	status := models.BorrowStatus(c.Query("status"))
	recs = lo.Filter(recs, func(r models.BorrowRecord, _ int) bool {
		return (itemID == "" || r.ItemID == itemID) && (status == "" || r.Status == status)
	})
	c.JSON(http.StatusOK, app.H{"records": recs})
}

// GET /api/borrows/:id
func (bc *BorrowController) GetBorrow(c *gin.Context) {
	ctx, cancel := bc.reqCtx(c)
	defer cancel()
	rec, err := bc.Store.GetBorrowRecord(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	// 别人的记录对普通用户等同不存在
	if rec == nil || (!app.IsAdmin(c) && rec.UserEmail != app.CurrentEmail(c)) {
		c.JSON(http.StatusNotFound, app.H{"error": "borrow record not found"})
		return
	}
	c.JSON(http.StatusOK, app.H{"record": rec})
}

// POST /api/borrows 普通用户只能给自己借；管理员可以代借
func (bc *BorrowController) CreateBorrow(c *gin.Context) {
	var in struct {
		ItemID            string `json:"itemId" binding:"required"`
		Quantity          int    `json:"quantity"`
		EstimatedDuration string `json:"estimatedDuration"`
		UserEmail         string `json:"userEmail"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	email := app.CurrentEmail(c)
	if in.UserEmail != "" && app.IsAdmin(c) {
		email = in.UserEmail
	}

	ctx, cancel := bc.reqCtx(c)
	defer cancel()
	rec, err := bc.Store.Borrow(ctx, store.BorrowRequest{
		ItemID:            in.ItemID,
		UserEmail:         email,
		Quantity:          in.Quantity,
		EstimatedDuration: in.EstimatedDuration,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"record": rec})
}

// POST /api/borrows/:id/return
func (bc *BorrowController) ReturnBorrow(c *gin.Context) {
	ctx, cancel := bc.reqCtx(c)
	defer cancel()
	id := c.Param("id")

	if !app.IsAdmin(c) {
		rec, err := bc.Store.GetBorrowRecord(ctx, id)
		if err != nil {
			fail(c, err)
			return
		}
		if rec == nil || rec.UserEmail != app.CurrentEmail(c) {
			c.JSON(http.StatusNotFound, app.H{"error": "borrow record not found"})
			return
		}
	}

	rec, err := bc.Store.Return(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"record": rec})
}

// DELETE /api/borrows/:id（管理员）不回补库存
func (bc *BorrowController) DeleteBorrow(c *gin.Context) {
	ctx, cancel := bc.reqCtx(c)
	defer cancel()
	if err := bc.Store.DeleteBorrowRecord(ctx, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}
