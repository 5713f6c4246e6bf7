package controllers

import (
	"fmt"
	"net/http"

	"Gin_postgres_redis_inventory/report"

	"github.com/gin-gonic/gin"
)

func csvHeaders(c *gin.Context, name string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Status(http.StatusOK)
}

// GET /api/reports/items.csv（管理员）
func (s *Srv) ItemsReport(c *gin.Context) {
	ctx, cancel := s.reqCtx(c)
	defer cancel()
	items, err := s.Store.ListItems(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	csvHeaders(c, "inventory.csv")
	if err := report.Items(c.Writer, items); err != nil {
		_ = c.Error(err)
	}
}

// GET /api/reports/borrows.csv（管理员）
func (s *Srv) BorrowsReport(c *gin.Context) {
	ctx, cancel := s.reqCtx(c)
	defer cancel()
	recs, err := s.Store.ListBorrowRecords(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	items, err := s.Store.ListItems(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	csvHeaders(c, "borrow-records.csv")
	if err := report.BorrowRecords(c.Writer, recs, items); err != nil {
		_ = c.Error(err)
	}
}
