package routes

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/homie-api/middleware"
	"github.com/sidhant-sriv/homie-api/models"
	"github.com/xuri/excelize/v2"
)

const (
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	transactionsSheet = "Transactions"
)

var transactionHeaders = []string{"ID", "Date", "Property", "Tenant", "Landlord", "Type", "Status", "Amount"}

// transactionsWorkbook renders transactions as a single-sheet workbook.
func transactionsWorkbook(transactions []models.Transaction) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(transactionsSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	header := make([]any, len(transactionHeaders))
	for i, h := range transactionHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(transactionsSheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, t := range transactions {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{
			t.ID,
			t.Date.UTC().Format("2006-01-02"),
			propertyTitle(t.Property),
			userName(t.Tenant),
			userName(t.Landlord),
			string(t.Type),
			string(t.Status),
			t.Amount,
		}
		if err := f.SetSheetRow(transactionsSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	for _, w := range []struct {
		from, to string
		width    float64
	}{
		{"A", "B", 12},
		{"C", "E", 28},
		{"F", "H", 12},
	} {
		if err := f.SetColWidth(transactionsSheet, w.from, w.to, w.width); err != nil {
			return nil, fmt.Errorf("set column width %s:%s: %w", w.from, w.to, err)
		}
	}
	return f, nil
}

func propertyTitle(p *models.Property) string {
	if p == nil {
		return ""
	}
	return p.Title
}

func userName(u *models.UserSummary) string {
	if u == nil {
		return ""
	}
	return u.Name
}

// ExportTransactions streams every transaction as an XLSX attachment.
func (h *Handler) ExportTransactions() gin.HandlerFunc {
	return func(c *gin.Context) {
		transactions, err := h.allTransactions(c)
		if err != nil {
			fail(c, err)
			return
		}

		f, err := transactionsWorkbook(transactions)
		if err != nil {
			fail(c, fmt.Errorf("build workbook: %w", err))
			return
		}
		defer f.Close()

		c.Header("Content-Type", xlsxContentType)
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"transactions_%s.xlsx\"",
			h.now().Format("20060102")))

		if err := f.Write(c.Writer); err != nil {
			middleware.Logger(c).Error("write workbook", "error", err)
		}
	}
}
