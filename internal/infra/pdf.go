package infra

// pdf.go — low-stock summary PDF attached to notification emails.
// One A4 page (or more) with a table of products at or below their reorder
// level: name, SKU, current quantity, threshold.

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zitodamiano1998-max/cpsm-shop/internal/model"

	"github.com/go-pdf/fpdf"
)

// GenerateLowStockPDF writes the summary to storagePath (created if needed)
// and returns the absolute path of the generated file.
func GenerateLowStockPDF(products []model.Product, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	now := time.Now()
	fileName := fmt.Sprintf("sottoscorta_%s.pdf", now.Format("20060102_150405"))
	filePath := filepath.Join(storagePath, fileName)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, "Prodotti sottoscorta", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, now.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// ── Table header ─────────────────────────────────────────────────────────
	col1 := contentW * 0.44 // name
	col2 := contentW * 0.24 // sku
	col3 := contentW * 0.16 // qty
	col4 := contentW * 0.16 // threshold

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1, 7, "Prodotto", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 7, "SKU", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 7, "Giacenza", "B", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 7, "Soglia", "B", 1, "R", false, 0, "")

	// ── Rows ─────────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 9)
	for _, p := range products {
		sku := ""
		if p.SKU != nil {
			sku = *p.SKU
		}
		pdf.CellFormat(col1, 6, p.Name, "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 6, sku, "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 6, fmt.Sprintf("%d", p.StockQty), "", 0, "R", false, 0, "")
		pdf.CellFormat(col4, 6, fmt.Sprintf("%d", p.ReorderLevel), "", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(contentW, 5, fmt.Sprintf("%d prodotti sotto la soglia di riordino", len(products)), "", 1, "L", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write %s: %w", filePath, err)
	}
	return filePath, nil
}
