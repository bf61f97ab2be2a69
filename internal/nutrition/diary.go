package nutrition

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// DiaryPDF renders the day's meals as a one-page A4 document.
func (s *Service) DiaryPDF(ctx context.Context, userID, date string) ([]byte, error) {
	summary, err := s.DailySummary(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	meals, err := s.ListMeals(ctx, userID, summary.Date)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Diario alimentar "+summary.Date, false)
	// core fonts are cp1252; this keeps accents in meal names
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr("Diário alimentar"))
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Data: %s", summary.Date)))
	pdf.Ln(6)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Total: %d kcal em %d %s", summary.TotalCalories, summary.MealCount, plural(summary.MealCount, "refeição", "refeições"))))
	pdf.Ln(6)
	if summary.CalorieGoal != nil {
		status := fmt.Sprintf("Meta: %d kcal, restam %d kcal", *summary.CalorieGoal, *summary.RemainingCalories)
		if summary.GoalMet {
			status = fmt.Sprintf("Meta: %d kcal, atingida", *summary.CalorieGoal)
		}
		pdf.Cell(0, 7, tr(status))
		pdf.Ln(6)
	}
	pdf.Ln(6)

	if len(meals.Meals) == 0 {
		pdf.Cell(0, 7, tr("Nenhuma refeição registrada."))
	} else {
		drawMealsTable(pdf, tr, meals.Meals)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render diary pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func drawMealsTable(pdf *gofpdf.Fpdf, tr func(string) string, meals []MealEntryDTO) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(35, 7, tr("Refeição"), "1", 0, "C", false, 0, "")
	pdf.CellFormat(80, 7, "Item", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 7, "Quantidade", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 7, "kcal", "1", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, m := range meals {
		for i, it := range m.Items {
			label := ""
			if i == 0 {
				label = m.MealName
			}
			pdf.CellFormat(35, 6, tr(label), "1", 0, "L", false, 0, "")
			pdf.CellFormat(80, 6, tr(it.Name), "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, tr(it.Quantity), "1", 0, "L", false, 0, "")
			pdf.CellFormat(25, 6, fmt.Sprintf("%d", it.Calories), "1", 1, "R", false, 0, "")
		}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(155, 6, tr("Subtotal "+m.MealName), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%d", m.TotalCalories), "1", 1, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
	}
}
