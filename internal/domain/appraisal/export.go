package appraisal

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var statusTitle = cases.Title(language.English)

// RenderSummaryPDF lays out an executive summary as a one-page A4 report.
func RenderSummaryPDF(summary ExecutiveSummary) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, fmt.Sprintf("Executive Summary %d", summary.Year))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	for _, line := range []string{
		fmt.Sprintf("IPP: %s", summary.IppID),
		fmt.Sprintf("Employee: %s (%s)", summary.Username, summary.NPK),
		fmt.Sprintf("Department: %s", summary.Department),
		fmt.Sprintf("Category: %s", summary.Category),
	} {
		pdf.Cell(0, 7, line)
		pdf.Ln(6)
	}
	pdf.Ln(4)

	headers := []string{"Month", "Activities", "Counted", "Achieved", "Not achieved", "Counted weight", "Achieved weight", "Achievement", "Approval"}
	widths := []float64{22, 25, 25, 25, 30, 35, 35, 30, 30}
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range summary.Rows {
		cells := []string{
			time.Month(row.Month).String()[:3],
			fmt.Sprintf("%d", row.TotalActivityCount),
			fmt.Sprintf("%d", row.CountedActivityCount),
			fmt.Sprintf("%d", row.AchievedCount),
			fmt.Sprintf("%d", row.NotAchievedCount),
			FormatFixed(row.CountedWeightPct, 1) + "%",
			FormatFixed(row.AchievedWeightPct, 1) + "%",
			Percent(row.MonthlyAchievementRatio),
			statusTitle.String(string(row.MonthlyApproval)),
		}
		for i, c := range cells {
			pdf.CellFormat(widths[i], 7, c, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Total average: %s%%", FormatFixed(summary.TotalAverage, 2)))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Service) ExecutiveSummaryPDF(ctx context.Context, actor Actor, ippID string) ([]byte, error) {
	summary, err := s.ExecutiveSummary(ctx, actor, ippID)
	if err != nil {
		return nil, err
	}
	return RenderSummaryPDF(summary)
}
