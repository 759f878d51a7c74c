package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"kilowatch/internal/observability/metrics"
)

// BuildPDF renders the report as a PDF document.
func BuildPDF(report *Report) (data []byte, err error) {
	start := time.Now()
	defer func() {
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultError
		}
		metrics.ObserveExport("pdf", result, time.Since(start))
	}()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Energy Consumption Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", report.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(8)

	if report.Stats != nil {
		pdf.Cell(0, 6, fmt.Sprintf("Total Energy (kWh): %.2f", report.Stats.TotalKWh))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Mean per Record (kWh): %.2f", report.Stats.MeanKWh))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Max Record (kWh): %.2f", report.Stats.MaxKWh))
		pdf.Ln(8)
	}

	pdf.Cell(0, 6, fmt.Sprintf("%s Cost: %.2f", report.Comparison.GridSource, report.Comparison.GridCost))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("%s Cost: %.2f", report.Comparison.GeneratorSource, report.Comparison.GeneratorCost))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Difference: %.2f", report.Comparison.Difference))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 6, "Month", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 6, "Cost", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, monthly := range report.MonthlyCosts {
		pdf.CellFormat(60, 6, monthly.Period, "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 6, fmt.Sprintf("%.2f", monthly.Cost), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(70, 6, "Top Consumer", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Building", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Energy (kWh)", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, consumer := range report.TopConsumers {
		pdf.CellFormat(70, 6, consumer.EquipmentName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, consumer.BuildingName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.2f", consumer.TotalKWh), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	if len(report.WasteReports) > 0 {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(70, 6, "Wasteful Equipment", "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, "Actual (kWh)", "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, "Deviation (%)", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 10)
		for _, waste := range report.WasteReports {
			pdf.CellFormat(70, 6, waste.EquipmentName, "1", 0, "L", false, 0, "")
			pdf.CellFormat(45, 6, fmt.Sprintf("%.2f", waste.ActualKWh), "1", 0, "R", false, 0, "")
			pdf.CellFormat(45, 6, fmt.Sprintf("%.1f", waste.DeviationPct), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err = pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildXLSX renders the report as an Excel workbook with one sheet per
// section.
func BuildXLSX(report *Report) (data []byte, err error) {
	start := time.Now()
	defer func() {
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultError
		}
		metrics.ObserveExport("xlsx", result, time.Since(start))
	}()

	f := excelize.NewFile()
	summarySheet := "summary"
	costsSheet := "monthly_costs"
	consumersSheet := "top_consumers"
	wasteSheet := "waste"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(costsSheet)
	f.NewSheet(consumersSheet)
	f.NewSheet(wasteSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Energy Consumption Report")
	_ = f.SetCellValue(summarySheet, "A2", "Generated")
	_ = f.SetCellValue(summarySheet, "B2", report.GeneratedAt.Format(time.RFC3339))
	if report.Stats != nil {
		_ = f.SetCellValue(summarySheet, "A4", "Total Energy (kWh)")
		_ = f.SetCellValue(summarySheet, "B4", report.Stats.TotalKWh)
		_ = f.SetCellValue(summarySheet, "A5", "Mean per Record (kWh)")
		_ = f.SetCellValue(summarySheet, "B5", report.Stats.MeanKWh)
		_ = f.SetCellValue(summarySheet, "A6", "Std Dev (kWh)")
		_ = f.SetCellValue(summarySheet, "B6", report.Stats.StdDevKWh)
	}
	_ = f.SetCellValue(summarySheet, "A8", report.Comparison.GridSource+" Cost")
	_ = f.SetCellValue(summarySheet, "B8", report.Comparison.GridCost)
	_ = f.SetCellValue(summarySheet, "A9", report.Comparison.GeneratorSource+" Cost")
	_ = f.SetCellValue(summarySheet, "B9", report.Comparison.GeneratorCost)
	_ = f.SetCellValue(summarySheet, "A10", "Difference")
	_ = f.SetCellValue(summarySheet, "B10", report.Comparison.Difference)

	_ = f.SetCellValue(costsSheet, "A1", "Month")
	_ = f.SetCellValue(costsSheet, "B1", "Cost")
	for i, monthly := range report.MonthlyCosts {
		row := i + 2
		_ = f.SetCellValue(costsSheet, fmt.Sprintf("A%d", row), monthly.Period)
		_ = f.SetCellValue(costsSheet, fmt.Sprintf("B%d", row), monthly.Cost)
	}

	_ = f.SetCellValue(consumersSheet, "A1", "Equipment")
	_ = f.SetCellValue(consumersSheet, "B1", "Building")
	_ = f.SetCellValue(consumersSheet, "C1", "Energy (kWh)")
	for i, consumer := range report.TopConsumers {
		row := i + 2
		_ = f.SetCellValue(consumersSheet, fmt.Sprintf("A%d", row), consumer.EquipmentName)
		_ = f.SetCellValue(consumersSheet, fmt.Sprintf("B%d", row), consumer.BuildingName)
		_ = f.SetCellValue(consumersSheet, fmt.Sprintf("C%d", row), consumer.TotalKWh)
	}

	_ = f.SetCellValue(wasteSheet, "A1", "Equipment")
	_ = f.SetCellValue(wasteSheet, "B1", "Actual (kWh)")
	_ = f.SetCellValue(wasteSheet, "C1", "Theoretical (kWh)")
	_ = f.SetCellValue(wasteSheet, "D1", "Deviation (%)")
	for i, waste := range report.WasteReports {
		row := i + 2
		_ = f.SetCellValue(wasteSheet, fmt.Sprintf("A%d", row), waste.EquipmentName)
		_ = f.SetCellValue(wasteSheet, fmt.Sprintf("B%d", row), waste.ActualKWh)
		_ = f.SetCellValue(wasteSheet, fmt.Sprintf("C%d", row), waste.TheoreticalKWh)
		_ = f.SetCellValue(wasteSheet, fmt.Sprintf("D%d", row), waste.DeviationPct)
	}

	var buf bytes.Buffer
	if err = f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
