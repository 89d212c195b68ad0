// Package report renders audit run results into shareable workbooks.
package report

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/brightway-clinics/seo-audit/internal/audit"
	"github.com/brightway-clinics/seo-audit/internal/model"
	"github.com/brightway-clinics/seo-audit/internal/store"
)

// WriteWorkbook writes a run's results to an XLSX file with a run
// summary sheet, one sheet for URL scores, and one for issues.
func WriteWorkbook(results *store.RunResults, path string) error {
	f := xlsx.NewFile()

	if err := addRunSheet(f, results); err != nil {
		return err
	}
	if err := addURLSheet(f, results); err != nil {
		return err
	}
	if err := addIssueSheet(f, results); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "report: save workbook")
	}
	return nil
}

func addRunSheet(f *xlsx.File, results *store.RunResults) error {
	sheet, err := f.AddSheet("Run")
	if err != nil {
		return eris.Wrap(err, "report: add run sheet")
	}

	run := results.Run
	addKeyValue(sheet, "Run ID", run.ID)
	addKeyValue(sheet, "Schedule", string(run.ScheduleType))
	addKeyValue(sheet, "Status", string(run.Status))
	addKeyValue(sheet, "Total URLs", fmt.Sprintf("%d", run.TotalURLs))
	addKeyValue(sheet, "Processed URLs", fmt.Sprintf("%d", run.ProcessedURLs))
	addKeyValue(sheet, "Started At", run.StartedAt.Format(time.RFC3339))
	if run.CompletedAt != nil {
		addKeyValue(sheet, "Completed At", run.CompletedAt.Format(time.RFC3339))
	} else {
		addKeyValue(sheet, "Completed At", "")
	}

	for _, sev := range []model.Severity{
		model.SeverityCritical, model.SeverityHigh, model.SeverityMedium, model.SeverityLow,
	} {
		addKeyValue(sheet, fmt.Sprintf("Issues (%s)", sev),
			fmt.Sprintf("%d", results.Summary.IssuesBySeverity[sev]))
	}

	if results.Summary.AvgMobileScore != nil {
		addKeyValue(sheet, "Avg Mobile Perf", fmt.Sprintf("%.1f", *results.Summary.AvgMobileScore))
	}
	if results.Summary.AvgDesktopScore != nil {
		addKeyValue(sheet, "Avg Desktop Perf", fmt.Sprintf("%.1f", *results.Summary.AvgDesktopScore))
	}
	return nil
}

func addKeyValue(sheet *xlsx.Sheet, key, value string) {
	row := sheet.AddRow()
	row.AddCell().SetString(key)
	row.AddCell().SetString(value)
}

func addURLSheet(f *xlsx.File, results *store.RunResults) error {
	sheet, err := f.AddSheet("URLs")
	if err != nil {
		return eris.Wrap(err, "report: add url sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{
		"URL", "Page Type", "Mobile Perf", "Desktop Perf",
		"Mobile SEO", "Desktop SEO",
		"LCP (ms)", "LCP Rating", "CLS", "CLS Rating", "TBT (ms)", "TBT Rating",
		"Index Status", "Checked At",
	} {
		header.AddCell().SetString(h)
	}

	for _, u := range results.URLs {
		ratings := audit.MetricRatings(u.LabMetrics)

		row := sheet.AddRow()
		row.AddCell().SetString(u.URL)
		row.AddCell().SetString(u.PageType)
		setIntCell(row, u.MobileScore)
		setIntCell(row, u.DesktopScore)
		setIntCell(row, u.MobileSEOScore)
		setIntCell(row, u.DesktopSEOScore)

		if u.LabMetrics != nil {
			setFloatCell(row, u.LabMetrics.LargestContentfulPaintMs, "%.0f")
			row.AddCell().SetString(ratings["lcp"])
			setFloatCell(row, u.LabMetrics.CumulativeLayoutShift, "%.3f")
			row.AddCell().SetString(ratings["cls"])
			setFloatCell(row, u.LabMetrics.TotalBlockingTimeMs, "%.0f")
			row.AddCell().SetString(ratings["tbt"])
		} else {
			for range 6 {
				row.AddCell()
			}
		}

		if u.GSCStatus != nil {
			row.AddCell().SetString(u.GSCStatus.IndexStatus)
		} else {
			row.AddCell()
		}
		row.AddCell().SetString(u.CheckedAt.Format(time.RFC3339))
	}
	return nil
}

func addIssueSheet(f *xlsx.File, results *store.RunResults) error {
	sheet, err := f.AddSheet("Issues")
	if err != nil {
		return eris.Wrap(err, "report: add issue sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"URL", "Category", "Severity", "Title", "Description", "Recommendation"} {
		header.AddCell().SetString(h)
	}

	for _, issue := range results.Issues {
		row := sheet.AddRow()
		row.AddCell().SetString(issue.URL)
		row.AddCell().SetString(issue.Category)
		row.AddCell().SetString(string(issue.Severity))
		row.AddCell().SetString(issue.Title)
		row.AddCell().SetString(issue.Description)
		row.AddCell().SetString(issue.Recommendation)
	}
	return nil
}

func setIntCell(row *xlsx.Row, v *int) {
	if v == nil {
		row.AddCell()
		return
	}
	row.AddCell().SetInt(*v)
}

func setFloatCell(row *xlsx.Row, v *float64, format string) {
	if v == nil {
		row.AddCell()
		return
	}
	row.AddCell().SetString(fmt.Sprintf(format, *v))
}
