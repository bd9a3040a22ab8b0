package reports

import (
	"bytes"
	"context"
	"embed"
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
)

//go:embed templates/acknowledgments.html
var templateFS embed.FS

var pdfTemplate = template.Must(template.ParseFS(templateFS, "templates/acknowledgments.html"))

const sheetName = "Acknowledgments"

// PDFRenderer converts an HTML document into PDF bytes.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

func records(rows []Row, loc *time.Location) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, []string{
			strconv.FormatInt(row.ID, 10),
			row.UserName,
			row.CompanyName,
			row.CompanyCode,
			strconv.Itoa(row.CardsSubmitted),
			row.SubmissionType,
			row.DeliveryMethod,
			row.StateTime,
			row.Image,
			row.SubmissionDate.In(loc).Format("2006-01-02 15:04"),
		})
	}
	return out
}

// WriteCSV serialises the report rows as CSV.
func WriteCSV(w io.Writer, report *Report, loc *time.Location) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(records(report.Rows, loc)); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX serialises the report rows as a single-sheet workbook.
func WriteXLSX(w io.Writer, report *Report, loc *time.Location) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	writeRow := func(idx int, values []any) error {
		cell, err := excelize.CoordinatesToCellName(1, idx)
		if err != nil {
			return err
		}
		return f.SetSheetRow(sheetName, cell, &values)
	}
	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := writeRow(1, head); err != nil {
		return err
	}
	for i, row := range report.Rows {
		values := []any{
			row.ID, row.UserName, row.CompanyName, row.CompanyCode, row.CardsSubmitted,
			row.SubmissionType, row.DeliveryMethod, row.StateTime, row.Image,
			row.SubmissionDate.In(loc).Format("2006-01-02 15:04"),
		}
		if err := writeRow(i+2, values); err != nil {
			return err
		}
	}
	if err := f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	_, err := f.WriteTo(w)
	return err
}

// RenderHTML renders the printable report document.
func RenderHTML(report *Report, loc *time.Location) (string, error) {
	var buf bytes.Buffer
	err := pdfTemplate.Execute(&buf, struct {
		*Report
		Header  []string
		Records [][]string
	}{report, header, records(report.Rows, loc)})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WritePDF renders the report through renderer.
func WritePDF(ctx context.Context, w io.Writer, renderer PDFRenderer, report *Report, loc *time.Location) error {
	if renderer == nil {
		return fmt.Errorf("%w: pdf renderer not configured", httpx.ErrDependency)
	}
	html, err := RenderHTML(report, loc)
	if err != nil {
		return err
	}
	pdf, err := renderer.RenderHTML(ctx, html)
	if err != nil {
		return fmt.Errorf("%w: %w", httpx.ErrDependency, err)
	}
	_, err = w.Write(pdf)
	return err
}
