// Package xlsx writes vacancy records into an Excel workbook with excelize.
// The file is saved after every row so a crashed run keeps what it parsed.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/JakeFAU/vacancy-crawler/internal/vacancy"
)

const (
	defaultName  = "job_offers.xlsx"
	defaultSheet = "Careerspace"
	headerFill   = "BCB7B6"
	// StatsSheet holds the level distribution and its pie chart.
	StatsSheet = "Статистика"
	// UnspecifiedLabel is the statistics row for vacancies without a level.
	UnspecifiedLabel = "Не указано"
)

// ErrFinalized is returned when a record arrives after Finalize.
var ErrFinalized = errors.New("workbook already finalized")

// Config locates the workbook on disk.
type Config struct {
	Dir   string `mapstructure:"dir"`
	Name  string `mapstructure:"workbook"`
	Sheet string `mapstructure:"sheet"`
}

// Workbook is a sink.Sink backed by a single xlsx file.
type Workbook struct {
	file   *excelize.File
	path   string
	sheet  string
	row    int
	widths []int
	levels map[string]int
	// finalized rejects further records; closed tracks the file handle.
	finalized bool
	closed    bool
}

// New creates the workbook with its header row and saves it immediately.
func New(cfg Config) (wb *Workbook, err error) {
	if cfg.Name == "" {
		cfg.Name = defaultName
	}
	if cfg.Sheet == "" {
		cfg.Sheet = defaultSheet
	}
	f := excelize.NewFile()
	defer func() {
		if err != nil {
			_ = f.Close()
		}
	}()
	if err := f.SetSheetName("Sheet1", cfg.Sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	w := &Workbook{
		file:   f,
		path:   filepath.Join(cfg.Dir, cfg.Name),
		sheet:  cfg.Sheet,
		levels: make(map[string]int),
	}
	header := vacancy.Columns()
	w.widths = make([]int, len(header))
	if err := w.writeRow(toAny(header)); err != nil {
		return nil, err
	}
	if err := w.styleHeader(len(header)); err != nil {
		return nil, err
	}
	if err := w.save(); err != nil {
		return nil, err
	}
	return w, nil
}

// Path is where the workbook is saved.
func (w *Workbook) Path() string { return w.path }

// AppendRecord writes one row and saves the file.
func (w *Workbook) AppendRecord(_ context.Context, rec *vacancy.Record) error {
	if w.finalized || w.closed {
		return ErrFinalized
	}
	if err := w.writeRow(rec.Values()); err != nil {
		return err
	}
	w.countLevels(rec.Levels)
	return w.save()
}

// Finalize sizes the columns, adds the level statistics sheet and saves the
// workbook a last time. When any step fails the file stays open and Close
// releases it.
func (w *Workbook) Finalize(context.Context) error {
	if w.finalized || w.closed {
		return nil
	}
	w.finalized = true
	if err := w.sizeColumns(); err != nil {
		return err
	}
	if err := w.writeStats(); err != nil {
		return err
	}
	if err := w.save(); err != nil {
		return err
	}
	return w.Close()
}

// Close releases the workbook without adding statistics. The rows already
// saved stay on disk. It does nothing once the file is closed.
func (w *Workbook) Close() error {
	if w.closed {
		return nil
	}
	w.finalized = true
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close workbook: %w", err)
	}
	w.closed = true
	return nil
}

// LevelCounts reports the statistics rows in display order.
func (w *Workbook) LevelCounts() []LevelCount {
	out := make([]LevelCount, 0, 4)
	for _, l := range vacancy.Levels() {
		out = append(out, LevelCount{Label: l.String(), Count: w.levels[l.String()]})
	}
	return append(out, LevelCount{Label: UnspecifiedLabel, Count: w.levels[UnspecifiedLabel]})
}

// LevelCount is one row of the statistics sheet.
type LevelCount struct {
	Label string
	Count int
}

func (w *Workbook) countLevels(set vacancy.LevelSet) {
	if set.Empty() {
		w.levels[UnspecifiedLabel]++
		return
	}
	for _, l := range set.Members() {
		w.levels[l.String()]++
	}
}

func (w *Workbook) writeRow(values []any) error {
	w.row++
	for i, v := range values {
		if v == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, w.row)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := w.file.SetCellValue(w.sheet, cell, v); err != nil {
			return fmt.Errorf("set %s: %w", cell, err)
		}
		if i < len(w.widths) {
			w.widths[i] = max(w.widths[i], utf8.RuneCountInString(fmt.Sprint(v)))
		}
	}
	return nil
}

func (w *Workbook) styleHeader(columns int) error {
	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(columns, 1)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := w.file.SetCellStyle(w.sheet, "A1", last, style); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}
	return nil
}

// sizeColumns sets every column to (longest value + 1) * 1.2 characters.
func (w *Workbook) sizeColumns() error {
	for i, width := range w.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("column name: %w", err)
		}
		if err := w.file.SetColWidth(w.sheet, col, col, float64(width+1)*1.2); err != nil {
			return fmt.Errorf("set width of %s: %w", col, err)
		}
	}
	return nil
}

func (w *Workbook) writeStats() error {
	if _, err := w.file.NewSheet(StatsSheet); err != nil {
		return fmt.Errorf("create %s sheet: %w", StatsSheet, err)
	}
	if err := w.file.SetSheetRow(StatsSheet, "A1", &[]any{vacancy.LabelLevel, "Количество"}); err != nil {
		return fmt.Errorf("stats header: %w", err)
	}
	counts := w.LevelCounts()
	for i, c := range counts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := w.file.SetSheetRow(StatsSheet, cell, &[]any{c.Label, c.Count}); err != nil {
			return fmt.Errorf("stats row %s: %w", c.Label, err)
		}
	}

	last := len(counts) + 1
	ref := func(col string) string {
		return fmt.Sprintf("'%s'!$%s$2:$%s$%d", StatsSheet, col, col, last)
	}
	err := w.file.AddChart(StatsSheet, "D2", &excelize.Chart{
		Type: excelize.Pie,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("'%s'!$B$1", StatsSheet),
			Categories: ref("A"),
			Values:     ref("B"),
		}},
		Title:  []excelize.RichTextRun{{Text: vacancy.LabelLevel}},
		Legend: excelize.ChartLegend{Position: "right"},
	})
	if err != nil {
		return fmt.Errorf("add level chart: %w", err)
	}
	return nil
}

func (w *Workbook) save() error {
	if err := w.file.SaveAs(w.path); err != nil {
		return fmt.Errorf("save workbook %s: %w", w.path, err)
	}
	return nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
