// Package importer loads quiz content from CSV or XLSX files into the
// store. Rows are positional: prompt, answer, chunk, then optionally
// category, group id, part, and any number of distractor columns.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/domain/item"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/store"
)

// Result holds the outcome of an import run.
type Result struct {
	Imported int
	Skipped  int
	Errors   []string
}

// Config controls how a file is read.
type Config struct {
	SheetName  string // XLSX only
	SkipHeader bool
}

func DefaultConfig() Config {
	return Config{SheetName: "Sheet1", SkipHeader: true}
}

// ImportFile dispatches on the file extension and saves every valid row
// as an item. Malformed rows are collected in Result.Errors rather than
// aborting the run.
func ImportFile(ctx context.Context, st store.Store, path string, cfg Config) (*Result, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return importCSV(ctx, st, path, cfg)
	case ".xlsx":
		return importXLSX(ctx, st, path, cfg)
	default:
		return nil, fmt.Errorf("importer: unsupported file type %q", filepath.Ext(path))
	}
}

func importCSV(ctx context.Context, st store.Store, path string, cfg Config) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	result := &Result{}
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line++
		if line == 1 && cfg.SkipHeader {
			continue
		}
		importRow(ctx, st, record, line, result)
	}
	return result, nil
}

func importXLSX(ctx context.Context, st store.Store, path string, cfg Config) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(cfg.SheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", cfg.SheetName, err)
	}

	result := &Result{}
	for i, record := range rows {
		if i == 0 && cfg.SkipHeader {
			continue
		}
		importRow(ctx, st, record, i+1, result)
	}
	return result, nil
}

func importRow(ctx context.Context, st store.Store, record []string, line int, result *Result) {
	it, err := parseRow(record)
	if err != nil {
		result.Skipped++
		result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", line, err))
		return
	}
	if err := st.SaveItem(ctx, it); err != nil {
		result.Skipped++
		result.Errors = append(result.Errors, fmt.Sprintf("row %d: save: %v", line, err))
		return
	}
	result.Imported++
}

// parseRow maps one record onto an item: prompt, answer, chunk,
// [category, [group_id, [part, [distractor...]]]].
func parseRow(record []string) (*item.Item, error) {
	if len(record) < 3 {
		return nil, fmt.Errorf("expected at least prompt, answer, chunk; got %d columns", len(record))
	}

	prompt := strings.TrimSpace(record[0])
	answer := strings.TrimSpace(record[1])
	if prompt == "" {
		return nil, fmt.Errorf("prompt is empty")
	}
	if answer == "" {
		return nil, fmt.Errorf("answer is empty")
	}

	chunk, err := strconv.Atoi(strings.TrimSpace(record[2]))
	if err != nil || chunk < 1 {
		return nil, fmt.Errorf("invalid chunk %q", record[2])
	}

	it := item.New(prompt, answer, chunk)
	if len(record) > 3 {
		it.Category = strings.TrimSpace(record[3])
	}
	if len(record) > 4 {
		it.GroupID = strings.TrimSpace(record[4])
	}
	if len(record) > 5 && strings.TrimSpace(record[5]) != "" {
		part, err := strconv.Atoi(strings.TrimSpace(record[5]))
		if err != nil || part < 0 {
			return nil, fmt.Errorf("invalid part %q", record[5])
		}
		it.Part = part
	}
	if len(record) > 6 {
		for _, d := range record[6:] {
			if d = strings.TrimSpace(d); d != "" {
				it.Distractors = append(it.Distractors, d)
			}
		}
	}
	return it, nil
}
