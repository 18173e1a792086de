// Copyright 2026 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/ulikunitz/recavc"
	"github.com/ulikunitz/recavc/internal/mmap"
	"github.com/ulikunitz/recavc/internal/refcodec"
)

// fileMetrics is one row of the batch report.
type fileMetrics struct {
	name     string
	original int
	recoded  int
	ratio    float64
	cabac    int
	skips    int
	err      error
}

// testAction runs roundtrips over every regular file in a directory
// and reports per-file metrics as CSV plus a summary table.
func testAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected <dir>")
	}
	dir := c.Args().Get(0)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return fmt.Errorf("no files in %s", dir)
	}

	var rows []fileMetrics
	failed := 0
	for _, name := range names {
		m := runFile(c, filepath.Join(dir, name))
		m.name = name
		if m.err != nil {
			failed++
		}
		rows = append(rows, m)
	}

	if err = writeCSV(c.String("csv"), rows); err != nil {
		return err
	}
	printSummary(rows)
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(rows))
	}
	return nil
}

func runFile(c *cli.Context, path string) (m fileMetrics) {
	data, done, err := mmap.Map(path)
	if err != nil {
		m.err = err
		return m
	}
	defer done()
	info, _, err := recavc.Roundtrip(data, refcodec.New(),
		recavc.CompressorConfig{DebugLog: debugLog(c)},
		recavc.DecompressorConfig{DebugLog: debugLog(c)})
	if err != nil {
		m.err = err
		m.original = len(data)
		return m
	}
	m.original = info.OriginalSize
	m.recoded = info.RecodedSize
	m.ratio = info.Ratio
	m.cabac = info.CABACBlocks
	m.skips = info.SkipBlocks
	return m
}

func writeCSV(path string, rows []fileMetrics) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err = w.Write([]string{
		"file", "original", "recoded", "ratio", "cabac_blocks",
		"skip_blocks", "error",
	}); err != nil {
		return err
	}
	for _, m := range rows {
		errText := ""
		if m.err != nil {
			errText = m.err.Error()
		}
		rec := []string{
			m.name,
			fmt.Sprintf("%d", m.original),
			fmt.Sprintf("%d", m.recoded),
			fmt.Sprintf("%.4f", m.ratio),
			fmt.Sprintf("%d", m.cabac),
			fmt.Sprintf("%d", m.skips),
			errText,
		}
		if err = w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func printSummary(rows []fileMetrics) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"File", "Original", "Recoded", "Ratio", "Status"})
	for _, m := range rows {
		status := "ok"
		if m.err != nil {
			status = "FAILED"
		}
		table.Append([]string{
			m.name,
			fmt.Sprintf("%d", m.original),
			fmt.Sprintf("%d", m.recoded),
			fmt.Sprintf("%.2f%%", m.ratio*100),
			status,
		})
	}
	table.Render()
}
