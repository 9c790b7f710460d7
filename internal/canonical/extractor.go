// Package canonical maps archived spreadsheet rows onto candidate people,
// events and relationships keyed by stable identities.
package canonical

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/loyd0/LoydFam-sub000/internal/workbook"
)

var (
	errMissingID   = errors.New("row has no identifier")
	errMissingLink = errors.New("row has no related identifier")
)

// Options configures an Extractor.
type Options struct {
	SourceTag string
	Lookup    GenderLookup
	Logger    *zap.Logger
}

// Extractor turns a parsed workbook into a Result.
type Extractor struct {
	tag    string
	lookup GenderLookup
	log    *zap.Logger
}

// NewExtractor creates an extractor. A nil lookup uses the embedded lexicon.
func NewExtractor(opts Options) *Extractor {
	if opts.SourceTag == "" {
		opts.SourceTag = DefaultSourceTag
	}
	if opts.Lookup == nil {
		opts.Lookup = DefaultLexicon()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Extractor{tag: opts.SourceTag, lookup: opts.Lookup, log: opts.Logger}
}

// mapContext is what a sheet mapper sees while handling one row.
type mapContext struct {
	res    *Result
	tag    string
	lookup GenderLookup
	sheet  string
}

func (c *mapContext) key(id string) string {
	return ExternalKey(c.tag, id)
}

// Extract walks the recognized sheets in priority order. Rows that cannot
// be mapped are counted and skipped; extraction itself never fails.
func (e *Extractor) Extract(wb *workbook.Workbook) *Result {
	res := NewResult()

	handled := make(map[string]bool)
	for _, m := range sheetMappers {
		for _, sheet := range matchingSheets(wb, m) {
			handled[sheet.Name] = true
			e.mapSheet(res, m, sheet)
		}
	}

	for _, s := range wb.Sheets {
		if !handled[s.Name] {
			res.Stats.SheetsSkipped = append(res.Stats.SheetsSkipped, s.Name)
			e.log.Debug("sheet not recognized",
				zap.String("sheet", s.Name),
				zap.Strings("recognized", SheetNames()))
		}
	}

	res.dedupe()

	e.log.Info("extraction finished",
		zap.Int("people", len(res.People)),
		zap.Int("events", len(res.Events)),
		zap.Int("parent_child", len(res.ParentChild)),
		zap.Int("partnerships", len(res.Partnerships)),
		zap.Int("contacts", len(res.Contacts)),
		zap.Int("rows_skipped", res.Stats.RowsSkipped))
	return res
}

func (e *Extractor) mapSheet(res *Result, m sheetMapper, sheet *workbook.Sheet) {
	res.Stats.SheetsMapped = append(res.Stats.SheetsMapped, sheet.Name)

	ctx := &mapContext{res: res, tag: e.tag, lookup: e.lookup, sheet: sheet.Name}
	mapped, skipped := 0, 0
	for _, row := range sheet.Rows {
		if row.IsBlank() {
			continue
		}
		if err := m.mapRow(ctx, row); err != nil {
			skipped++
			e.log.Debug("skipping row",
				zap.String("sheet", sheet.Name),
				zap.Int("row", row.Index),
				zap.Error(err))
			continue
		}
		mapped++
	}
	res.Stats.RowsMapped += mapped
	res.Stats.RowsSkipped += skipped

	e.log.Debug("sheet mapped",
		zap.String("sheet", sheet.Name),
		zap.Int("rows", mapped),
		zap.Int("skipped", skipped))
}

// matchingSheets returns every sheet named like the mapper, in workbook order.
func matchingSheets(wb *workbook.Workbook, m sheetMapper) []*workbook.Sheet {
	var out []*workbook.Sheet
	for i := range wb.Sheets {
		s := &wb.Sheets[i]
		if matchesName(s.Name, m) {
			out = append(out, s)
		}
	}
	return out
}

func matchesName(name string, m sheetMapper) bool {
	n := strings.Join(strings.Fields(name), " ")
	if strings.EqualFold(n, m.name) {
		return true
	}
	for _, a := range m.aliases {
		if strings.EqualFold(n, a) {
			return true
		}
	}
	return false
}
