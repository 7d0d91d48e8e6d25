package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/recipeprice/backend/internal/domain"
)

// Report formats
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Paths locates the batch inputs and outputs
type Paths struct {
	Recipes     string
	Prices      string
	Report      string
	MatchReport string
	// AssignedPrices receives the price records after matching. Defaults to Prices.
	AssignedPrices string
}

// Store reads and writes batch files through afero
type Store struct {
	fs           afero.Fs
	paths        Paths
	reportFormat string
	validate     *validator.Validate
}

// New creates a file store. An empty report format means JSON.
func New(fs afero.Fs, paths Paths, reportFormat string) *Store {
	if paths.AssignedPrices == "" {
		paths.AssignedPrices = paths.Prices
	}
	if reportFormat == "" {
		reportFormat = FormatJSON
	}
	return &Store{
		fs:           fs,
		paths:        paths,
		reportFormat: reportFormat,
		validate:     validator.New(),
	}
}

// LoadRecipes reads the recipe catalog. Rows that fail validation are skipped.
func (s *Store) LoadRecipes(ctx context.Context) ([]domain.Recipe, error) {
	rows, err := s.readArray(s.paths.Recipes)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx)
	recipes := make([]domain.Recipe, 0, len(rows))
	for i, row := range rows {
		var recipe domain.Recipe
		if err := s.decodeRow(row, &recipe); err != nil {
			logger.Warn().Err(err).Int("row", i).Str("file", s.paths.Recipes).Msg("skipping recipe")
			continue
		}
		recipes = append(recipes, recipe)
	}
	return recipes, nil
}

// LoadPrices reads the price records. Rows that fail validation are skipped.
func (s *Store) LoadPrices(ctx context.Context) ([]domain.PriceRecord, error) {
	rows, err := s.readArray(s.paths.Prices)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx)
	records := make([]domain.PriceRecord, 0, len(rows))
	for i, row := range rows {
		var record domain.PriceRecord
		if err := s.decodeRow(row, &record); err != nil {
			logger.Warn().Err(err).Int("row", i).Str("file", s.paths.Prices).Msg("skipping price record")
			continue
		}
		if !record.Source.Known() {
			logger.Warn().Int("row", i).Str("source", string(record.Source)).Msg("unknown price source")
		}
		records = append(records, record)
	}
	return records, nil
}

// SavePrices writes the assigned price records
func (s *Store) SavePrices(_ context.Context, records []domain.PriceRecord) error {
	return s.writeJSON(s.paths.AssignedPrices, records)
}

// SaveMatchReport writes the match summary
func (s *Store) SaveMatchReport(_ context.Context, report domain.MatchReport) error {
	if s.paths.MatchReport == "" {
		return nil
	}
	return s.writeJSON(s.paths.MatchReport, report)
}

// SaveCostReport writes the recipe costs as JSON or CSV
func (s *Store) SaveCostReport(_ context.Context, report domain.CostReport) error {
	switch s.reportFormat {
	case FormatJSON:
		return s.writeJSON(s.paths.Report, report)
	case FormatCSV:
		data, err := marshalCostCSV(report)
		if err != nil {
			return fmt.Errorf("encode csv report: %w", err)
		}
		return s.writeAtomic(s.paths.Report, data)
	}
	return fmt.Errorf("unknown report format %q", s.reportFormat)
}

func (s *Store) readArray(path string) ([]json.RawMessage, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInputUnreadable, path, err)
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		// some exports wrap the array in a single-key object
		var wrapped map[string][]json.RawMessage
		if werr := json.Unmarshal(data, &wrapped); werr != nil || len(wrapped) != 1 {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrInputUnreadable, path, err)
		}
		for _, v := range wrapped {
			rows = v
		}
	}
	return rows, nil
}

func (s *Store) decodeRow(row json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(row, v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
	}
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
	}
	return nil
}

func (s *Store) writeJSON(path string, v interface{}) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return s.writeAtomic(path, buf.Bytes())
}

// writeAtomic writes to a sibling temp file and renames it over path, so readers
// never see a half-written output
func (s *Store) writeAtomic(path string, data []byte) error {
	if path == "" {
		return errors.New("output path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// costRow is one (recipe, source) line of the CSV report
type costRow struct {
	Recipe        string  `csv:"recipe"`
	Source        string  `csv:"source"`
	DirectPrice   float64 `csv:"direct_price"`
	QuantityPrice float64 `csv:"quantity_price"`
	KgPrice       float64 `csv:"kg_price"`
}

func marshalCostCSV(report domain.CostReport) ([]byte, error) {
	names := make([]string, 0, len(report))
	for name := range report {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]*costRow, 0, len(names)*len(domain.Sources))
	for _, name := range names {
		cost := report[name]
		for _, source := range domain.Sources {
			total := cost.For(source)
			rows = append(rows, &costRow{
				Recipe:        name,
				Source:        string(source),
				DirectPrice:   domain.Round2(total.DirectPrice),
				QuantityPrice: domain.Round2(total.QuantityPrice),
				KgPrice:       domain.Round2(total.KgPrice),
			})
		}
	}

	var buf bytes.Buffer
	if err := gocsv.Marshal(&rows, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
