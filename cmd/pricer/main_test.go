package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recipesJSON = `[
  {"name": "crepes", "ingredients": [
    {"name": "farine", "quantity": "250 g"},
    {"name": "lait", "quantity": "50 cl"}
  ]}
]`

const pricesJSON = `[
  {"source": "ALDI", "name": "Farine de blé T45", "price_kg": 2.0, "price": 1.0},
  {"source": "ALDI", "name": "Lait demi-écrémé 1L", "price_kg": -1, "price": 0.9},
  {"source": "USP", "name": "Chocolat noir", "price_kg": 12.0, "price": 2.4}
]`

func seed(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "data/recipes.json", []byte(recipesJSON), 0o644))
	require.NoError(t, afero.WriteFile(fs, "data/prices.json", []byte(pricesJSON), 0o644))
	return fs
}

func quietLogs(t *testing.T) {
	t.Helper()
	logger, level, ctxLogger := log.Logger, zerolog.GlobalLevel(), zerolog.DefaultContextLogger
	t.Cleanup(func() {
		log.Logger = logger
		zerolog.SetGlobalLevel(level)
		zerolog.DefaultContextLogger = ctxLogger
	})
}

func TestRun(t *testing.T) {
	quietLogs(t)
	fs := seed(t)
	var stderr bytes.Buffer

	err := run(context.Background(), []string{
		"run",
		"--recipes", "data/recipes.json",
		"--prices", "data/prices.json",
		"--assigned", "out/assigned.json",
		"--report", "out/costs.json",
		"--match-report", "out/match.json",
	}, fs, &stderr)
	require.NoError(t, err, stderr.String())

	data, err := afero.ReadFile(fs, "out/costs.json")
	require.NoError(t, err)

	var report map[string]map[string]map[string]float64
	require.NoError(t, json.Unmarshal(data, &report))
	aldi := report["crepes"]["ALDI_equivalent"]
	assert.Equal(t, 1.9, aldi["direct_price"])
	assert.Equal(t, 2.0, aldi["kg_price"])
	assert.Equal(t, 1.4, aldi["quantity_price"])

	assigned, err := afero.ReadFile(fs, "out/assigned.json")
	require.NoError(t, err)
	assert.Contains(t, string(assigned), `"ingredient": "farine"`)

	exists, err := afero.Exists(fs, "out/match.json")
	require.NoError(t, err)
	assert.True(t, exists)

	original, err := afero.ReadFile(fs, "data/prices.json")
	require.NoError(t, err)
	assert.Equal(t, pricesJSON, string(original))
}

func TestRun_CSVReport(t *testing.T) {
	quietLogs(t)
	fs := seed(t)

	err := run(context.Background(), []string{
		"--recipes=data/recipes.json", "--prices=data/prices.json",
		"--assigned=out/assigned.json", "--report=out/costs.csv", "--format=csv",
		"run",
	}, fs, &bytes.Buffer{})
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "out/costs.csv")
	require.NoError(t, err)
	assert.Contains(t, string(data), "recipe,source,direct_price,quantity_price,kg_price")
	assert.Contains(t, string(data), "crepes,ALDI,1.9,1.4,2")
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantUsage bool
	}{
		{name: "no command", args: []string{}, wantUsage: true},
		{name: "unknown command", args: []string{"bake"}, wantUsage: true},
		{name: "unknown flag", args: []string{"--oven", "run"}, wantUsage: true},
		{name: "missing recipes", args: []string{"run", "--recipes", "nope.json", "--prices", "data/prices.json"}},
		{name: "invalid format", args: []string{"run", "--format", "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quietLogs(t)
			fs := seed(t)

			err := run(context.Background(), tt.args, fs, &bytes.Buffer{})
			require.Error(t, err)
			assert.Equal(t, tt.wantUsage, errors.Is(err, errUsage))

			exists, _ := afero.Exists(fs, "data/recipe_costs.json")
			assert.False(t, exists)
		})
	}
}
