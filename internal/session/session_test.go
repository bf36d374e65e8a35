package session

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vitis-cat/reconcile-cli/internal/cleaner"
	"github.com/vitis-cat/reconcile-cli/internal/config"
	"github.com/vitis-cat/reconcile-cli/internal/pipeline"
	"github.com/vitis-cat/reconcile-cli/internal/report"
	"github.com/vitis-cat/reconcile-cli/internal/sheet/sheettest"
)

func newSession(t *testing.T) (*Session, string) {
	t.Helper()
	dir := t.TempDir()
	s := New(&config.Config{
		Extranet:  config.ExtranetConfig{SkipRows: 6, TempDir: dir},
		Master:    config.MasterConfig{Sheet: "CAT"},
		Registry:  config.RegistryConfig{StatusValue: "CV"},
		Reconcile: config.ReconcileConfig{WeightThresholdPct: 15},
	})
	t.Cleanup(func() { _ = s.Close() })
	return s, dir
}

func declarationUpload(t *testing.T) pipeline.Input {
	t.Helper()
	return pipeline.Input{Name: "pesadas.xlsx", Data: sheettest.Extranet(t,
		[]any{"Verificador", "Razón Social", "Nif Viticultor", "Total Kg:"},
		[]any{"V1", "BODEGA X", "A-12345678", 0},
		[]any{"V2", "BODEGA Y", "B12345678", 1500},
		[]any{"V3", "BODEGA Z", "1234", 800},
	)}
}

func reconcileUploads(t *testing.T) (extranet, master, registry pipeline.Input) {
	t.Helper()
	extranet = pipeline.Input{Name: "extranet.xlsx", Data: sheettest.Extranet(t,
		[]any{"Verificador", "Razón Social", "Zona", "Nif Viticultor", "Total Kg:", "Grado:", "Día y hora:"},
		[]any{"V1", "BODEGA X", "PENEDÈS", "B12345678", 1000, 12, "14/09/2025 10:30"},
		[]any{"V2", "BODEGA X", "PENEDÈS", "B12345678", 400, 12, "15/09/2025 10:30"},
	)}
	master = pipeline.Input{Name: "bbdd.xlsx", Data: sheettest.Build(t, sheettest.Sheet{Name: "CAT", Rows: [][]any{
		{"EXTRANET", "RVC", "NIPD", "ZONA"},
		{"BODEGA X", "BODEGA X", "123", "PENEDÈS"},
	}})}
	registry = pipeline.Input{Name: "ervc.csv", Data: []byte(
		"dos;nipd;nifLLiurador;dataPesada;kgTotals;grau\n" +
			"CV;123;B12345678;2025-09-14;1000;12\n" +
			"CV;123;B12345678;2025-09-15;300;12\n")}
	return extranet, master, registry
}

func tempFiles(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return entries
}

func TestSession_DeclarationWorkflow(t *testing.T) {
	s, dir := newSession(t)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, cleaner.StateLoaded, s.CleanerState())

	before, err := s.Analyze(declarationUpload(t))
	require.NoError(t, err)
	assert.Equal(t, cleaner.LedgerSummary{Total: 2, Producers: 2, Correctable: 1, ZeroWeight: 1}, before)
	assert.Len(t, tempFiles(t, dir), 1)

	after, err := s.Correct()
	require.NoError(t, err)
	assert.Equal(t, 1, after.Total)
	assert.Equal(t, cleaner.StateCorrected, s.CleanerState())

	data, name, err := s.Download()
	require.NoError(t, err)
	assert.Equal(t, "declaracion_corregida_pesadas.xlsx", name)
	assert.NotEmpty(t, data)

	ledgers, err := s.Ledgers()
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(ledgers))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{report.SheetBefore, report.SheetAfter}, f.GetSheetList())
}

func TestSession_OutOfOrder(t *testing.T) {
	s, _ := newSession(t)

	_, err := s.Correct()
	assert.True(t, errors.Is(err, cleaner.ErrInvalidState))

	_, _, err = s.Download()
	assert.True(t, errors.Is(err, cleaner.ErrInvalidState))

	_, err = s.Ledgers()
	assert.True(t, errors.Is(err, cleaner.ErrInvalidState))

	_, _, err = s.Check()
	assert.True(t, errors.Is(err, ErrNotEnriched))

	_, err = s.SetRegistry(pipeline.Input{Name: "ervc.csv"})
	assert.True(t, errors.Is(err, ErrNotEnriched))
}

func TestSession_Reconcile(t *testing.T) {
	s, _ := newSession(t)
	extranet, master, registry := reconcileUploads(t)

	e, err := s.Enrich(extranet, master)
	require.NoError(t, err)
	assert.Len(t, e.Declarations, 2)

	_, _, err = s.Match()
	assert.True(t, errors.Is(err, ErrNoRegistry))

	n, err := s.SetRegistry(registry)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	agg, grouped, err := s.Check()
	require.NoError(t, err)
	assert.NotEmpty(t, grouped)
	require.Len(t, agg.Producers, 1)
	assert.Equal(t, "100", agg.Producers[0].Difference.String())

	res, matches, err := s.Match()
	require.NoError(t, err)
	assert.NotEmpty(t, matches)
	assert.Equal(t, 1, res.Stats.Exact)
	assert.Equal(t, 1, res.Stats.WeightApprox)

	// A new enrichment invalidates the registry upload.
	_, err = s.Enrich(extranet, master)
	require.NoError(t, err)
	_, _, err = s.Check()
	assert.True(t, errors.Is(err, ErrNoRegistry))
}

func TestSession_Reset(t *testing.T) {
	s, dir := newSession(t)
	_, err := s.Analyze(declarationUpload(t))
	require.NoError(t, err)
	extranet, master, _ := reconcileUploads(t)
	_, err = s.Enrich(extranet, master)
	require.NoError(t, err)

	require.NoError(t, s.Reset())
	assert.Empty(t, tempFiles(t, dir))
	assert.Equal(t, cleaner.StateLoaded, s.CleanerState())
	_, _, err = s.Check()
	assert.True(t, errors.Is(err, ErrNotEnriched))
}

func TestSession_CloseIdempotent(t *testing.T) {
	s, dir := newSession(t)
	_, err := s.Analyze(declarationUpload(t))
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Empty(t, tempFiles(t, dir))
}

func TestSession_EnrichCorrected(t *testing.T) {
	s, _ := newSession(t)
	_, master, _ := reconcileUploads(t)
	extranet := pipeline.Input{Name: "extranet.xlsx", Data: sheettest.Extranet(t,
		[]any{"Verificador", "Razón Social", "Zona", "Nif Viticultor", "Total Kg:", "Grado:", "Día y hora:"},
		[]any{"V1", "BODEGA X", "PENEDÈS", "A-12345678", 1000, 12, "14/09/2025 10:30"},
		[]any{"V2", "BODEGA X", "PENEDÈS", "A12345678", 0, 12, "15/09/2025 10:30"},
	)}
	registry := pipeline.Input{Name: "ervc.csv", Data: []byte(
		"dos;nipd;nifLLiurador;dataPesada;kgTotals;grau\n" +
			"CV;123;A12345678;2025-09-14;1000;12\n")}

	_, err := s.EnrichCorrected(master)
	assert.True(t, errors.Is(err, cleaner.ErrInvalidState))

	_, err = s.Analyze(extranet)
	require.NoError(t, err)
	_, err = s.EnrichCorrected(master)
	assert.True(t, errors.Is(err, cleaner.ErrInvalidState), "analysis alone is not enough")

	_, err = s.Correct()
	require.NoError(t, err)
	e, err := s.EnrichCorrected(master)
	require.NoError(t, err)
	require.Len(t, e.Declarations, 1)
	assert.Equal(t, "A12345678", e.Declarations[0].TaxID.Key())
	assert.Equal(t, "123", e.Declarations[0].ProducerCode)

	n, err := s.SetRegistry(registry)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	res, _, err := s.Match()
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Processed)
	assert.Equal(t, 1, res.Stats.Exact)
}
