package pipeline

import (
	"testing"

	"github.com/vitis-cat/reconcile-cli/internal/config"
	"github.com/vitis-cat/reconcile-cli/internal/sheet/sheettest"
)

func testConfig() *config.Config {
	return &config.Config{
		Extranet:  config.ExtranetConfig{SkipRows: 6},
		Master:    config.MasterConfig{Sheet: "CAT"},
		Registry:  config.RegistryConfig{StatusValue: "CV"},
		Reconcile: config.ReconcileConfig{WeightThresholdPct: 15, ExcludedZones: []string{"Almendralejo", "Cariñena", "Requena"}},
	}
}

var extranetHeader = []any{"Verificador", "Razón Social", "Zona", "Nif Viticultor", "Total Kg:", "Grado:", "Día y hora:"}

func extranetInput(t *testing.T) Input {
	t.Helper()
	return Input{Name: "extranet.xlsx", Data: sheettest.Extranet(t, extranetHeader,
		[]any{"V1", "Bodega X", "PENEDÈS", "B12345678", 1000, 12.5, "14/09/2025 10:30"},
		[]any{"V1", "BODEGA X", "PENEDÈS", "B12345678", 500, 11, "15/09/2025 09:00"},
		[]any{"V2", "Desconocida SL", "LLEIDA", "12345678Z", 300, 10, "14/09/2025 08:00"},
		[]any{"V3", "Celler Vell", "Requena", "X1234567L", 200, 10, "14/09/2025 08:00"},
	)}
}

func masterInput(t *testing.T) Input {
	t.Helper()
	return Input{Name: "bbdd.xlsx", Data: sheettest.Build(t,
		sheettest.Sheet{Name: "INDEX", Rows: [][]any{{"nada"}}},
		sheettest.Sheet{Name: "CAT", Rows: [][]any{
			{"EXTRANET", "RVC", "NIPD", "ZONA"},
			{"BODEGA X", "BODEGA X RVC", "123", "PENEDÈS"},
			{"Celler Vell", "Celler Vell", "456", "Requena"},
		}},
	)}
}

var registryHeader = []any{"dos", "nipd", "nifLLiurador", "dataPesada", "kgTotals", "grau"}

func registryRows() [][]any {
	return [][]any{
		registryHeader,
		{"CV", "123", "B12345678", "2025-09-14", 1000, 12.5},
		{"CV", "123", "B12345678", "2025-09-15", 500, 12},
		{"XX", "123", "B12345678", "2025-09-15", 900, 12},
		{"CV", "999", "B99999999", "2025-09-14", 700, 12},
	}
}

func registryInput(t *testing.T) Input {
	t.Helper()
	return Input{Name: "ervc.xlsx", Data: sheettest.Build(t, sheettest.Sheet{Name: "eRVC", Rows: registryRows()})}
}
