package pipeline

import (
	"sort"

	"go.uber.org/zap"

	"github.com/vitis-cat/reconcile-cli/internal/model"
	"github.com/vitis-cat/reconcile-cli/internal/resolve"
)

// CodeCount is one line of the enrichment distribution. An empty Code is the
// unresolved bucket.
type CodeCount struct {
	Code string `json:"code" yaml:"code"`
	Rows int    `json:"rows" yaml:"rows"`
}

// FilterZones drops declarations whose zone equals one of excluded. It
// returns the kept rows and how many were removed.
func FilterZones(decls []model.Declaration, excluded []string) ([]model.Declaration, int) {
	skip := make(map[string]struct{}, len(excluded))
	for _, z := range excluded {
		skip[z] = struct{}{}
	}
	out := make([]model.Declaration, 0, len(decls))
	for _, d := range decls {
		if _, ok := skip[d.Zone]; ok {
			continue
		}
		out = append(out, d)
	}
	return out, len(decls) - len(out)
}

// Enrich resolves a producer code for every declaration. The input slice is
// not modified.
func Enrich(decls []model.Declaration, r *resolve.Resolver) []model.Declaration {
	out := make([]model.Declaration, len(decls))
	for i, d := range decls {
		d.ProducerCode = r.Resolve(d.ProducerName, d.Zone).Code
		out[i] = d
	}
	st := r.Stats()
	zap.L().Info("pipeline: enrichment complete",
		zap.Int("total", st.Total),
		zap.Int("resolved", st.Resolved()),
		zap.Int("exact", st.Exact),
		zap.Int("partial", st.Partial),
		zap.Int("special", st.Special),
		zap.Int("unresolved", st.Unresolved),
	)
	return out
}

// Distribution counts declarations per producer code, sorted by code with
// the unresolved bucket last.
func Distribution(decls []model.Declaration) []CodeCount {
	counts := make(map[string]int)
	for _, d := range decls {
		counts[d.ProducerCode]++
	}
	out := make([]CodeCount, 0, len(counts))
	for code, n := range counts {
		out = append(out, CodeCount{Code: code, Rows: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if (out[i].Code == "") != (out[j].Code == "") {
			return out[j].Code == ""
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// Codes returns the distinct resolved producer codes.
func Codes(decls []model.Declaration) map[string]struct{} {
	codes := make(map[string]struct{})
	for _, d := range decls {
		if d.ProducerCode != "" {
			codes[d.ProducerCode] = struct{}{}
		}
	}
	return codes
}

// FilterRegistry keeps registry rows with the in-scope status whose producer
// code appears among the enriched declarations.
func FilterRegistry(recs []model.RegistryRecord, status string, codes map[string]struct{}) []model.RegistryRecord {
	out := make([]model.RegistryRecord, 0, len(recs))
	var offStatus int
	for _, r := range recs {
		if r.Status != status {
			offStatus++
			continue
		}
		if _, ok := codes[r.ProducerCode]; !ok {
			continue
		}
		out = append(out, r)
	}
	zap.L().Info("pipeline: registry filtered",
		zap.Int("rows", len(recs)),
		zap.Int("status_excluded", offStatus),
		zap.Int("kept", len(out)),
		zap.Int("producer_codes", len(codes)),
	)
	return out
}
