// Package resolve maps free-text winery names to producer codes (NIPD).
package resolve

import (
	"strings"

	"go.uber.org/zap"

	"github.com/vitis-cat/reconcile-cli/internal/model"
)

// MatchKind records how a name was resolved.
type MatchKind string

// Resolution kinds.
const (
	KindNone    MatchKind = "none"
	KindSpecial MatchKind = "special"
	KindExact   MatchKind = "exact"
	KindPartial MatchKind = "partial"
)

// Special-cased producer whose code depends on the zone.
const codorniuName = "CODORNIU, S.A."

var codorniuZones = map[string]string{
	"LLEIDA":  "2501200003",
	"PENEDÈS": "802400022",
}

// Result is the outcome of one resolution.
type Result struct {
	Code  string
	Kind  MatchKind
	Alias string // dictionary key that matched, for partial matches
}

// OK reports whether a code was found.
func (r Result) OK() bool { return r.Code != "" }

// Stats counts resolutions for audit.
type Stats struct {
	Total      int `json:"total" yaml:"total"`
	Exact      int `json:"exact" yaml:"exact"`
	Partial    int `json:"partial" yaml:"partial"`
	Special    int `json:"special" yaml:"special"`
	Unresolved int `json:"unresolved" yaml:"unresolved"`
}

// Resolved is the number of rows that received a code.
func (s Stats) Resolved() int { return s.Total - s.Unresolved }

// Resolver holds the alias dictionary in insertion order.
type Resolver struct {
	keys  []string
	codes map[string]string
	stats Stats
	log   *zap.Logger
}

// New builds the dictionary from master rows. Each row contributes its
// Extranet alias and, when different, its registry alias. A repeated alias
// keeps its first position and takes the latest code.
func New(masters []model.ProducerMaster) *Resolver {
	r := &Resolver{
		codes: make(map[string]string, 2*len(masters)),
		log:   zap.L().Named("resolve"),
	}
	for _, m := range masters {
		code := strings.TrimSpace(m.ProducerCode)
		if code == "" {
			continue
		}
		ext := NormalizeName(m.ExtranetAlias)
		rvc := NormalizeName(m.RegistryAlias)
		r.add(ext, code)
		if rvc != ext {
			r.add(rvc, code)
		}
	}
	return r
}

func (r *Resolver) add(key, code string) {
	if key == "" {
		return
	}
	if _, ok := r.codes[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.codes[key] = code
}

// Len returns the number of dictionary entries.
func (r *Resolver) Len() int { return len(r.keys) }

// Resolve finds the producer code for name in zone.
//
// Substring matching has no minimum length: a short alias such as "SA" claims
// any longer name containing it. The first entry in dictionary order wins.
func (r *Resolver) Resolve(name, zone string) Result {
	r.stats.Total++
	key := NormalizeName(name)

	if key == codorniuName {
		r.stats.Special++
		z := NormalizeName(zone)
		if code, ok := codorniuZones[z]; ok {
			r.log.Debug("resolve: special case", zap.String("name", key), zap.String("zone", z), zap.String("code", code))
			return Result{Code: code, Kind: KindSpecial}
		}
		r.stats.Unresolved++
		r.log.Warn("resolve: unknown zone for special case", zap.String("name", key), zap.String("zone", z))
		return Result{Kind: KindNone}
	}

	if key == "" {
		r.stats.Unresolved++
		return Result{Kind: KindNone}
	}

	if code, ok := r.codes[key]; ok {
		r.stats.Exact++
		return Result{Code: code, Kind: KindExact, Alias: key}
	}

	for _, k := range r.keys {
		if strings.Contains(k, key) || strings.Contains(key, k) {
			r.stats.Partial++
			r.log.Debug("resolve: partial match", zap.String("name", key), zap.String("alias", k), zap.String("code", r.codes[k]))
			return Result{Code: r.codes[k], Kind: KindPartial, Alias: k}
		}
	}

	r.stats.Unresolved++
	if r.stats.Unresolved <= 5 {
		r.log.Info("resolve: no match", zap.String("name", key), zap.String("zone", NormalizeName(zone)))
	}
	return Result{Kind: KindNone}
}

// Stats returns the counters accumulated so far.
func (r *Resolver) Stats() Stats { return r.stats }
