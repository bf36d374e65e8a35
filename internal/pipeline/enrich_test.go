package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vitis-cat/reconcile-cli/internal/model"
)

func TestFilterZones(t *testing.T) {
	decls := []model.Declaration{
		{Index: 0, Zone: "PENEDÈS"},
		{Index: 1, Zone: "Requena"},
		{Index: 2, Zone: "requena"},
		{Index: 3, Zone: "Cariñena"},
	}
	kept, excluded := FilterZones(decls, []string{"Almendralejo", "Cariñena", "Requena"})
	assert.Equal(t, 2, excluded)
	assert.Equal(t, []model.Declaration{{Index: 0, Zone: "PENEDÈS"}, {Index: 2, Zone: "requena"}}, kept)

	kept, excluded = FilterZones(decls, nil)
	assert.Zero(t, excluded)
	assert.Len(t, kept, 4)
}

func TestDistribution_UnresolvedLast(t *testing.T) {
	decls := []model.Declaration{
		{ProducerCode: "9"}, {ProducerCode: ""}, {ProducerCode: "1"}, {ProducerCode: "9"}, {ProducerCode: ""},
	}
	assert.Equal(t, []CodeCount{{Code: "1", Rows: 1}, {Code: "9", Rows: 2}, {Code: "", Rows: 2}}, Distribution(decls))
	assert.Empty(t, Distribution(nil))
}

func TestCodes(t *testing.T) {
	codes := Codes([]model.Declaration{{ProducerCode: "1"}, {ProducerCode: ""}, {ProducerCode: "1"}, {ProducerCode: "2"}})
	assert.Equal(t, map[string]struct{}{"1": {}, "2": {}}, codes)
}

func TestFilterRegistry(t *testing.T) {
	recs := []model.RegistryRecord{
		{Row: 2, Status: "CV", ProducerCode: "1"},
		{Row: 3, Status: "cv", ProducerCode: "1"},
		{Row: 4, Status: "CV", ProducerCode: "3"},
		{Row: 5, Status: "CV", ProducerCode: "2"},
	}
	got := FilterRegistry(recs, "CV", map[string]struct{}{"1": {}, "2": {}})
	rows := make([]int, 0, len(got))
	for _, r := range got {
		rows = append(rows, r.Row)
	}
	assert.Equal(t, []int{2, 5}, rows)
}
