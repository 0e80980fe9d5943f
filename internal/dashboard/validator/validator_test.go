package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/focosview/focosview/internal/dashboard/bundle"
	"github.com/focosview/focosview/pkg/types/focos"
)

func aggregate(total int64, series []int64, ufs []int64, verdict *focos.Validation) *bundle.Aggregate {
	ts := &focos.Timeseries{Granularity: "day"}
	day := focos.MustDate("2024-08-01")
	for i, n := range series {
		ts.Items = append(ts.Items, focos.TimeseriesItem{Day: day.AddDays(i), NFocos: n})
	}
	uf := &focos.Choropleth{}
	for _, n := range ufs {
		uf.GeoJSON.Features = append(uf.GeoJSON.Features, focos.Feature{
			Type:       "Feature",
			Properties: focos.FeatureProperties{NFocos: n},
		})
	}
	return &bundle.Aggregate{
		Totals:     &focos.Totals{NFocos: total},
		Timeseries: ts,
		UF:         uf,
		Validation: verdict,
	}
}

func TestValidate_Consistent(t *testing.T) {
	r := Validate(aggregate(10, []int64{4, 6}, []int64{7, 3}, &focos.Validation{Consistent: true}))
	assert.True(t, r.OK())
	assert.Empty(t, r.Message)
	assert.Equal(t, int64(10), r.Total)
	assert.Equal(t, int64(10), r.TimeseriesSum)
	assert.Equal(t, int64(10), r.MapUFSum)
}

func TestValidate_MissingVerdictIsNotFailure(t *testing.T) {
	assert.True(t, Validate(aggregate(5, []int64{5}, []int64{5}, nil)).OK())
}

func TestValidate_Priority(t *testing.T) {
	tests := []struct {
		name    string
		b       *bundle.Aggregate
		check   Check
		message string
	}{
		{
			name:    "timeseries first",
			b:       aggregate(10, []int64{9}, []int64{8}, &focos.Validation{Consistent: false}),
			check:   CheckTimeseries,
			message: "Inconsistencia: totals(10) != tsSum(9)",
		},
		{
			name:    "map second",
			b:       aggregate(10, []int64{10}, []int64{8}, &focos.Validation{Consistent: false}),
			check:   CheckMap,
			message: "Inconsistencia: totals(10) != mapUfSum(8)",
		},
		{
			name:    "server last",
			b:       aggregate(10, []int64{10}, []int64{10}, &focos.Validation{Consistent: false}),
			check:   CheckServer,
			message: "Inconsistencia em /api/validate",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Validate(tt.b)
			assert.False(t, r.OK())
			assert.Equal(t, tt.check, r.Check)
			assert.Equal(t, tt.message, r.Message)
		})
	}
}

func TestValidate_ExactEquality(t *testing.T) {
	r := Validate(aggregate(1000000, []int64{999999}, []int64{1000000}, nil))
	assert.Equal(t, CheckTimeseries, r.Check)
	assert.Equal(t, int64(1000000), r.Left)
	assert.Equal(t, int64(999999), r.Right)
}

// Reconciliation property: a bundle passes iff T == S == M and the server
// does not disagree.
func TestValidate_ReconciliationProperty(t *testing.T) {
	for total := int64(0); total < 4; total++ {
		for s := int64(0); s < 4; s++ {
			for m := int64(0); m < 4; m++ {
				for _, consistent := range []bool{true, false} {
					r := Validate(aggregate(total, []int64{s}, []int64{m}, &focos.Validation{Consistent: consistent}))
					want := total == s && total == m && consistent
					assert.Equal(t, want, r.OK(), "T=%d S=%d M=%d server=%v", total, s, m, consistent)
				}
			}
		}
	}
}

func TestValidate_Nil(t *testing.T) {
	assert.True(t, Validate(nil).OK())
}
