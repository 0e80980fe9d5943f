// Package validator cross-checks the totals of an aggregate bundle before
// the view is declared good.
package validator

import (
	"fmt"

	"github.com/focosview/focosview/internal/dashboard/bundle"
)

// Check names the cross-check that failed.
type Check string

const (
	CheckNone       Check = ""
	CheckTimeseries Check = "timeseries"
	CheckMap        Check = "map"
	CheckServer     Check = "server"
)

// Result is the outcome of Validate. Left and Right are the two numbers
// that disagree; both are zero for the server check.
type Result struct {
	Check   Check  `json:"check,omitempty"`
	Left    int64  `json:"left"`
	Right   int64  `json:"right"`
	Message string `json:"message,omitempty"`

	Total         int64 `json:"total"`
	TimeseriesSum int64 `json:"timeseries_sum"`
	MapUFSum      int64 `json:"map_uf_sum"`
}

// OK reports whether every check passed.
func (r Result) OK() bool { return r.Check == CheckNone }

// Validate compares the grand total T with the time-series sum S and the
// UF choropleth sum M, then consults the server verdict. Equality is exact.
// A missing server verdict is not a failure.
func Validate(b *bundle.Aggregate) Result {
	r := Result{Total: b.Total()}
	if b == nil {
		return r
	}
	r.TimeseriesSum = b.Timeseries.Sum()
	r.MapUFSum = b.UF.SumNFocos()

	switch {
	case r.Total != r.TimeseriesSum:
		r.Check, r.Left, r.Right = CheckTimeseries, r.Total, r.TimeseriesSum
		r.Message = fmt.Sprintf("Inconsistencia: totals(%d) != tsSum(%d)", r.Total, r.TimeseriesSum)
	case r.Total != r.MapUFSum:
		r.Check, r.Left, r.Right = CheckMap, r.Total, r.MapUFSum
		r.Message = fmt.Sprintf("Inconsistencia: totals(%d) != mapUfSum(%d)", r.Total, r.MapUFSum)
	case b.Validation != nil && !b.Validation.Consistent:
		r.Check = CheckServer
		r.Message = "Inconsistencia em /api/validate"
	}
	return r
}
