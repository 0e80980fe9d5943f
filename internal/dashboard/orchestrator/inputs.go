package orchestrator

import (
	"fmt"
	"strings"

	"github.com/focosview/focosview/pkg/errors"
	"github.com/focosview/focosview/pkg/types/focos"
)

// MsgRangeRequired is shown when the date inputs are incomplete.
const MsgRangeRequired = "Defina um range de datas valido."

// NormalizeRange repairs an inverted or empty range so that To is exclusive
// and after From: To becomes From+1 day. The notice is empty when nothing
// changed. Incomplete ranges pass through untouched.
func NormalizeRange(r focos.DateRange) (focos.DateRange, string) {
	if !r.IsComplete() || r.To.After(r.From) {
		return r, ""
	}
	fixed := focos.DateRange{From: r.From, To: r.From.AddDays(1)}
	return fixed, fmt.Sprintf("Data final ajustada para %s (intervalo exclusivo).", fixed.To)
}

// ParseDateInputs parses the two date text inputs (YYYY-MM-DD) and repairs
// their order. Blank inputs give an incomplete range.
func ParseDateInputs(fromText, toText string) (focos.DateRange, string, error) {
	var r focos.DateRange
	var err error
	if r.From, err = parseInput("from", fromText); err != nil {
		return focos.DateRange{}, "", err
	}
	if r.To, err = parseInput("to", toText); err != nil {
		return focos.DateRange{}, "", err
	}
	r, notice := NormalizeRange(r)
	return r, notice, nil
}

func parseInput(field, text string) (focos.Date, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return focos.Date{}, nil
	}
	d, err := focos.ParseDate(text)
	if err != nil {
		return focos.Date{}, errors.Newf(errors.ErrCodeInvalidInput, "data invalida %q, use AAAA-MM-DD", text).
			WithDetail("field=" + field).
			WithCause(err)
	}
	return d, nil
}
