package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoard_ReadyByDefault(t *testing.T) {
	b := NewBoard()
	s := b.Snapshot()
	assert.Equal(t, "", s.Line)
	assert.Equal(t, LevelReady, s.Level)
}

func TestBoard_Priority(t *testing.T) {
	b := NewBoard()
	b.SetNotice("Data final ajustada para 2024-08-02.")
	assert.Equal(t, "Data final ajustada para 2024-08-02.", b.Line())

	b.SetPoints("Pontos indisponiveis: http 500")
	assert.Equal(t, "Pontos indisponiveis: http 500", b.Line())

	b.SetMain(MainReport{Overlay: "Destaque TI indisponivel: http 404"})
	assert.Equal(t, "Destaque TI indisponivel: http 404", b.Line())

	b.SetMain(MainReport{
		Municipal: "Camada municipal indisponivel: http 502",
		Overlay:   "Destaque TI indisponivel: http 404",
	})
	assert.Equal(t, "Camada municipal indisponivel: http 502", b.Line())

	b.SetMain(MainReport{
		Consistency: "Inconsistencia: totals(10) != tsSum(9)",
		Municipal:   "Camada municipal indisponivel: http 502",
	})
	s := b.Snapshot()
	assert.Equal(t, "Inconsistencia: totals(10) != tsSum(9)", s.Line)
	assert.Equal(t, LevelCritical, s.Level)
	assert.Equal(t, "Pontos indisponiveis: http 500", s.Points)
}

func TestBoard_FailureClearedByNextCommit(t *testing.T) {
	b := NewBoard()
	b.SetMain(MainReport{Municipal: "Camada municipal indisponivel: boom"})
	b.SetFailure("http 500 summary down")
	assert.Equal(t, LevelError, b.Snapshot().Level)
	assert.Equal(t, "http 500 summary down", b.Line())

	b.SetMain(MainReport{})
	assert.Equal(t, "", b.Line())
}

func TestBoard_ClearSlots(t *testing.T) {
	b := NewBoard()
	b.SetPoints("Pontos indisponiveis: x")
	b.SetNotice("n")
	b.SetPoints("")
	assert.Equal(t, "n", b.Line())
	b.SetNotice("")
	assert.Equal(t, LevelReady, b.Snapshot().Level)
}
