package state

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focosview/focosview/pkg/types/focos"
)

var today = focos.MustDate("2024-08-15")

func checkInvariants(t *testing.T, st FilterState) {
	t.Helper()
	if st.Filters.Mun != "" {
		require.NotEmpty(t, st.Filters.UF, "mun without uf: %+v", st.Filters)
	}
	if st.UI.ShowMunicipalLayer {
		require.NotEmpty(t, st.Filters.UF, "municipal layer without uf")
	}
	require.False(t, st.Filters.UC != "" && st.Filters.TI != "", "uc and ti both set: %+v", st.Filters)
	for dim := range st.Labels {
		require.NotEmpty(t, st.Filters.Get(dim), "label cached for unset %s", dim)
	}
}

func TestNew_DefaultRange(t *testing.T) {
	s := New(today)
	st := s.Snapshot()
	assert.Equal(t, "2024-07-17", st.Range.From.String())
	assert.Equal(t, "2024-08-16", st.Range.To.String())
	assert.True(t, st.Filters.IsEmpty())
	assert.Equal(t, PointsDatePeak, st.UI.PointsDateMode)
}

func TestPatchFilters(t *testing.T) {
	s := New(today)
	st := s.PatchFilters(Patch{focos.DimUF: " mt ", focos.DimMun: "5103403"})
	assert.Equal(t, "MT", st.Filters.UF)
	assert.Equal(t, "5103403", st.Filters.Mun)

	st = s.PatchFilters(Patch{focos.DimUF: ""})
	assert.Empty(t, st.Filters.UF)
	assert.Empty(t, st.Filters.Mun, "mun must follow uf out")

	st = s.PatchFilters(Patch{focos.DimMun: "5103403"})
	assert.Empty(t, st.Filters.Mun, "mun without uf is repaired away")
}

func TestPatchFilters_UCAndTIKeepsTI(t *testing.T) {
	s := New(today)
	st := s.PatchFilters(Patch{focos.DimUC: "uc-1", focos.DimTI: "ti-9"})
	assert.Empty(t, st.Filters.UC)
	assert.Equal(t, "ti-9", st.Filters.TI)
}

func TestPatchFilters_UFChangeClearsMun(t *testing.T) {
	s := New(today)
	s.PatchFilters(Patch{focos.DimUF: "MT", focos.DimMun: "5103403"})
	s.SetLabel(focos.DimMun, "Cuiabá")

	st := s.PatchFilters(Patch{focos.DimUF: "mt", focos.DimBioma: "cerrado"})
	assert.Equal(t, "5103403", st.Filters.Mun, "same uf keeps mun")

	st = s.PatchFilters(Patch{focos.DimUF: "SP"})
	assert.Equal(t, "SP", st.Filters.UF)
	assert.Empty(t, st.Filters.Mun)
	assert.Empty(t, st.Label(focos.DimMun))

	st = s.PatchFilters(Patch{focos.DimUF: "PA", focos.DimMun: "1507300"})
	assert.Equal(t, "PA", st.Filters.UF)
	assert.Equal(t, "1507300", st.Filters.Mun, "a patch naming mun sets it with the new uf")
}

func TestPatchFilters_SettingOneOverlayClearsTheOther(t *testing.T) {
	s := New(today)
	s.PatchFilters(Patch{focos.DimTI: "ti-9"})

	st := s.PatchFilters(Patch{focos.DimUC: "uc-1"})
	assert.Equal(t, "uc-1", st.Filters.UC)
	assert.Empty(t, st.Filters.TI)

	st = s.PatchFilters(Patch{focos.DimTI: "ti-3"})
	assert.Equal(t, "ti-3", st.Filters.TI)
	assert.Empty(t, st.Filters.UC)

	st = s.PatchFilters(Patch{focos.DimUC: ""})
	assert.Equal(t, "ti-3", st.Filters.TI, "clearing uc leaves ti alone")
}

func TestToggleFilter(t *testing.T) {
	s := New(today)
	assert.Equal(t, "cerrado", s.ToggleFilter(focos.DimBioma, "cerrado"))
	assert.Equal(t, "", s.ToggleFilter(focos.DimBioma, " cerrado "), "reselect deselects")

	s.ToggleFilter(focos.DimUC, "uc-1")
	s.ToggleFilter(focos.DimTI, "ti-9")
	st := s.Snapshot()
	assert.Empty(t, st.Filters.UC)
	assert.Equal(t, "ti-9", st.Filters.TI)

	s.ToggleFilter(focos.DimUC, "uc-2")
	st = s.Snapshot()
	assert.Equal(t, "uc-2", st.Filters.UC)
	assert.Empty(t, st.Filters.TI)

	assert.Equal(t, "", s.ToggleFilter(focos.Dimension("pais"), "BR"))
}

func TestToggleFilter_UFChangeClearsMun(t *testing.T) {
	s := New(today)
	s.PatchFilters(Patch{focos.DimUF: "MT", focos.DimMun: "5103403"})
	s.SetMunicipalLayer(true)

	s.ToggleFilter(focos.DimUF, "PA")
	st := s.Snapshot()
	assert.Equal(t, "PA", st.Filters.UF)
	assert.Empty(t, st.Filters.Mun)
	assert.True(t, st.UI.ShowMunicipalLayer)

	s.ToggleFilter(focos.DimUF, "pa")
	st = s.Snapshot()
	assert.Empty(t, st.Filters.UF)
	assert.False(t, st.UI.ShowMunicipalLayer)
}

func TestSetMunicipalLayer_RequiresUF(t *testing.T) {
	s := New(today)
	assert.False(t, s.SetMunicipalLayer(true))
	s.PatchFilters(Patch{focos.DimUF: "MT"})
	assert.True(t, s.SetMunicipalLayer(true))
}

func TestLabels(t *testing.T) {
	s := New(today)
	s.SetLabel(focos.DimMun, "Cuiaba")
	assert.Empty(t, s.Snapshot().Labels, "label without selection is dropped")

	s.PatchFilters(Patch{focos.DimUF: "MT", focos.DimMun: "5103403"})
	s.SetLabel(focos.DimMun, "CUIABA")
	assert.Equal(t, "CUIABA", s.DisplayLabel(focos.DimMun))
	assert.Equal(t, "MT", s.DisplayLabel(focos.DimUF))
	assert.Equal(t, "Todas", s.DisplayLabel(focos.DimTI))

	s.PatchFilters(Patch{focos.DimMun: "5108402"})
	assert.Equal(t, "5108402", s.DisplayLabel(focos.DimMun), "changed key drops the stale label")

	s.SetLabel(focos.DimMun, "varzea grande")
	assert.Equal(t, "Varzea Grande", s.DisplayLabel(focos.DimMun))
	s.ClearLabel(focos.DimMun)
	assert.Equal(t, "5108402", s.DisplayLabel(focos.DimMun))
}

func TestChips(t *testing.T) {
	s := New(today)
	assert.Empty(t, Chips(s.Snapshot()))

	s.PatchFilters(Patch{focos.DimTI: "ti-9", focos.DimUF: "mt", focos.DimBioma: "amazonia"})
	s.SetLabel(focos.DimTI, "terra indigena do xingu")
	chips := Chips(s.Snapshot())
	require.Len(t, chips, 3)
	assert.Equal(t, Chip{Dimension: focos.DimUF, Key: "MT", Label: "MT"}, chips[0])
	assert.Equal(t, focos.DimBioma, chips[1].Dimension)
	assert.Equal(t, "Terra Indigena do Xingu", chips[2].Label)
}

func TestMunicipalLayerHint(t *testing.T) {
	s := New(today)
	assert.Equal(t, "Para municipios, selecione uma UF.", MunicipalLayerHint(s.Snapshot()))
	s.PatchFilters(Patch{focos.DimUF: "MT"})
	assert.Equal(t, "Ative a camada municipal para navegar por municipios.", MunicipalLayerHint(s.Snapshot()))
	s.SetMunicipalLayer(true)
	assert.Equal(t, "Camada municipal ativa para a UF selecionada.", MunicipalLayerHint(s.Snapshot()))
}

func TestSetDateRangeDoesNotReorder(t *testing.T) {
	s := New(today)
	r := focos.DateRange{From: focos.MustDate("2024-08-10"), To: focos.MustDate("2024-08-01")}
	s.SetDateRange(r)
	assert.Equal(t, r, s.Snapshot().Range)

	assert.Equal(t, "2024-08-16", s.ResetRange(today).To.String())
}

func TestPointsDateMode(t *testing.T) {
	s := New(today)
	s.SetPointsDateMode(PointsDateCustom, focos.MustDate("2024-08-03"))
	assert.Equal(t, "2024-08-03", s.Snapshot().UI.PointsDateCustom.String())
	s.SetPointsDateMode(PointsDateFrom, focos.MustDate("2024-08-03"))
	assert.True(t, s.Snapshot().UI.PointsDateCustom.IsZero())

	assert.Equal(t, PointsDateFrom, ParsePointsDateMode("from"))
	assert.Equal(t, PointsDateCustom, ParsePointsDateMode("custom"))
	assert.Equal(t, PointsDatePeak, ParsePointsDateMode("whatever"))
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New(today)
	s.PatchFilters(Patch{focos.DimUF: "MT"})
	s.SetLabel(focos.DimUF, "Mato Grosso")
	snap := s.Snapshot()
	snap.Labels[focos.DimUF] = "mutated"
	snap.Filters.UF = "XX"
	assert.Equal(t, "MT", s.Snapshot().Filters.UF)
	assert.Equal(t, "Mato Grosso", s.Snapshot().Labels[focos.DimUF])
}

// Any sequence of store operations leaves the invariants intact.
func TestInvariantClosure(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	keys := []string{"", "MT", "PA", "5103403", "uc-1", "ti-9", "cerrado", " "}
	s := New(today)

	for i := 0; i < 5000; i++ {
		dim := focos.Dimensions[rng.Intn(len(focos.Dimensions))]
		key := keys[rng.Intn(len(keys))]
		switch rng.Intn(7) {
		case 0:
			s.ToggleFilter(dim, key)
		case 1:
			p := Patch{}
			for j := 0; j < 1+rng.Intn(4); j++ {
				p[focos.Dimensions[rng.Intn(len(focos.Dimensions))]] = keys[rng.Intn(len(keys))]
			}
			s.PatchFilters(p)
		case 2:
			s.SetMunicipalLayer(rng.Intn(2) == 0)
		case 3:
			s.SetLabel(dim, "label "+key)
		case 4:
			s.ClearDimensionFilters()
		case 5:
			s.SetShowPoints(rng.Intn(2) == 0)
		case 6:
			s.ClearLabel(dim)
		}
		checkInvariants(t, s.Snapshot())
	}
}
