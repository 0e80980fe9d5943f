package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/focosview/focosview/internal/dashboard/labels"
	"github.com/focosview/focosview/internal/dashboard/lifecycle"
	"github.com/focosview/focosview/internal/dashboard/orchestrator"
	"github.com/focosview/focosview/internal/dashboard/reconciler"
	"github.com/focosview/focosview/internal/dashboard/session"
	"github.com/focosview/focosview/internal/dashboard/status"
	"github.com/focosview/focosview/internal/dashboard/validator"
	"github.com/focosview/focosview/internal/infrastructure/archive"
	"github.com/focosview/focosview/internal/infrastructure/monitoring/logging"
	"github.com/focosview/focosview/pkg/types/focos"
)

type snapshotOptions struct {
	from, to string
	filters  focos.Filters
	munLayer bool
}

// NewSnapshotCmd runs one refresh and prints what the dashboard would show.
func NewSnapshotCmd() *cobra.Command {
	opts := &snapshotOptions{}
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Refresh once for the given filters and print KPIs, rankings and status",
		Example: "  focosview snapshot --from 2024-08-01 --to 2024-09-01 --uf MT\n" +
			"  focosview snapshot --mun 5103403 --mun-layer -o json",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.from, "from", "", "first day (YYYY-MM-DD); default last 30 days")
	f.StringVar(&opts.to, "to", "", "day after the last day (YYYY-MM-DD)")
	f.StringVar(&opts.filters.UF, "uf", "", "state filter")
	f.StringVar(&opts.filters.Bioma, "bioma", "", "biome filter")
	f.StringVar(&opts.filters.Mun, "mun", "", "municipality (IBGE code); implies its state")
	f.StringVar(&opts.filters.UC, "uc", "", "conservation unit filter")
	f.StringVar(&opts.filters.TI, "ti", "", "indigenous land filter")
	f.BoolVar(&opts.munLayer, "mun-layer", false, "include the municipal choropleth")
	return cmd
}

func runSnapshot(cmd *cobra.Command, opts *snapshotOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	r, _, err := orchestrator.ParseDateInputs(opts.from, opts.to)
	if err != nil {
		return err
	}

	api, err := newAPIClient(cliCtx)
	if err != nil {
		return err
	}

	cfg := session.Config{
		Client:            api,
		Logger:            cliCtx.Logger,
		TopLimit:          cliCtx.Config.Dashboard.TopLimit,
		MunTopLimitWithUF: cliCtx.Config.Dashboard.MunTopLimitWithUF,
	}
	if cliCtx.Config.Archive.Enabled {
		arch, err := archive.Open(ctx, archive.Config{
			Path:   cliCtx.Config.Archive.Path,
			Source: "snapshot",
			Logger: cliCtx.Logger.Named("archive"),
		})
		if err != nil {
			return err
		}
		defer arch.Close()
		cfg.Archive = arch
	}

	sess, err := session.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.Apply(ctx, session.Preset{Range: r, Filters: opts.filters, MunicipalLayer: opts.munLayer}); err != nil {
		return err
	}
	outcome := sess.Refresh(ctx)
	cliCtx.Logger.Debug("snapshot refreshed", logging.String("outcome", string(outcome)))

	report := newSnapshotReport(sess, outcome)
	if err := PrintResult(cmd, report); err != nil {
		return err
	}
	if outcome == lifecycle.OutcomeFailed {
		return fmt.Errorf("refresh failed: %s", report.Status.Line)
	}
	return nil
}

// SnapshotReport is the printable result of one refresh.
type SnapshotReport struct {
	Session      string                                  `json:"session"`
	Outcome      lifecycle.Outcome                       `json:"outcome"`
	Range        focos.DateRange                         `json:"range"`
	Filters      focos.Filters                           `json:"filters"`
	KPIs         reconciler.KPIs                         `json:"kpis"`
	Total        int64                                   `json:"total"`
	Validation   validator.Result                        `json:"validation"`
	Top          map[focos.Dimension]reconciler.TopTable `json:"top"`
	MunGuardrail string                                  `json:"mun_guardrail,omitempty"`
	Status       status.Snapshot                         `json:"status"`
}

func newSnapshotReport(sess *session.Session, outcome lifecycle.Outcome) SnapshotReport {
	doc := sess.View()
	st := sess.State()
	return SnapshotReport{
		Session:      sess.ID(),
		Outcome:      outcome,
		Range:        st.Range,
		Filters:      st.Filters,
		KPIs:         doc.Tables.KPIs,
		Total:        doc.Tables.Total,
		Validation:   sess.LastResult(),
		Top:          doc.Tables.Top,
		MunGuardrail: doc.Tables.MunGuardrail,
		Status:       doc.Status,
	}
}

// rankingOrder is the order rankings are printed in.
var rankingOrder = []focos.Dimension{focos.DimUF, focos.DimBioma, focos.DimMun, focos.DimUC, focos.DimTI}

// String renders the report as text.
func (r SnapshotReport) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Periodo:  %s a %s\n", r.Range.From, r.Range.To)
	if p := r.Filters.Params(); len(p) > 0 {
		parts := make([]string, 0, len(p))
		for _, dim := range rankingOrder {
			if v := r.Filters.Get(dim); v != "" {
				parts = append(parts, string(dim)+"="+v)
			}
		}
		fmt.Fprintf(&sb, "Filtros:  %s\n", strings.Join(parts, " "))
	}
	fmt.Fprintf(&sb, "Total:    %s\n", r.KPIs.Total)
	fmt.Fprintf(&sb, "Media:    %s por dia (%s dias)\n", r.KPIs.MeanPerDay, r.KPIs.Days)
	fmt.Fprintf(&sb, "Pico:     %s\n", r.KPIs.Peak)
	fmt.Fprintf(&sb, "Status:   %s\n", r.Status.Line)
	for _, dim := range rankingOrder {
		t, ok := r.Top[dim]
		if !ok || len(t.Rows) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\nTop %s\n", strings.ToUpper(string(dim)))
		for i, row := range t.Rows {
			fmt.Fprintf(&sb, "  %2d. %-40s %s\n", i+1, row.Label, labels.FormatInt(row.NFocos))
		}
		if t.Note != "" {
			fmt.Fprintf(&sb, "  %s\n", t.Note)
		}
	}
	return sb.String()
}

// TableHeaders implements the table output.
func (r SnapshotReport) TableHeaders() []string {
	return []string{"RANKING", "#", "LABEL", "FOCOS"}
}

// TableRows implements the table output.
func (r SnapshotReport) TableRows() [][]string {
	var rows [][]string
	for _, dim := range rankingOrder {
		for i, row := range r.Top[dim].Rows {
			rows = append(rows, []string{string(dim), strconv.Itoa(i + 1), row.Label, labels.FormatInt(row.NFocos)})
		}
	}
	return rows
}
