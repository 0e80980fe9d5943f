package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/focosview/focosview/internal/dashboard/labels"
	"github.com/focosview/focosview/internal/infrastructure/archive"
)

type historyOptions struct {
	limit        int
	inconsistent bool
	since        time.Duration
}

// NewHistoryCmd lists archived consistency checks.
func NewHistoryCmd() *cobra.Command {
	opts := &historyOptions{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived consistency checks, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.limit, "limit", 20, "maximum rows")
	f.BoolVar(&opts.inconsistent, "inconsistent", false, "only checks that failed")
	f.DurationVar(&opts.since, "since", 0, "only checks newer than this (e.g. 24h)")
	return cmd
}

func runHistory(cmd *cobra.Command, opts *historyOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	arch, err := archive.Open(ctx, archive.Config{
		Path:   cliCtx.Config.Archive.Path,
		Logger: cliCtx.Logger.Named("archive"),
	})
	if err != nil {
		return err
	}
	defer arch.Close()

	lo := archive.ListOptions{Limit: opts.limit, OnlyInconsistent: opts.inconsistent}
	if opts.since > 0 {
		lo.Since = time.Now().Add(-opts.since)
	}
	entries, err := arch.List(ctx, lo)
	if err != nil {
		return err
	}
	return PrintResult(cmd, HistoryReport(entries))
}

// HistoryReport is the printable list of archived checks.
type HistoryReport []archive.Entry

// String renders one line per check.
func (h HistoryReport) String() string {
	if len(h) == 0 {
		return "Nenhuma verificacao arquivada.\n"
	}
	var sb strings.Builder
	for _, e := range h {
		verdict := "ok"
		if !e.Consistent() {
			verdict = string(e.Check)
		}
		fmt.Fprintf(&sb, "%s  %s  %s..%s  total=%s  %s\n",
			e.RecordedAt.Format(time.RFC3339), e.Source, e.Range.From, e.Range.To,
			labels.FormatInt(e.Total), verdict)
	}
	return sb.String()
}

// TableHeaders implements the table output.
func (h HistoryReport) TableHeaders() []string {
	return []string{"ID", "RECORDED", "SOURCE", "FROM", "TO", "TOTAL", "SERIES", "MAP_UF", "CHECK"}
}

// TableRows implements the table output.
func (h HistoryReport) TableRows() [][]string {
	rows := make([][]string, 0, len(h))
	for _, e := range h {
		check := "ok"
		if !e.Consistent() {
			check = string(e.Check)
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.RecordedAt.Format(time.RFC3339),
			e.Source,
			e.Range.From.String(),
			e.Range.To.String(),
			strconv.FormatInt(e.Total, 10),
			strconv.FormatInt(e.TimeseriesSum, 10),
			strconv.FormatInt(e.MapUFSum, 10),
			check,
		})
	}
	return rows
}
