package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/focosview/focosview/internal/dashboard/labels"
	"github.com/focosview/focosview/pkg/client"
	"github.com/focosview/focosview/pkg/errors"
	"github.com/focosview/focosview/pkg/types/focos"
)

type pointsOptions struct {
	date    string
	bbox    string
	limit   int
	filters focos.Filters
}

// NewPointsCmd fetches the detections of one day inside a bounding box.
func NewPointsCmd() *cobra.Command {
	opts := &pointsOptions{}
	cmd := &cobra.Command{
		Use:     "points",
		Short:   "Fetch the detection points of one day inside a bounding box",
		Example: "  focosview points --date 2024-08-20 --bbox -61.6,-18.1,-50.2,-7.3 --uf MT -o table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPoints(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.date, "date", "", "day to show (YYYY-MM-DD)")
	f.StringVar(&opts.bbox, "bbox", "", "minLon,minLat,maxLon,maxLat")
	f.IntVar(&opts.limit, "limit", 0, "maximum points (default from config)")
	f.StringVar(&opts.filters.UF, "uf", "", "state filter")
	f.StringVar(&opts.filters.Bioma, "bioma", "", "biome filter")
	f.StringVar(&opts.filters.Mun, "mun", "", "municipality filter")
	f.StringVar(&opts.filters.UC, "uc", "", "conservation unit filter")
	f.StringVar(&opts.filters.TI, "ti", "", "indigenous land filter")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("bbox")
	return cmd
}

func runPoints(cmd *cobra.Command, opts *pointsOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	day, err := focos.ParseDate(opts.date)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid --date").WithDetail("date=" + opts.date)
	}
	box, err := focos.ParseBBox(opts.bbox)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidBBox, "invalid --bbox").WithDetail("bbox=" + opts.bbox)
	}
	limit := opts.limit
	if limit <= 0 {
		limit = cliCtx.Config.API.PointsLimit
	}

	api, err := newAPIClient(cliCtx)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	resp, err := api.Geo().Points(ctx, client.PointsRequest{Date: day, BBox: box, Filters: opts.filters, Limit: limit})
	if err != nil {
		return err
	}
	return PrintResult(cmd, PointsReport{Points: *resp})
}

// PointsReport is the printable result of a points fetch.
type PointsReport struct {
	focos.Points
}

// String renders the meta line and one line per point.
func (r PointsReport) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Dia %s: %s pontos", r.Date, labels.FormatInt(int64(r.Returned)))
	if r.Truncated {
		fmt.Fprintf(&sb, " (limitado a %s)", labels.FormatInt(int64(r.Limit)))
	}
	sb.WriteString("\n")
	for _, p := range r.Points.Points {
		fmt.Fprintf(&sb, "  %9.4f %8.4f  n=%d  %s %s\n", p.Lon, p.Lat, p.N, p.UF, p.MunLabel)
	}
	return sb.String()
}

// TableHeaders implements the table output.
func (r PointsReport) TableHeaders() []string {
	return []string{"LON", "LAT", "N", "UF", "MUNICIPIO", "BIOMA"}
}

// TableRows implements the table output.
func (r PointsReport) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Points.Points))
	for _, p := range r.Points.Points {
		rows = append(rows, []string{
			strconv.FormatFloat(p.Lon, 'f', 4, 64),
			strconv.FormatFloat(p.Lat, 'f', 4, 64),
			strconv.Itoa(p.N),
			p.UF,
			p.MunLabel,
			p.BiomaLabel,
		})
	}
	return rows
}
