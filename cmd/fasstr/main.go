package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/MonkmanMH/fasstr/internal/format"
	"github.com/MonkmanMH/fasstr/internal/freq"
	"github.com/MonkmanMH/fasstr/internal/hydromet"
	"github.com/MonkmanMH/fasstr/internal/models"
	"github.com/MonkmanMH/fasstr/internal/screen"
	"github.com/MonkmanMH/fasstr/internal/stats"
	"github.com/MonkmanMH/fasstr/internal/store"
	"github.com/MonkmanMH/fasstr/internal/timeseries"
)

type Globals struct {
	DB     string `help:"Path to SQLite database." default:"data/fasstr.db" env:"FASSTR_DB"`
	Output string `help:"Write result CSV to this file instead of stdout." short:"o"`
}

type CLI struct {
	Globals

	Stations   StationsCmd   `cmd:"" help:"List stations in the database."`
	Load       LoadCmd       `cmd:"" help:"Load daily flows from a CSV file."`
	Fetch      FetchCmd      `cmd:"" help:"Fetch daily flows from a hydrometric web service or FTP archive."`
	Screen     ScreenCmd     `cmd:"" help:"Screen daily flows for missing or suspect data."`
	Stats      StatsCmd      `cmd:"" help:"Compute daily, monthly, annual or long-term statistics."`
	Cumulative CumulativeCmd `cmd:"" help:"Compute running daily volume and yield totals."`
	Frequency  FrequencyCmd  `cmd:"" help:"Run a low-flow or high-flow frequency analysis."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("fasstr"),
		kong.Description("Streamflow analysis and summary statistics."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
		kong.UsageOnError(),
	)
	if err := ctx.Run(&cli.Globals); err != nil {
		log.Fatal(err)
	}
}

func openStore(path string) (*store.Store, *sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return st, db, nil
}

func writeTable(g *Globals, t format.Table) error {
	out := os.Stdout
	if g.Output != "" {
		f, err := os.Create(g.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return format.WriteCSV(out, t)
}

func logWarnings(warnings []models.Warning) {
	for _, w := range warnings {
		log.Printf("warning: %s: %s", w.StationID, w.Message)
	}
}

func loadSeries(st *store.Store, stations []string, waterYearStart int) ([]timeseries.Day, error) {
	var flows []models.DailyFlow
	for _, id := range stations {
		f, err := st.GetDailyFlows(id, time.Time{}, time.Time{})
		if err != nil {
			return nil, fmt.Errorf("load flows for %s: %w", id, err)
		}
		if len(f) == 0 {
			log.Printf("no daily flows stored for %s", id)
		}
		flows = append(flows, f...)
	}
	return timeseries.Normalize(flows, time.Month(waterYearStart))
}

type StationsCmd struct{}

func (c *StationsCmd) Run(g *Globals) error {
	st, db, err := openStore(g.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	stations, err := st.GetStations()
	if err != nil {
		return err
	}
	for _, s := range stations {
		area := "unknown"
		if s.BasinAreaKm2.Valid {
			area = fmt.Sprintf("%.1f km2", s.BasinAreaKm2.Float64)
		}
		n, err := st.CountDailyFlows(s.StationID)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %-30s  basin area %s  %d records\n", s.StationID, s.Name, area, n)
	}
	return nil
}

type LoadCmd struct {
	File       string  `arg:"" help:"CSV file of daily flows." type:"existingfile"`
	Station    string  `help:"Station ID for rows without a station column."`
	Name       string  `help:"Station name to record."`
	BasinArea  float64 `help:"Upstream basin area in km2 (for yield statistics)."`
	StationCol string  `help:"Name of the station column." default:"STATION_NUMBER"`
	DateCol    string  `help:"Name of the date column." default:"Date"`
	ValueCol   string  `help:"Name of the value column." default:"Value"`
}

func (c *LoadCmd) Run(g *Globals) error {
	st, db, err := openStore(g.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer f.Close()

	cols := hydromet.DefaultColumnMap()
	cols.Station = c.StationCol
	cols.Date = c.DateCol
	cols.Value = c.ValueCol

	flows, err := hydromet.ParseDailyFlows(f, cols, c.Station)
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, fl := range flows {
		if seen[fl.StationID] {
			continue
		}
		seen[fl.StationID] = true
		station := models.Station{StationID: fl.StationID, Name: c.Name, Active: true}
		if c.BasinArea > 0 {
			station.BasinAreaKm2 = sql.NullFloat64{Float64: c.BasinArea, Valid: true}
		}
		if err := st.UpsertStation(station); err != nil {
			return fmt.Errorf("upsert station %s: %w", fl.StationID, err)
		}
	}

	if err := st.InsertDailyFlows(flows); err != nil {
		return err
	}
	log.Printf("loaded %d daily flow records from %s", len(flows), c.File)
	return nil
}

type FetchCmd struct {
	Station string `arg:"" help:"Station ID to fetch."`
	Start   string `help:"Start date (YYYY-MM-DD)." default:"1900-01-01"`
	End     string `help:"End date (YYYY-MM-DD)."`
	BaseURL string `help:"Hydrometric web service base URL." env:"FASSTR_HYDROMET_URL" default:"https://api.weather.gc.ca/hydrometric"`
	APIKey  string `help:"Web service API key." env:"FASSTR_HYDROMET_KEY"`
	FTPHost string `help:"Fetch from this FTP host (host:port) instead of the web service."`
	FTPDir  string `help:"Directory of station archives on the FTP host." default:"/pub/daily_flows"`
}

func (c *FetchCmd) Run(g *Globals) error {
	st, db, err := openStore(g.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	var flows []models.DailyFlow
	if c.FTPHost != "" {
		flows, err = hydromet.NewArchiveClient(c.FTPHost, c.FTPDir).FetchStationArchive(c.Station)
	} else {
		start, perr := time.Parse("2006-01-02", c.Start)
		if perr != nil {
			return fmt.Errorf("parse start date: %w", perr)
		}
		end := time.Now().UTC()
		if c.End != "" {
			if end, perr = time.Parse("2006-01-02", c.End); perr != nil {
				return fmt.Errorf("parse end date: %w", perr)
			}
		}
		flows, err = hydromet.NewClient(c.BaseURL, c.APIKey).FetchDailyFlows(c.Station, start, end)
	}
	if err != nil {
		return err
	}

	if err := st.UpsertStation(models.Station{StationID: c.Station, Active: true}); err != nil {
		return err
	}
	if err := st.InsertDailyFlows(flows); err != nil {
		return err
	}
	log.Printf("fetched %d daily flow records for %s", len(flows), c.Station)
	return nil
}

type ScreenCmd struct {
	Stations       []string `arg:"" help:"Station IDs to screen."`
	WaterYearStart int      `help:"Water year start month (1-12)." default:"1"`
}

func (c *ScreenCmd) Run(g *Globals) error {
	st, db, err := openStore(g.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	days, err := loadSeries(st, c.Stations, c.WaterYearStart)
	if err != nil {
		return err
	}
	summaries := screen.ScreenFlowData(days, time.Month(c.WaterYearStart))
	return writeTable(g, format.ScreeningTable(summaries))
}

type StatsCmd struct {
	Stations       []string  `arg:"" help:"Station IDs to summarize."`
	Period         string    `help:"One of daily, monthly, annual, longterm." enum:"daily,monthly,annual,longterm" default:"longterm"`
	Percentiles    []float64 `help:"Percentiles to compute." default:"10,90"`
	StartYear      int       `help:"First water year to include."`
	EndYear        int       `help:"Last water year to include."`
	ExcludeYears   []int     `help:"Water years to null out of the results."`
	Months         []int     `help:"Calendar months to include (1-12)."`
	IgnoreMissing  bool      `help:"Compute statistics over available days instead of nulling incomplete groups."`
	CompleteYears  bool      `help:"Drop years without a complete daily record before aggregating."`
	CustomMonths   []int     `help:"Extra combined month group for long-term statistics."`
	CustomLabel    string    `help:"Label for the combined month group." default:"Custom-Months"`
	WaterYearStart int       `help:"Water year start month (1-12)." default:"1"`
	RollDays       int       `help:"Apply an n-day rolling mean before aggregating." default:"1"`
	RollAlign      string    `help:"Rolling window alignment." enum:"trailing,leading,centered" default:"trailing"`
	Spread         bool      `help:"Output a wide table, one column per statistic."`
	Transpose      bool      `help:"Output a transposed table, one row per statistic."`
}

func (c *StatsCmd) Run(g *Globals) error {
	st, db, err := openStore(g.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	days, err := loadSeries(st, c.Stations, c.WaterYearStart)
	if err != nil {
		return err
	}
	days, err = timeseries.RollingMean(days, c.RollDays, timeseries.Alignment(c.RollAlign))
	if err != nil {
		return err
	}

	opts := stats.Options{
		Percentiles:       c.Percentiles,
		StartYear:         c.StartYear,
		EndYear:           c.EndYear,
		ExcludeYears:      c.ExcludeYears,
		Months:            intMonths(c.Months),
		IgnoreMissing:     c.IgnoreMissing,
		CompleteYearsOnly: c.CompleteYears,
		CustomMonths:      intMonths(c.CustomMonths),
		CustomMonthsLabel: c.CustomLabel,
		WaterYearStart:    time.Month(c.WaterYearStart),
	}

	var res *stats.Result
	var period stats.Period
	switch c.Period {
	case "daily":
		res, err = stats.CalcDailyStats(days, opts)
		period = stats.PeriodDaily
	case "monthly":
		res, err = stats.CalcMonthlyStats(days, opts)
		period = stats.PeriodMonthly
	case "annual":
		res, err = stats.CalcAnnualStats(days, opts)
		period = stats.PeriodAnnual
	default:
		res, err = stats.CalcLongtermStats(days, opts)
		period = stats.PeriodLongterm
	}
	if err != nil {
		return err
	}
	logWarnings(res.Warnings)

	name := fmt.Sprintf("%s_Statistics", period)
	if len(c.Stations) == 1 {
		name = format.TableName(c.Stations[0], period)
	}
	t, err := format.Format(res.Rows, name, format.Layout{Spread: c.Spread, Transpose: c.Transpose})
	if err != nil {
		return err
	}
	return writeTable(g, t)
}

type CumulativeCmd struct {
	Stations       []string `arg:"" help:"Station IDs to accumulate."`
	WaterYearStart int      `help:"Water year start month (1-12)." default:"1"`
}

func (c *CumulativeCmd) Run(g *Globals) error {
	st, db, err := openStore(g.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	days, err := loadSeries(st, c.Stations, c.WaterYearStart)
	if err != nil {
		return err
	}
	areas, err := st.BasinAreas()
	if err != nil {
		return err
	}
	return writeTable(g, format.CumulativeTable(timeseries.Cumulative(days, areas)))
}

type FrequencyCmd struct {
	Stations       []string  `arg:"" help:"Station IDs to analyze."`
	Mode           string    `help:"Analyze annual minima (low) or maxima (high)." enum:"low,high" default:"low"`
	RollDays       []int     `help:"Rolling-window widths in days." default:"1,3,7,30"`
	RollAlign      string    `help:"Rolling window alignment." enum:"trailing,leading,centered" default:"trailing"`
	Months         []int     `help:"Restrict extrema to these calendar months (1-12)."`
	Position       string    `help:"Plotting position formula." enum:"weibull,median,hazen" default:"weibull"`
	Distribution   string    `help:"Distribution family." enum:"log-pearson3,weibull" default:"log-pearson3"`
	ReturnPeriods  []float64 `help:"Return periods for fitted quantiles." default:"2,5,10,20,50,100"`
	StartYear      int       `help:"First water year to include."`
	EndYear        int       `help:"Last water year to include."`
	ExcludeYears   []int     `help:"Water years to exclude from the sample."`
	WaterYearStart int       `help:"Water year start month (1-12)." default:"10"`
	Table          string    `help:"Which result table to output." enum:"quantiles,extrema,plot-positions,fits" default:"quantiles"`
}

func (c *FrequencyCmd) Run(g *Globals) error {
	st, db, err := openStore(g.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	days, err := loadSeries(st, c.Stations, c.WaterYearStart)
	if err != nil {
		return err
	}

	dist, err := freq.DistributionByName(c.Distribution)
	if err != nil {
		return err
	}

	mode := freq.Mode(c.Mode)
	res, err := freq.Analyze(days, freq.Options{
		Mode:          mode,
		RollDays:      c.RollDays,
		RollAlign:     timeseries.Alignment(c.RollAlign),
		Months:        intMonths(c.Months),
		Position:      freq.PlottingPosition(c.Position),
		Distribution:  dist,
		ReturnPeriods: c.ReturnPeriods,
		StartYear:     c.StartYear,
		EndYear:       c.EndYear,
		ExcludeYears:  c.ExcludeYears,
	})
	if err != nil {
		return err
	}
	logWarnings(res.Warnings)

	var t format.Table
	switch c.Table {
	case "extrema":
		t = format.ExtremaTable(res, mode)
	case "plot-positions":
		t = format.PlotPointsTable(res, mode)
	case "fits":
		t = format.FitsTable(res, mode)
	default:
		t = format.QuantilesTable(res, mode)
	}
	return writeTable(g, t)
}

func intMonths(months []int) []time.Month {
	out := make([]time.Month, len(months))
	for i, m := range months {
		out[i] = time.Month(m)
	}
	return out
}
