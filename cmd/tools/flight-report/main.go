// Command flight-report summarizes a recorded flight log: per-action event
// counts and distance statistics on stdout, plus an HTML scatter of the
// appended points colored by leg distance.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"

	"github.com/driftline/safereturn/internal/breadcrumb"
	"github.com/driftline/safereturn/internal/flightlog"
)

var (
	dbPath  = flag.String("db", "flightlog.db", "Flight log database path")
	session = flag.String("session", "", "Session ID (default: most recent)")
	htmlOut = flag.String("html", "", "Write an HTML scatter of the track to this file")
)

func main() {
	flag.Parse()

	store, err := flightlog.Open(*dbPath)
	if err != nil {
		log.Fatalf("failed to open flight log: %v", err)
	}
	defer store.Close()

	sessionID := *session
	if sessionID == "" {
		sessionID, err = latestSession(store)
		if err != nil {
			log.Fatal(err)
		}
	}

	events, err := store.Events(sessionID)
	if err != nil {
		log.Fatalf("failed to load events: %v", err)
	}
	if len(events) == 0 {
		log.Fatalf("session %s has no events", sessionID)
	}

	counts, err := store.ActionCounts(sessionID)
	if err != nil {
		log.Fatalf("failed to count actions: %v", err)
	}

	fmt.Printf("session %s: %d events\n", sessionID, len(events))
	for _, a := range []breadcrumb.Action{
		breadcrumb.ActionPointAdd,
		breadcrumb.ActionPointSimplify,
		breadcrumb.ActionPointPrune,
		breadcrumb.ActionDeactivatedInitFailed,
		breadcrumb.ActionDeactivatedBadPosition,
		breadcrumb.ActionDeactivatedCleanupFailed,
	} {
		if n := counts[a.String()]; n > 0 {
			fmt.Printf("  %-28s %d\n", a, n)
		}
	}

	adds := filterAdds(events)
	if len(adds) >= 2 {
		legs := make([]float64, 0, len(adds)-1)
		total := 0.0
		for i := 1; i < len(adds); i++ {
			d := adds[i].Position.Sub(adds[i-1].Position).Norm()
			legs = append(legs, d)
			total += d
		}
		mean, std := stat.MeanStdDev(legs, nil)
		fmt.Printf("track: %.1fm over %d legs (mean %.2fm, stddev %.2fm)\n",
			total, len(legs), mean, std)
	}

	if *htmlOut != "" {
		if err := renderScatter(adds, sessionID, *htmlOut); err != nil {
			log.Fatalf("failed to render scatter: %v", err)
		}
		fmt.Printf("wrote %s\n", *htmlOut)
	}
}

func latestSession(store *flightlog.Store) (string, error) {
	sessions, err := store.Sessions()
	if err != nil {
		return "", fmt.Errorf("failed to list sessions: %w", err)
	}
	// Opening the store registered a fresh empty session; skip it.
	for _, s := range sessions {
		if s.ID != store.SessionID() {
			return s.ID, nil
		}
	}
	return "", fmt.Errorf("no recorded sessions in log")
}

func filterAdds(events []flightlog.Event) []flightlog.Event {
	var adds []flightlog.Event
	for _, ev := range events {
		if ev.Action == breadcrumb.ActionPointAdd.String() {
			adds = append(adds, ev)
		}
	}
	return adds
}

func renderScatter(adds []flightlog.Event, sessionID, file string) error {
	data := make([]opts.ScatterData, 0, len(adds))
	for i, ev := range adds {
		data = append(data, opts.ScatterData{
			Value: []interface{}{ev.Position.Y, ev.Position.X, i},
		})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Flight Track", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Recorded Track", Subtitle: fmt.Sprintf("session=%s points=%d", sessionID, len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "east (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "north (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(len(data)),
			InRange:    &opts.VisualMapInRange{Color: []string{"#31688e", "#35b779", "#fde725"}},
		}),
	)
	scatter.AddSeries("track", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))

	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer f.Close()
	return scatter.Render(f)
}
