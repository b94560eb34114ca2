// Command safereturn records a breadcrumb trail of vehicle positions and
// keeps it simplified and loop-free within a fixed memory budget, so a
// return path is always available. Positions come from a GNSS receiver on
// a serial port, or from a built-in simulator in -sim mode.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/golang/geo/r3"

	"github.com/driftline/safereturn/internal/breadcrumb"
	"github.com/driftline/safereturn/internal/flightlog"
	"github.com/driftline/safereturn/internal/monitoring"
	"github.com/driftline/safereturn/internal/position"
	"github.com/driftline/safereturn/internal/sched"
	"github.com/driftline/safereturn/internal/timeutil"
)

var (
	portName  = flag.String("port", "/dev/ttyUSB0", "Serial port of the GNSS receiver")
	baudRate  = flag.Int("baud", 9600, "Serial baud rate")
	dbPath    = flag.String("db", "flightlog.db", "Flight log database path (empty disables logging)")
	simMode   = flag.Bool("sim", false, "Use the built-in flight simulator instead of a receiver")
	maxPoints = flag.Int("points", breadcrumb.DefaultMaxPoints, "Path capacity in points")
	accuracy  = flag.Float64("accuracy", breadcrumb.DefaultAccuracy, "Minimum spacing between stored points, meters")
	interval  = flag.Duration("interval", 333*time.Millisecond, "Position polling interval")
	verbose   = flag.Bool("verbose", false, "Enable debug logging")
)

func main() {
	flag.Parse()
	monitoring.Verbose = *verbose

	cfg := breadcrumb.DefaultConfig()
	cfg.MaxPoints = *maxPoints
	cfg.Accuracy = *accuracy

	opts := []breadcrumb.Option{}

	var store *flightlog.Store
	if *dbPath != "" {
		var err error
		store, err = flightlog.Open(*dbPath)
		if err != nil {
			log.Fatalf("failed to open flight log: %v", err)
		}
		defer store.Close()
		log.Printf("flight log session %s -> %s", store.SessionID(), *dbPath)
		opts = append(opts, breadcrumb.WithEventSink(store))
	}

	rec, err := breadcrumb.New(cfg, opts...)
	if err != nil {
		log.Fatalf("failed to build recorder: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	var provider position.Provider
	if *simMode {
		sim := &position.Static{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			runSimulator(ctx, sim)
		}()
		provider = sim
	} else {
		p, closer, err := position.OpenSerial(*portName, *baudRate, nil)
		if err != nil {
			log.Fatalf("failed to open %s: %v", *portName, err)
		}
		defer closer.Close()
		provider = p
	}

	// Cleanup passes run on their own cadence, budgeted per call.
	runner := sched.NewRunner(rec, 50*time.Millisecond, nil)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := runner.Run(ctx); err != nil {
			log.Printf("cleanup runner: %v", err)
		}
	}()

	pos, ok := provider.Position()
	rec.Reset(pos, ok)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			pos, ok := provider.Position()
			rec.Update(pos, ok)
			if !rec.IsActive() {
				log.Printf("recorder deactivated: %s", rec.DeactivationReason())
				break loop
			}
		}
	}

	stop()
	runner.Stop()
	wg.Wait()

	printReturnPath(rec)
}

// printReturnPath finishes any in-flight cleanup and prints the stored
// path home-first, the order a return flight would consume it.
func printReturnPath(rec *breadcrumb.Recorder) {
	if rec.IsActive() {
		deadline := time.Now().Add(2 * time.Second)
		for !rec.ThoroughCleanup() && time.Now().Before(deadline) {
			rec.AdvanceSimplification()
			rec.AdvancePruning()
		}
	}

	n := rec.Len()
	log.Printf("return path: %d points", n)
	for i := n - 1; i >= 0; i-- {
		p := rec.At(i)
		fmt.Printf("  %3d: north=%8.1fm east=%8.1fm down=%7.1fm\n", n-1-i, p.X, p.Y, p.Z)
	}
}

// runSimulator drives the static provider along a lazy figure of eight,
// with a GPS dropout partway through to exercise the timeout handling.
func runSimulator(ctx context.Context, sim *position.Static) {
	clock := timeutil.RealClock{}
	start := clock.Now()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t := clock.Since(start).Seconds()
			pos := r3.Vector{
				X: 120 * math.Sin(t/20),
				Y: 80 * math.Sin(t/10),
				Z: -30 + 5*math.Sin(t/7),
			}
			// Brief dropout between 60s and 65s of flight.
			valid := t < 60 || t > 65
			sim.Set(pos, valid)
		}
	}
}
