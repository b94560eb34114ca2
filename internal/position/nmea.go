package position

import (
	"bufio"
	"context"
	"io"
	"math"
	"sync"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/golang/geo/r3"
	"go.bug.st/serial"

	"github.com/driftline/safereturn/internal/monitoring"
	"github.com/driftline/safereturn/internal/timeutil"
)

// wgs84SemiMajor is the earth radius used for the local tangent-plane
// projection, in meters. Over breadcrumb-scale distances the equirectangular
// approximation is well inside GNSS noise.
const wgs84SemiMajor = 6378137.0

// DefaultFixMaxAge is how old the last GGA fix may be before the provider
// reports the position as untrusted.
const DefaultFixMaxAge = 2 * time.Second

// NMEAProvider converts a stream of NMEA sentences from a GNSS receiver
// into NED offsets from the first valid fix of the session. A fix is
// trusted while its quality is usable and it is fresher than FixMaxAge.
type NMEAProvider struct {
	// FixMaxAge bounds fix staleness; zero means DefaultFixMaxAge.
	FixMaxAge time.Duration

	clock timeutil.Clock

	mu        sync.Mutex
	hasOrigin bool
	originLat float64 // radians
	originLon float64 // radians
	originAlt float64 // meters

	pos     r3.Vector
	haveFix bool
	fixTime time.Time
}

// NewNMEAProvider builds a provider using the given clock (nil means the
// real clock).
func NewNMEAProvider(clock timeutil.Clock) *NMEAProvider {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &NMEAProvider{clock: clock}
}

// Run consumes NMEA sentences line by line until the reader is exhausted
// or the context is cancelled. Malformed sentences are skipped.
func (p *NMEAProvider) Run(ctx context.Context, r io.Reader) error {
	scan := bufio.NewScanner(r)
	for scan.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		p.handleLine(scan.Text())
	}
	return scan.Err()
}

// handleLine parses one sentence and folds any GGA fix into the state.
func (p *NMEAProvider) handleLine(line string) {
	s, err := nmea.Parse(line)
	if err != nil {
		monitoring.Debugf("nmea: skipping unparsable sentence: %v", err)
		return
	}
	gga, ok := s.(nmea.GGA)
	if !ok {
		return
	}
	if gga.FixQuality == nmea.Invalid {
		return
	}

	lat := gga.Latitude * math.Pi / 180
	lon := gga.Longitude * math.Pi / 180

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.hasOrigin {
		p.hasOrigin = true
		p.originLat = lat
		p.originLon = lon
		p.originAlt = gga.Altitude
	}

	p.pos = r3.Vector{
		X: (lat - p.originLat) * wgs84SemiMajor,                        // north
		Y: (lon - p.originLon) * wgs84SemiMajor * math.Cos(p.originLat), // east
		Z: -(gga.Altitude - p.originAlt),                               // down
	}
	p.haveFix = true
	p.fixTime = p.clock.Now()
}

// Position implements Provider.
func (p *NMEAProvider) Position() (r3.Vector, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.haveFix {
		return r3.Vector{}, false
	}
	maxAge := p.FixMaxAge
	if maxAge == 0 {
		maxAge = DefaultFixMaxAge
	}
	if p.clock.Since(p.fixTime) > maxAge {
		return p.pos, false
	}
	return p.pos, true
}

// OpenSerial opens a GNSS receiver on the named serial port and starts a
// goroutine feeding the returned provider. Closing the returned closer
// stops the feed.
func OpenSerial(portName string, baud int, clock timeutil.Clock) (*NMEAProvider, io.Closer, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, nil, err
	}

	p := NewNMEAProvider(clock)
	go func() {
		if err := p.Run(context.Background(), port); err != nil && err != io.EOF {
			monitoring.Logf("nmea: serial feed stopped: %v", err)
		}
	}()
	return p, port, nil
}
