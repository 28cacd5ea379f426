package overlay

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"globe-desktop/internal/logger"
	"globe-desktop/internal/texture"
)

// InterpolationRadius is the neighbourhood (in cells) averaged for missing values
const InterpolationRadius = 2

// TemperatureSource returns the current temperature at a point
type TemperatureSource interface {
	Enabled() bool
	Temperature(ctx context.Context, lat, lon float64) (float64, error)
}

// Sample is one sampled grid point
type Sample struct {
	Lat, Lon float64
	Temp     float64
	Success  bool
}

// Status describes the last refresh
type Status struct {
	Simulated bool      `json:"simulated"`
	Samples   int       `json:"samples"`
	Succeeded int       `json:"succeeded"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   uint64    `json:"version"`
}

// Options configures an Overlay
type Options struct {
	Step     int           // degrees between sampled points
	Refresh  time.Duration // Run interval
	Workers  int           // concurrent API calls
	Seed     int64         // simulator seed
	Logger   *zap.Logger
	OnUpdate func(Status)
}

// Overlay samples temperatures on a coarse lat/lon lattice, fills a one
// degree grid from them and renders it into a translucent texture. The
// texture object is created once and redrawn in place on every refresh.
type Overlay struct {
	mu     sync.RWMutex
	grid   *Grid
	status Status

	src      TemperatureSource
	sim      *Simulator
	tex      *texture.Texture
	step     int
	refresh  time.Duration
	workers  int64
	onUpdate func(Status)
	log      *zap.Logger
}

// New creates an overlay; call Refresh or Run to populate it
func New(src TemperatureSource, opts Options) *Overlay {
	if opts.Step <= 0 {
		opts.Step = 10
	}
	if opts.Refresh <= 0 {
		opts.Refresh = 10 * time.Minute
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}

	tex := texture.New(image.NewRGBA(image.Rect(0, 0, GridWidth, GridHeight)))
	tex.WrapS = texture.Repeat
	tex.WrapT = texture.Repeat

	return &Overlay{
		grid:     NewGrid(GridWidth, GridHeight),
		src:      src,
		sim:      NewSimulator(opts.Seed),
		tex:      tex,
		step:     opts.Step,
		refresh:  opts.Refresh,
		workers:  int64(opts.Workers),
		onUpdate: opts.OnUpdate,
		log:      logger.OrNop(opts.Logger),
	}
}

// SamplePoints returns the lattice every step degrees, lat -90..90 and lon -180..180
func SamplePoints(step int) []Sample {
	var pts []Sample
	for lat := -90; lat <= 90; lat += step {
		for lon := -180; lon <= 180; lon += step {
			pts = append(pts, Sample{Lat: float64(lat), Lon: float64(lon)})
		}
	}
	return pts
}

// Refresh regenerates the grid and redraws the texture. With no reading at
// all (or no API key) the simulated field is used instead.
func (o *Overlay) Refresh(ctx context.Context) Status {
	samples := o.sample(ctx)

	grid := NewGrid(GridWidth, GridHeight)
	succeeded := 0
	for _, s := range samples {
		if !s.Success {
			continue
		}
		succeeded++
		if x, y, ok := grid.CellFor(s.Lat, s.Lon); ok {
			grid.Set(x, y, s.Temp)
		}
	}

	simulated := succeeded == 0
	if simulated {
		o.sim.Fill(grid)
		o.log.Warn("[Overlay] no temperature readings, using simulated data", zap.Int("samples", len(samples)))
	} else {
		grid.Interpolate(InterpolationRadius)
	}

	o.tex.Update(func(img *image.RGBA) { render(img, grid) })

	lo, hi := grid.MinMax()
	st := Status{
		Simulated: simulated,
		Samples:   len(samples),
		Succeeded: succeeded,
		Min:       lo,
		Max:       hi,
		UpdatedAt: time.Now(),
		Version:   o.tex.Version(),
	}

	o.mu.Lock()
	o.grid = grid
	o.status = st
	o.mu.Unlock()

	o.log.Info("[Overlay] refreshed",
		zap.Bool("simulated", simulated),
		zap.Int("succeeded", succeeded),
		zap.Int("samples", len(samples)))
	if o.onUpdate != nil {
		o.onUpdate(st)
	}
	return st
}

// sample queries every lattice point in parallel, capturing each outcome
func (o *Overlay) sample(ctx context.Context) []Sample {
	points := SamplePoints(o.step)
	if o.src == nil || !o.src.Enabled() {
		return points
	}

	sem := semaphore.NewWeighted(o.workers)
	var wg sync.WaitGroup
	for i := range points {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(p *Sample) {
			defer wg.Done()
			defer sem.Release(1)
			t, err := o.src.Temperature(ctx, p.Lat, p.Lon)
			if err != nil {
				o.log.Debug("[Overlay] sample failed", zap.Float64("lat", p.Lat), zap.Float64("lon", p.Lon), zap.Error(err))
				return
			}
			p.Temp, p.Success = t, true
		}(&points[i])
	}
	wg.Wait()
	return points
}

func render(img *image.RGBA, g *Grid) {
	b := img.Bounds()
	if b.Dx() != g.W || b.Dy() != g.H {
		draw.Draw(img, b, image.Transparent, image.Point{}, draw.Src)
	}
	for y := 0; y < g.H && y < b.Dy(); y++ {
		for x := 0; x < g.W && x < b.Dx(); x++ {
			v, _ := g.Get(x, y)
			img.Set(b.Min.X+x, b.Min.Y+y, ColorFor(v))
		}
	}
}

// Run refreshes immediately and then every refresh interval until ctx is done
func (o *Overlay) Run(ctx context.Context) {
	o.Refresh(ctx)

	ticker := time.NewTicker(o.refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.Refresh(ctx)
		}
	}
}

// Texture returns the overlay texture; the same object across refreshes
func (o *Overlay) Texture() *texture.Texture {
	return o.tex
}

// Status returns the outcome of the last refresh
func (o *Overlay) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

// TemperatureAt returns the gridded temperature at lat/lon
func (o *Overlay) TemperatureAt(lat, lon float64) (float64, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	x, y, ok := o.grid.CellFor(lat, lon)
	if !ok {
		return 0, false
	}
	return o.grid.Get(x, y)
}

// ColorAt returns the rendered overlay colour at lat/lon
func (o *Overlay) ColorAt(lat, lon float64) (color.NRGBA, bool) {
	t, ok := o.TemperatureAt(lat, lon)
	if !ok {
		return color.NRGBA{}, false
	}
	return ColorFor(t), true
}
