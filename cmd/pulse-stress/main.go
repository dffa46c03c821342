package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log"
	"math/rand/v2"
	"os"
	"runtime"
	"time"

	"github.com/plus3/pulse/pipeline"
	"go.uber.org/zap"
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "The total duration the stress run should last.")
	entities := flag.Int("entities", 500, "The number of tracked entities to retarget every tick.")
	segments := flag.Int("segments", 4, "Segments per tracked entity.")
	particleRate := flag.Int("particles", 200, "Particles emitted per second.")
	backend := flag.String("backend", "", "Force a renderer backend: gpu or raster.")
	configPath := flag.String("config", "", "Optional YAML pipeline config file.")
	capturePath := flag.String("capture", "", "Write the final raster frame to this PNG file.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	verbose := flag.Bool("v", false, "Enable development logging.")
	flag.Parse()

	if *segments < 1 {
		*segments = 1
	}

	cfg := pipeline.DefaultConfig()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			log.Fatalf("Failed to open config: %v", err)
		}
		cfg, err = pipeline.LoadConfig(f)
		f.Close()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *backend != "" {
		cfg.Renderer.Backend = *backend
	}
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}
	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			log.Fatalf("Failed to build logger: %v", err)
		}
		defer logger.Sync()
		cfg.Logger = logger
	}

	log.Println("Starting pipeline stress run...")

	p, err := pipeline.New(cfg)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}
	defer p.Dispose()

	// 1. Populate the surface with segmented entities
	surfaceW := float64(cfg.Renderer.Width)
	surfaceH := float64(cfg.Renderer.Height)
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed+1))

	log.Printf("Tracking %d entities with %d segments each...", *entities, *segments)
	waypoints := make([]pipeline.Point, *entities)
	points := make([]pipeline.Point, *segments)
	for i := 0; i < *entities; i++ {
		start := randomPoint(rng, surfaceW, surfaceH)
		for j := range points {
			points[j] = start
		}
		shape := pipeline.ShapeRect
		if i%3 == 0 {
			shape = pipeline.ShapeCircle
		}
		p.Track(pipeline.EntityId(i+1), pipeline.Visual{
			W:     6,
			H:     6,
			Color: pipeline.RGBA{R: uint8(60 + i%180), G: 160, B: 220, A: 255},
			Shape: shape,
		}, points)
		waypoints[i] = randomPoint(rng, surfaceW, surfaceH)
	}

	// 2. Arm the per tick workload: head seeks a waypoint, every segment
	// follows its predecessor, plus a steady particle load
	perTickEmit := max(1, *particleRate/cfg.TargetFPS)
	kinds := []pipeline.ParticleKind{
		pipeline.KindFood,
		pipeline.KindTrail,
		pipeline.KindPowerUp,
		pipeline.KindCombo,
		pipeline.KindCrash,
	}
	targets := make([]pipeline.Point, *segments)
	tick := 0

	p.Start(func(f *pipeline.Frame) {
		tick++
		aiStart := time.Now()
		for i := 0; i < *entities; i++ {
			id := pipeline.EntityId(i + 1)
			pos := f.Movement.Positions(id)
			dx := pos[0].X - waypoints[i].X
			dy := pos[0].Y - waypoints[i].Y
			if dx*dx+dy*dy < 64 {
				waypoints[i] = randomPoint(rng, surfaceW, surfaceH)
			}
			targets[0] = waypoints[i]
			for j := 1; j < len(targets); j++ {
				targets[j] = pos[j-1]
			}
			f.Movement.SetTargets(id, targets)
		}
		f.Observe("ai", time.Since(aiStart))

		f.Emitter.Emit(kinds[tick%len(kinds)], rng.Float64()*surfaceW, rng.Float64()*surfaceH, perTickEmit, nil)
	})

	// 3. Run the loop saturated, the way a busy host would
	report := &Report{
		Duration:       *duration,
		Entities:       *entities,
		Segments:       *segments,
		ParticleRate:   *particleRate,
		Backend:        p.Renderer().Backend(),
		GCPauseMetrics: *gcPauseMetrics,
		TickTime: Stats{
			Samples: make([]time.Duration, 0, 4096),
		},
	}

	runtime.ReadMemStats(&report.MemStatsStart)

	log.Printf("Running for %s...", *duration)
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	startTime := time.Now()
	var totalFrames int64
	lastLevel := p.Level()

Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
			tickStart := time.Now()
			ticked := p.Step()
			p.Draw(nil)
			if ticked {
				report.TickTime.Samples = append(report.TickTime.Samples, time.Since(tickStart))
			}
			if lv := p.Level(); lv != lastLevel {
				report.LevelHistory = append(report.LevelHistory,
					fmt.Sprintf("tick %d: %s -> %s", tick, lastLevel, lv))
				lastLevel = lv
			}
			totalFrames++
		}
	}

	report.TotalTime = time.Since(startTime)
	report.TotalTicks = int64(len(report.TickTime.Samples))
	report.TotalFrames = totalFrames
	report.TickTime.Finalize()
	report.Level = p.Level().String()
	report.Trend = p.Trend().String()
	report.Healthy = p.Governor().IsPerformanceGood()
	report.ConsistentlyPoor = p.Governor().IsConsistentlyPoor()
	report.Gov = p.Stats()
	report.Recommendations = p.Governor().Recommendations()
	runtime.ReadMemStats(&report.MemStatsEnd)

	log.Println("Stress run finished.")

	if *capturePath != "" {
		if err := capture(p, *capturePath); err != nil {
			log.Printf("Capture failed: %v", err)
		} else {
			log.Printf("Wrote %s", *capturePath)
		}
	}

	// 4. Generate the report to the console
	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		log.Fatalf("Failed to generate report: %v", err)
	}
	fmt.Println("--- End of Report ---")

	log.Println("Stress run complete.")
}

func randomPoint(rng *rand.Rand, w, h float64) pipeline.Point {
	return pipeline.Point{X: rng.Float64() * w, Y: rng.Float64() * h}
}

// capture dumps the raster backend's buffer as a PNG, which is how
// headless runs are inspected visually.
func capture(p *pipeline.Pipeline, path string) error {
	buf := p.Renderer().Buffer()
	if buf == nil {
		return fmt.Errorf("capture needs the raster backend")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, buf)
}
