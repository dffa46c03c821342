package main

import (
	"fmt"
	"io"
	"runtime"
	"text/template"
	"time"

	"github.com/plus3/pulse/pipeline"
)

type Report struct {
	// Configuration
	Duration     time.Duration
	Entities     int
	Segments     int
	ParticleRate int
	Backend      string

	// Results
	TotalTicks       int64
	TotalFrames      int64
	TotalTime        time.Duration
	TickTime         Stats
	Level            string
	Trend            string
	LevelHistory     []string
	Healthy          bool
	ConsistentlyPoor bool
	Gov              pipeline.Stats
	Recommendations  []string
	GCPauseMetrics   bool
	MemStatsStart    runtime.MemStats
	MemStatsEnd      runtime.MemStats
}

type Stats struct {
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
	Samples []time.Duration
}

func (s *Stats) Finalize() {
	if len(s.Samples) == 0 {
		return
	}

	var total time.Duration
	s.Min = s.Samples[0]
	s.Max = s.Samples[0]

	for _, sample := range s.Samples {
		if sample < s.Min {
			s.Min = sample
		}
		if sample > s.Max {
			s.Max = sample
		}
		total += sample
	}
	s.Avg = total / time.Duration(len(s.Samples))
}

func (r *Report) Generate(w io.Writer) error {
	const reportTemplate = `
# Pipeline Stress Test Report

## Test Configuration
- **Run Duration:** {{.Duration}}
- **Tracked Entities:** {{.Entities}} ({{.Segments}} segments each)
- **Particle Rate:** {{.ParticleRate}}/s
- **Renderer Backend:** {{.Backend}}

## Performance Results
- **Executed Ticks:** {{.TotalTicks}}
- **Host Frames:** {{.TotalFrames}}
- **Total Test Time:** {{.TotalTime}}
- **Tick Time (Step + Draw):**
  - **Avg:** {{.TickTime.Avg}}
  - **Min:** {{.TickTime.Min}}
  - **Max:** {{.TickTime.Max}}

## Governor Verdict
- **Final Level:** {{.Level}} ({{.Trend}})
- **Budgets Met:** {{if .Healthy}}yes{{else}}no{{end}}{{if .ConsistentlyPoor}} (consistently over the frame budget){{end}}
{{if .LevelHistory}}- **Level Changes:**
{{range .LevelHistory}}  - {{.}}
{{end}}{{end}}- **Window FPS:** {{printf "%.1f" .Gov.FPS}}
- **Avg Frame Time:** {{.Gov.FrameTime}}
- **Avg Update:** {{.Gov.UpdateTime}}
- **Avg Render:** {{.Gov.RenderTime}}
{{if .Recommendations}}
## Recommendations
{{range .Recommendations}}- {{.}}
{{end}}{{end}}
## Memory Usage
- Heap Alloc:     {{mb .MemStatsStart.HeapAlloc}} MB (start) -> {{mb .MemStatsEnd.HeapAlloc}} MB (end) -> delta: {{bsub .MemStatsEnd.HeapAlloc .MemStatsStart.HeapAlloc}} bytes
- Total Alloc:    {{mb .MemStatsStart.TotalAlloc}} MB (start) -> {{mb .MemStatsEnd.TotalAlloc}} MB (end) -> delta: {{bsub .MemStatsEnd.TotalAlloc .MemStatsStart.TotalAlloc}} bytes
- Sys Memory:     {{mb .MemStatsStart.Sys}} MB (start) -> {{mb .MemStatsEnd.Sys}} MB (end)
- Num GC:         {{.MemStatsStart.NumGC}} (start) -> {{.MemStatsEnd.NumGC}} (end) -> delta: {{usub .MemStatsEnd.NumGC .MemStatsStart.NumGC}}

{{if .GCPauseMetrics}}
## GC Pause Durations
- **Total GC Pause:** {{.MemStatsEnd.PauseTotalNs | ns}}
- **Num GC Cycles:** {{ usub .MemStatsEnd.NumGC .MemStatsStart.NumGC }}
{{end}}
`

	fm := template.FuncMap{
		"mb": func(v any) string {
			switch val := v.(type) {
			case uint64:
				return fmt.Sprintf("%.2f", float64(val)/1024/1024)
			case int64:
				return fmt.Sprintf("%.2f", float64(val)/1024/1024)
			default:
				return "N/A"
			}
		},
		"bsub": func(a, b uint64) int64 {
			return int64(a) - int64(b)
		},
		"usub": func(a, b uint32) uint32 {
			return a - b
		},
		"ns": func(ns uint64) string {
			return time.Duration(ns).String()
		},
	}

	tmpl, err := template.New("report").Funcs(fm).Parse(reportTemplate)
	if err != nil {
		return err
	}

	return tmpl.Execute(w, r)
}
