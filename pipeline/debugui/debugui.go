// Package debugui provides an immediate-mode Dear ImGui overlay for
// inspecting a running pipeline: quality level, frame timing, tick phase
// breakdown and governor recommendations.
package debugui

import (
	"fmt"
	"sort"
	"time"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/pulse/pipeline"
)

// InputState reports whether Dear ImGui is consuming mouse or keyboard
// input this frame. Games should skip their own input handling for a
// device ImGui captures.
type InputState struct {
	WantCaptureMouse    bool
	WantCaptureKeyboard bool
}

// CurrentInputState reads the capture state of the active ImGui context.
func CurrentInputState() InputState {
	io := imgui.CurrentIO()
	return InputState{
		WantCaptureMouse:    io.WantCaptureMouse(),
		WantCaptureKeyboard: io.WantCaptureKeyboard(),
	}
}

// Overlay renders a pipeline's performance state as an ImGui window.
// Call Render between the backend's BeginFrame and EndFrame.
type Overlay struct {
	pipe    *pipeline.Pipeline
	history []float32
	auxKeys []string
	open    bool
}

func NewOverlay(p *pipeline.Pipeline) *Overlay {
	return &Overlay{
		pipe:    p,
		history: make([]float32, 0, 64),
		open:    true,
	}
}

// Toggle flips overlay visibility, typically bound to a debug key.
func (o *Overlay) Toggle() {
	o.open = !o.open
}

func (o *Overlay) Visible() bool {
	return o.open
}

func (o *Overlay) Render() {
	if !o.open {
		return
	}
	if !imgui.BeginV("Pipeline Stats", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	s := o.pipe.Stats()
	caps := o.pipe.Capabilities()

	imgui.Text(fmt.Sprintf("Backend: %s (%s, tier %s)", o.pipe.Renderer().Backend(), caps.Renderer, caps.Tier))
	imgui.Text(fmt.Sprintf("Level: %s   Trend: %s", o.pipe.Level(), o.pipe.Trend()))
	imgui.Text(fmt.Sprintf("FPS: %.1f   Avg Frame: %.2f ms", o.pipe.FPS(), ms(s.FrameTime)))
	imgui.Text(fmt.Sprintf("Update: %.2f ms   Render: %.2f ms", ms(s.UpdateTime), ms(s.RenderTime)))
	imgui.Text(fmt.Sprintf("Entities: %d   Particles: %d", o.pipe.Movement().Tracked(), o.pipe.Emitter().ActiveCount()))

	imgui.Separator()
	imgui.Text("Frame Time Graph (ms)")
	o.history = o.pipe.Governor().FrameHistory(o.history[:0])
	if len(o.history) > 0 {
		imgui.PlotLinesFloatPtr("##frametime", &o.history[0], int32(len(o.history)))
	}

	if imgui.TreeNodeStr("Tick Breakdown") {
		o.auxKeys = o.auxKeys[:0]
		for k := range s.Aux {
			o.auxKeys = append(o.auxKeys, k)
		}
		sort.Strings(o.auxKeys)

		const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg
		if imgui.BeginTableV("TickTable", 2, tableFlags, imgui.NewVec2(0, 0), 0) {
			imgui.TableSetupColumn("Phase")
			imgui.TableSetupColumn("Avg Time")
			imgui.TableHeadersRow()

			for _, k := range o.auxKeys {
				imgui.TableNextRow()
				imgui.TableNextColumn()
				imgui.Text(k)
				imgui.TableNextColumn()
				imgui.Text(fmt.Sprintf("%.2f ms", ms(s.Aux[k])))
			}

			imgui.EndTable()
		}
		imgui.TreePop()
	}

	if imgui.TreeNodeStr("Recommendations") {
		recs := o.pipe.Governor().Recommendations()
		if len(recs) == 0 {
			imgui.Text("All budgets met")
		}
		for _, rec := range recs {
			imgui.BulletText(rec)
		}
		imgui.TreePop()
	}

	imgui.End()
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
