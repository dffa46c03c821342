package pipeline

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Tier buckets the host into a coarse performance class. It seeds the
// interpolation speed and the renderer backend choice; the governor can
// still move the quality level at runtime.
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	}
	return "unknown"
}

// Capabilities describes what the device probe found.
type Capabilities struct {
	GPU      bool
	Tier     Tier
	Renderer string
}

// probeEnv is the slice of the host the probe reads, injectable in tests.
type probeEnv interface {
	goos() string
	getenv(key string) string
	numCPU() int
	drmVendors() []string
}

type hostEnv struct{}

func (hostEnv) goos() string             { return runtime.GOOS }
func (hostEnv) getenv(key string) string { return os.Getenv(key) }
func (hostEnv) numCPU() int              { return runtime.NumCPU() }

func (hostEnv) drmVendors() []string {
	paths, err := filepath.Glob("/sys/class/drm/card*/device/vendor")
	if err != nil {
		return nil
	}
	var vendors []string
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		vendors = append(vendors, strings.TrimSpace(string(b)))
	}
	return vendors
}

// PCI vendor ids as exposed by /sys/class/drm.
const (
	vendorNVIDIA = "0x10de"
	vendorAMD    = "0x1002"
	vendorIntel  = "0x8086"
	vendorVirtIO = "0x1af4"
	vendorVMware = "0x15ad"
	vendorBochs  = "0x1234"
)

// ProbeDevice inspects the host once and reports whether a GPU is usable
// and which tier the device lands in. It never fails and never touches the
// display layer, so it is safe to call headless and before the game loop.
func ProbeDevice() Capabilities {
	return probeDevice(hostEnv{})
}

func probeDevice(env probeEnv) Capabilities {
	switch env.goos() {
	case "darwin":
		return Capabilities{GPU: true, Tier: TierHigh, Renderer: "Apple"}
	case "windows":
		return Capabilities{GPU: true, Tier: TierMedium, Renderer: "Direct3D"}
	case "js":
		return Capabilities{GPU: true, Tier: TierMedium, Renderer: "WebGL"}
	case "android", "ios":
		tier := TierMedium
		if env.numCPU() <= 4 {
			tier = TierLow
		}
		return Capabilities{GPU: true, Tier: tier, Renderer: "GLES"}
	case "linux":
		return probeLinux(env)
	}
	return Capabilities{Tier: TierLow, Renderer: "software"}
}

func probeLinux(env probeEnv) Capabilities {
	display := env.getenv("DISPLAY") != "" || env.getenv("WAYLAND_DISPLAY") != ""
	vendors := env.drmVendors()
	if !display || len(vendors) == 0 {
		return Capabilities{Tier: TierLow, Renderer: "software"}
	}

	best := Capabilities{GPU: true, Tier: TierMedium, Renderer: "GL"}
	seen := false
	for _, v := range vendors {
		c, ok := vendorCaps(v)
		if !ok {
			continue
		}
		if !seen || c.Tier > best.Tier {
			best = c
			seen = true
		}
	}
	return best
}

func vendorCaps(vendor string) (Capabilities, bool) {
	switch strings.ToLower(vendor) {
	case vendorNVIDIA:
		return Capabilities{GPU: true, Tier: TierHigh, Renderer: "NVIDIA"}, true
	case vendorAMD:
		return Capabilities{GPU: true, Tier: TierHigh, Renderer: "AMD"}, true
	case vendorIntel:
		return Capabilities{GPU: true, Tier: TierMedium, Renderer: "Intel"}, true
	case vendorVirtIO, vendorVMware, vendorBochs:
		return Capabilities{GPU: true, Tier: TierLow, Renderer: "virtual"}, true
	}
	return Capabilities{}, false
}
