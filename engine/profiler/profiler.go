package profiler

import (
	"runtime"
	"time"

	"github.com/Caishangqi/Eurekiel-sub001/common"
)

// FrameStats is the per-interval renderer state sampled alongside frame
// timing. Callers fill it from the pipeline cache and bindless layer.
type FrameStats struct {
	// DrawCount is the number of draws issued in the last frame.
	DrawCount uint64

	// PipelineHits is the cumulative pipeline cache hit count.
	PipelineHits uint64

	// PipelineMisses is the cumulative pipeline cache miss count.
	PipelineMisses uint64

	// PipelineCount is the number of pipelines currently cached.
	PipelineCount int
}

// Profiler tracks frame rate, memory statistics, and renderer counters for
// performance monitoring. Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	frame FrameStats
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		frameCount:     0,
		lastTime:       time.Now(),
		updateInterval: time.Second,
		memStats:       runtime.MemStats{},
	}
}

// SetFrameStats records the renderer counters to include in the next
// interval report. Call once per frame before Tick.
//
// Parameters:
//   - stats: the counters sampled for the frame
func (p *Profiler) SetFrameStats(stats FrameStats) {
	p.frame = stats
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times,
// draw count, and pipeline cache hit rate.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed >= p.updateInterval {
		fps := float64(p.frameCount) / elapsed.Seconds()

		runtime.ReadMemStats(&p.memStats)
		// Alloc: Bytes of allocated heap objects (live memory)
		// TotalAlloc: Cumulative bytes allocated for heap objects (increases forever, tracks churn)
		// Sys: Total bytes of memory obtained from the OS (actual process footprint)
		allocMB := float64(p.memStats.Alloc) / 1024 / 1024
		sysMB := float64(p.memStats.Sys) / 1024 / 1024

		// Calculate allocation rate (MB/sec)
		allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
		allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

		// Calculate GC pause stats (last pause and max recent pause)
		gcCount := p.memStats.NumGC
		var lastPauseUs, maxPauseUs uint64
		if gcCount > 0 {
			// PauseNs is a circular buffer of last 256 GC pauses
			lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

			// Find max pause since last tick
			startIdx := p.lastGCCount
			if gcCount-startIdx > 256 {
				startIdx = gcCount - 256
			}
			for i := startIdx; i < gcCount; i++ {
				pause := p.memStats.PauseNs[i%256] / 1000
				if pause > maxPauseUs {
					maxPauseUs = pause
				}
			}
		}

		hitRate := 0.0
		if lookups := p.frame.PipelineHits + p.frame.PipelineMisses; lookups > 0 {
			hitRate = float64(p.frame.PipelineHits) / float64(lookups)
		}

		common.Logger().Info("frame stats",
			"fps", fps,
			"heap_mb", allocMB,
			"alloc_rate_mb_s", allocRateMB,
			"gc_count", gcCount,
			"gc_last_pause_us", lastPauseUs,
			"gc_max_pause_us", maxPauseUs,
			"sys_mb", sysMB,
			"draws", p.frame.DrawCount,
			"pipelines", p.frame.PipelineCount,
			"pipeline_hit_rate", hitRate,
		)

		p.frameCount = 0
		p.lastTime = currentTime
		p.lastGCCount = gcCount
		p.lastTotalAlloc = p.memStats.TotalAlloc
		return true
	}

	return false
}
