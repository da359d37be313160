package hosted

import (
	prom "github.com/prometheus/client_golang/prometheus"
)

// Metrics is the set of collectors a Services instance updates. Each
// instance owns its collectors so several machines can live in one process;
// register them with Collectors.
type Metrics struct {
	Regions           *prom.GaugeVec
	RegionOps         *prom.CounterVec
	Interrupts        *prom.CounterVec
	DeferredTasks     *prom.CounterVec
	SemaphoreTimeouts prom.Counter
	ConsoleDropped    prom.Counter
	Signals           *prom.CounterVec
}

// NewMetrics returns unregistered collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		Regions: prom.NewGaugeVec(
			prom.GaugeOpts{
				Name: "osl_live_regions",
				Help: "Current number of live mappings and allocations",
			},
			[]string{"kind"}),
		RegionOps: prom.NewCounterVec(
			prom.CounterOpts{
				Name: "osl_region_operations_total",
				Help: "Map, unmap, allocate and free calls by result",
			},
			[]string{"op", "status"}),
		Interrupts: prom.NewCounterVec(
			prom.CounterOpts{
				Name: "osl_interrupts_total",
				Help: "Interrupt deliveries by level and handler verdict",
			},
			[]string{"level", "result"}),
		DeferredTasks: prom.NewCounterVec(
			prom.CounterOpts{
				Name: "osl_deferred_tasks_total",
				Help: "Deferred procedure calls by type and outcome",
			},
			[]string{"type", "outcome"}),
		SemaphoreTimeouts: prom.NewCounter(
			prom.CounterOpts{
				Name: "osl_semaphore_timeouts_total",
				Help: "Mutex and semaphore waits that timed out",
			}),
		ConsoleDropped: prom.NewCounter(
			prom.CounterOpts{
				Name: "osl_console_dropped_total",
				Help: "Console writes dropped because the buffer was full",
			}),
		Signals: prom.NewCounterVec(
			prom.CounterOpts{
				Name: "osl_signals_total",
				Help: "Firmware signals by function",
			},
			[]string{"function"}),
	}
}

// Collectors returns every collector for registration.
func (m *Metrics) Collectors() []prom.Collector {
	return []prom.Collector{
		m.Regions,
		m.RegionOps,
		m.Interrupts,
		m.DeferredTasks,
		m.SemaphoreTimeouts,
		m.ConsoleDropped,
		m.Signals,
	}
}
