package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/smazurov/kbdlight/internal/sysfswatch"
)

// WatchObserver records sysfswatch.Notifier statistics. One observer serves
// every notifier; the notifier name is the watcher label.
type WatchObserver struct {
	ticks         *prometheus.CounterVec
	changes       *prometheus.CounterVec
	notifications *prometheus.CounterVec
	suppressed    *prometheus.CounterVec
	scanErrors    *prometheus.CounterVec
	scanDuration  *prometheus.HistogramVec
}

var _ sysfswatch.Observer = (*WatchObserver)(nil)

// NewWatchObserver registers the watcher metrics on reg.
func NewWatchObserver(reg prometheus.Registerer) *WatchObserver {
	f := promauto.With(reg)
	return &WatchObserver{
		ticks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "ticks_total",
			Help:      "Completed poll ticks",
		}, []string{"watcher"}),
		changes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "changes_total",
			Help:      "Ticks that detected at least one changed entry",
		}, []string{"watcher"}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "notifications_total",
			Help:      "Change callbacks invoked",
		}, []string{"watcher"}),
		suppressed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "suppressed_total",
			Help:      "Detected changes that were not delivered",
		}, []string{"watcher", "reason"}),
		scanErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "scan_errors_total",
			Help:      "Entries excluded from a snapshot because they could not be read",
		}, []string{"watcher"}),
		scanDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "scan_duration_seconds",
			Help:      "Time spent scanning the watched tree",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"watcher"}),
	}
}

// TickCompleted implements sysfswatch.Observer.
func (o *WatchObserver) TickCompleted(watcher string, took time.Duration, changed bool) {
	o.ticks.WithLabelValues(watcher).Inc()
	o.scanDuration.WithLabelValues(watcher).Observe(took.Seconds())
	if changed {
		o.changes.WithLabelValues(watcher).Inc()
	}
}

// EntryFailed implements sysfswatch.Observer.
func (o *WatchObserver) EntryFailed(watcher, _ string, _ error) {
	o.scanErrors.WithLabelValues(watcher).Inc()
}

// Delivered implements sysfswatch.Observer.
func (o *WatchObserver) Delivered(watcher string) {
	o.notifications.WithLabelValues(watcher).Inc()
}

// Dropped implements sysfswatch.Observer.
func (o *WatchObserver) Dropped(watcher string, reason sysfswatch.DropReason) {
	o.suppressed.WithLabelValues(watcher, string(reason)).Inc()
}
