package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Keyboard holds the backlight state gauges and event counters.
type Keyboard struct {
	on               prometheus.Gauge
	brightness       prometheus.Gauge
	mode             prometheus.Gauge
	changes          *prometheus.CounterVec
	screenOn         prometheus.Gauge
	resumes          *prometheus.CounterVec
	permissionDenied *prometheus.CounterVec
}

// NewKeyboard registers the keyboard metrics on reg.
func NewKeyboard(reg prometheus.Registerer) *Keyboard {
	f := promauto.With(reg)
	k := &Keyboard{
		on: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "keyboard",
			Name:      "on",
			Help:      "Keyboard backlight on (1) or off (0)",
		}),
		brightness: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "keyboard",
			Name:      "brightness",
			Help:      "Keyboard backlight brightness, 0 to 255",
		}),
		mode: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "keyboard",
			Name:      "mode",
			Help:      "Keyboard backlight effect mode number",
		}),
		changes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keyboard",
			Name:      "state_changes_total",
			Help:      "Driver state changes by source",
		}, []string{"source"}),
		screenOn: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "screen",
			Name:      "on",
			Help:      "Display panel powered (1) or blanked (0)",
		}),
		resumes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "system",
			Name:      "resumes_total",
			Help:      "Detected resumes from sleep by source",
		}, []string{"source"}),
		permissionDenied: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keyboard",
			Name:      "permission_denied_total",
			Help:      "Attribute writes refused by the kernel",
		}, []string{"role"}),
	}
	k.screenOn.Set(1)
	return k
}

// SetState updates the gauges from a role-name to value map. Values that do
// not parse leave the gauge unchanged.
func (k *Keyboard) SetState(state map[string]string) {
	setFromString(k.on, state["state"])
	setFromString(k.brightness, state["brightness"])
	setFromString(k.mode, state["mode"])
}

// CountChange counts one state change from source.
func (k *Keyboard) CountChange(source string) {
	k.changes.WithLabelValues(source).Inc()
}

// SetScreenOn records the panel state.
func (k *Keyboard) SetScreenOn(on bool) {
	if on {
		k.screenOn.Set(1)
	} else {
		k.screenOn.Set(0)
	}
}

// CountResume counts one resume.
func (k *Keyboard) CountResume(source string) {
	k.resumes.WithLabelValues(source).Inc()
}

// CountPermissionDenied counts one refused write.
func (k *Keyboard) CountPermissionDenied(role string) {
	k.permissionDenied.WithLabelValues(role).Inc()
}

func setFromString(g prometheus.Gauge, value string) {
	if value == "" {
		return
	}
	if v, err := strconv.ParseFloat(value, 64); err == nil {
		g.Set(v)
	}
}
