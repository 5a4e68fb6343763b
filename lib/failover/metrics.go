package failover

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// opMetrics are the counters of one logical operation
type opMetrics struct {
	calls     *metrics.Counter
	attempts  *metrics.Counter
	failures  *metrics.Counter
	rejected  *metrics.Counter
	exhausted *metrics.Counter
	duration  *metrics.Histogram
}

func (d *Dispatcher) opMetrics(op string) *opMetrics {
	if m, ok := d.ops.Load(op); ok {
		return m
	}
	m, _ := d.ops.LoadOrCompute(op, func() *opMetrics {
		name := func(metric string) string {
			return fmt.Sprintf(`%s{op=%q,instance=%q}`, metric, op, d.instance)
		}
		return &opMetrics{
			calls:     d.set.GetOrCreateCounter(name("dconf_failover_calls_total")),
			attempts:  d.set.GetOrCreateCounter(name("dconf_failover_attempts_total")),
			failures:  d.set.GetOrCreateCounter(name("dconf_failover_attempt_failures_total")),
			rejected:  d.set.GetOrCreateCounter(name("dconf_failover_rejected_total")),
			exhausted: d.set.GetOrCreateCounter(name("dconf_failover_exhausted_total")),
			duration:  d.set.GetOrCreateHistogram(name("dconf_failover_duration_seconds")),
		}
	})
	return m
}

func (d *Dispatcher) registerGauges() {
	d.set.GetOrCreateGauge(fmt.Sprintf(`dconf_failover_available_endpoints{instance=%q}`, d.instance), func() float64 {
		n := 0
		for _, ep := range d.tracker.Endpoints() {
			if d.tracker.IsAvailable(ep) {
				n++
			}
		}
		return float64(n)
	})
}
