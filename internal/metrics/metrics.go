package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Collector holds the engine's counters in a private registry. A nil
// *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	bytes      *prometheus.CounterVec
	shredBytes prometheus.Counter
	vaultFiles *prometheus.GaugeVec
}

// New creates a collector with its own registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "knox_operations_total",
			Help: "Number of engine operations by operation and outcome",
		}, []string{"op", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "knox_operation_duration_seconds",
			Help:    "Duration of engine operations",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"op"}),
		bytes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "knox_plaintext_bytes_total",
			Help: "Plaintext bytes processed by encrypt and decrypt",
		}, []string{"op"}),
		shredBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "knox_shred_overwritten_bytes_total",
			Help: "Bytes overwritten by secure deletion, summed over passes",
		}),
		vaultFiles: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "knox_vault_files",
			Help: "Number of files in each vault after the last manifest write",
		}, []string{"vault"}),
	}
}

// ObserveOperation counts an operation and records its duration.
func (c *Collector) ObserveOperation(op, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.operations.WithLabelValues(op, status).Inc()
	c.duration.WithLabelValues(op).Observe(d.Seconds())
}

// AddBytes counts plaintext bytes processed by op.
func (c *Collector) AddBytes(op string, n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.bytes.WithLabelValues(op).Add(float64(n))
}

// AddShredBytes counts bytes overwritten by a shred.
func (c *Collector) AddShredBytes(n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.shredBytes.Add(float64(n))
}

// SetVaultFiles records the file count of a vault.
func (c *Collector) SetVaultFiles(vaultID string, n int) {
	if c == nil {
		return
	}
	c.vaultFiles.WithLabelValues(vaultID).Set(float64(n))
}

// ForgetVault drops the gauge of a deleted vault.
func (c *Collector) ForgetVault(vaultID string) {
	if c == nil {
		return
	}
	c.vaultFiles.DeleteLabelValues(vaultID)
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteText writes every metric in the Prometheus text exposition format.
func (c *Collector) WriteText(w io.Writer) error {
	if c == nil {
		return nil
	}

	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encoding metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
