package metrics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	c := New()

	c.ObserveOperation("encrypt", "success", 20*time.Millisecond)
	c.ObserveOperation("encrypt", "success", 30*time.Millisecond)
	c.ObserveOperation("encrypt", "failure", time.Millisecond)
	c.AddBytes("encrypt", 1024)
	c.AddShredBytes(300)
	c.SetVaultFiles("v1", 4)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.operations.WithLabelValues("encrypt", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("encrypt", "failure")))
	assert.Equal(t, 1024.0, testutil.ToFloat64(c.bytes.WithLabelValues("encrypt")))
	assert.Equal(t, 300.0, testutil.ToFloat64(c.shredBytes))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.vaultFiles.WithLabelValues("v1")))

	c.ForgetVault("v1")
	assert.Equal(t, 0, testutil.CollectAndCount(c.vaultFiles))
}

func TestWriteText(t *testing.T) {
	c := New()
	c.ObserveOperation("shred", "success", time.Second)

	var buf bytes.Buffer
	require.NoError(t, c.WriteText(&buf))
	assert.True(t, strings.Contains(buf.String(), `knox_operations_total{op="shred",status="success"} 1`), buf.String())
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ObserveOperation("encrypt", "success", time.Second)
	c.AddBytes("encrypt", 10)
	c.AddShredBytes(10)
	c.SetVaultFiles("v", 1)
	c.ForgetVault("v")
	require.NoError(t, c.WriteText(&bytes.Buffer{}))
}
