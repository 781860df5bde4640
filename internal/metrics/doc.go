// Package metrics counts engine activity with Prometheus collectors.
//
// Each Collector owns a registry rather than using the global default, so
// several engines in one process (or in one test binary) never share
// counters. WriteText renders the registry in the text exposition format
// for the ipc "metrics" channel and the CLI.
package metrics
