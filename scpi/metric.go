package scpi

import (
	"sync/atomic"
)

// LinkMetrics contains atomic metrics for a link.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type LinkMetrics struct {
	// ConnectCount indicates the number of successful connects.
	ConnectCount atomic.Uint64
	// ConnectErrCount indicates the number of failed connect attempts.
	ConnectErrCount atomic.Uint64

	// CommandSendCount indicates the number of commands sent.
	CommandSendCount atomic.Uint64
	// CommandErrCount indicates the number of command send errors.
	CommandErrCount atomic.Uint64

	// QueryCount indicates the number of completed queries.
	QueryCount atomic.Uint64
	// QueryErrCount indicates the number of failed queries.
	QueryErrCount atomic.Uint64
	// QueryTimeoutCount indicates the number of queries that hit the
	// response timeout.
	QueryTimeoutCount atomic.Uint64
}

func (m *LinkMetrics) incConnectCount() {
	m.ConnectCount.Add(1)
}

func (m *LinkMetrics) incConnectErrCount() {
	m.ConnectErrCount.Add(1)
}

func (m *LinkMetrics) incCommandSendCount() {
	m.CommandSendCount.Add(1)
}

func (m *LinkMetrics) incCommandErrCount() {
	m.CommandErrCount.Add(1)
}

func (m *LinkMetrics) incQueryCount() {
	m.QueryCount.Add(1)
}

func (m *LinkMetrics) incQueryErrCount() {
	m.QueryErrCount.Add(1)
}

func (m *LinkMetrics) incQueryTimeoutCount() {
	m.QueryTimeoutCount.Add(1)
}
