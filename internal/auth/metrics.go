// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records service outcomes. A nil *Metrics records nothing.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	TokensIssuedTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the service metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenauth_operations_total",
				Help: "Total number of auth operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tokenauth_operation_duration_seconds",
				Help:    "Duration of auth operations, including password hashing",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		TokensIssuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenauth_tokens_issued_total",
				Help: "Total number of tokens issued by type",
			},
			[]string{"type"},
		),
	}

	reg.MustRegister(m.OperationsTotal)
	reg.MustRegister(m.OperationDuration)
	reg.MustRegister(m.TokensIssuedTotal)

	return m
}

func (m *Metrics) observe(operation string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(operation, Outcome(err)).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// tokensIssued counts the signed tokens present in pair.
func (m *Metrics) tokensIssued(pair *TokenPair) {
	if m == nil || pair == nil {
		return
	}
	if pair.AccessToken != "" {
		m.TokensIssuedTotal.WithLabelValues(TokenTypeAccess.String()).Inc()
	}
	if pair.RefreshToken != "" {
		m.TokensIssuedTotal.WithLabelValues(TokenTypeRefresh.String()).Inc()
	}
}

// Outcome returns the metric label for err: "success", the lower-cased kind
// code without its AUTH_ prefix, or "error" for errors without a kind.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	code := KindCode(err)
	if code == "" {
		return "error"
	}
	return strings.ToLower(strings.TrimPrefix(code, "AUTH_"))
}
