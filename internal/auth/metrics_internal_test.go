// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_TokensIssuedCountsPresentTokens(t *testing.T) {
	tests := []struct {
		name        string
		pair        *TokenPair
		wantAccess  float64
		wantRefresh float64
	}{
		{name: "full pair", pair: &TokenPair{AccessToken: "a", RefreshToken: "r"}, wantAccess: 1, wantRefresh: 1},
		{name: "access only", pair: &TokenPair{AccessToken: "a"}, wantAccess: 1},
		{name: "refresh only", pair: &TokenPair{RefreshToken: "r"}, wantRefresh: 1},
		{name: "empty pair", pair: &TokenPair{}},
		{name: "nil pair", pair: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMetrics(prometheus.NewRegistry())

			m.tokensIssued(tt.pair)

			assert.InDelta(t, tt.wantAccess, testutil.ToFloat64(m.TokensIssuedTotal.WithLabelValues("access")), 0)
			assert.InDelta(t, tt.wantRefresh, testutil.ToFloat64(m.TokensIssuedTotal.WithLabelValues("refresh")), 0)
		})
	}
}

func TestMetrics_NilRecordsNothing(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.tokensIssued(&TokenPair{AccessToken: "a", RefreshToken: "r"})
		m.observe(OpAuthenticate, 0, nil)
	})
}
