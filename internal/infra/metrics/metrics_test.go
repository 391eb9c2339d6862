//go:build !integration

package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIncAdminAction_LabelsStatus(t *testing.T) {
	ok := adminActionTotal.WithLabelValues("feature_register", "ok")
	failed := adminActionTotal.WithLabelValues("feature_register", "error")
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	IncAdminAction(" Feature_Register ", nil)
	IncAdminAction("feature_register", errors.New("boom"))

	if got := testutil.ToFloat64(ok) - okBefore; got != 1 {
		t.Errorf("expected one ok action, got %v", got)
	}
	if got := testutil.ToFloat64(failed) - failedBefore; got != 1 {
		t.Errorf("expected one failed action, got %v", got)
	}
}

func TestObserveHTTPRequest_UnmatchedRoute(t *testing.T) {
	c := httpRequestsTotal.WithLabelValues("GET", "unmatched", "404")
	before := testutil.ToFloat64(c)
	ObserveHTTPRequest("GET", "", 404, 1.5)
	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("expected request under 'unmatched', got delta %v", got)
	}
}

func TestSetDBPoolStats(t *testing.T) {
	SetDBPoolStats("SQLite", PoolStats{Total: 3, Idle: 1, InUse: 2})
	if got := testutil.ToFloat64(dbPoolStats.WithLabelValues("sqlite", "in_use")); got != 2 {
		t.Errorf("expected in_use=2, got %v", got)
	}
}

func TestMustRegister_Idempotent(t *testing.T) {
	MustRegister()
	MustRegister()
}
