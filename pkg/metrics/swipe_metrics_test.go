package metrics

import (
	"database/sql"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordApply(t *testing.T) {
	before := testutil.ToFloat64(ApplyCount.WithLabelValues("created"))
	RecordApply("created")
	RecordApply("created")
	if got := testutil.ToFloat64(ApplyCount.WithLabelValues("created")) - before; got != 2 {
		t.Errorf("expected 2 increments, got %v", got)
	}
}

func TestRecordClassification(t *testing.T) {
	before := testutil.ToFloat64(ClassificationCount.WithLabelValues(OutcomeCacheHit))
	RecordClassification(OutcomeCacheHit)
	if got := testutil.ToFloat64(ClassificationCount.WithLabelValues(OutcomeCacheHit)) - before; got != 1 {
		t.Errorf("expected 1 increment, got %v", got)
	}
}

func TestRecordDeckRefresh(t *testing.T) {
	RecordDeckRefresh("mock", 20*time.Millisecond, 7)
	if got := testutil.ToFloat64(DeckSize.WithLabelValues("mock")); got != 7 {
		t.Errorf("expected deck size 7, got %v", got)
	}
}

func TestRegisterDBStats_Twice(t *testing.T) {
	db := &sql.DB{}
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("second registration panicked: %v", r)
		}
	}()
	RegisterDBStats("test_pool", db)
	RegisterDBStats("test_pool", db)
}
