package metrics

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/aidis/internal/aidiserr"
)

func TestRecordInvocation_NeverPanicsOnSuccess(t *testing.T) {
	m := NewDispatch(zap.NewNop())
	m.RecordInvocation(context.Background(), "context_store", 10*time.Millisecond, nil)
}

func TestRecordInvocation_NeverPanicsOnAIDISError(t *testing.T) {
	m := NewDispatch(zap.NewNop())
	m.RecordInvocation(context.Background(), "context_store", time.Millisecond, aidiserr.New(aidiserr.KindValidation, "bad input"))
}

func TestCategorizeError_ReturnsUnknownForNonAIDISError(t *testing.T) {
	if got := categorizeError(nil); got != "unknown_error" {
		t.Fatalf("expected unknown_error for nil, got %q", got)
	}
}

func TestActiveRequestGauge_IncrementDecrementDoNotPanic(t *testing.T) {
	m := NewDispatch(zap.NewNop())
	ctx := context.Background()
	m.IncrementActive(ctx, "context_search")
	m.DecrementActive(ctx, "context_search")
}
