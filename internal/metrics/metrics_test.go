package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/example/rail-scheduler/internal/rail"
	"github.com/example/rail-scheduler/internal/scheduler"
)

func TestObserver(t *testing.T) {
	o := Observer{Provider: rail.ProviderKorail}
	before := testutil.ToFloat64(Attempts.WithLabelValues("KTX"))
	o.Attempt(1, time.Second)
	o.Attempt(2, 2*time.Second)
	assert.Equal(t, before+2, testutil.ToFloat64(Attempts.WithLabelValues("KTX")))
	assert.Equal(t, 2.0, testutil.ToFloat64(Elapsed.WithLabelValues("KTX")))

	err := rail.BackendError(rail.ProviderKorail, "", "Sold out")
	o.Failure(scheduler.Classify(err), err)
	o.Failure(scheduler.Classify(errors.New("x")), errors.New("x"))
	assert.Equal(t, 1.0, testutil.ToFloat64(Failures.WithLabelValues("KTX", "sold_out")))
	assert.Equal(t, 1.0, testutil.ToFloat64(Failures.WithLabelValues("KTX", "unclassified")))

	o.Finished(scheduler.Result{State: scheduler.Succeeded, Elapsed: 90 * time.Second})
	assert.Equal(t, 1.0, testutil.ToFloat64(Runs.WithLabelValues("KTX", "succeeded")))
}
