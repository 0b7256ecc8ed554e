// Package metrics provides standardised metric emission for job lifecycle and
// notification delivery events.
package metrics

import (
	"time"

	apperrors "github.com/soundscribe/soundscribe/internal/errors"
	"github.com/soundscribe/soundscribe/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// JobMetric captures details about a job lifecycle event for metric emission.
type JobMetric struct {
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitJobLifecycle emits standardised job lifecycle metrics.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.Err != nil && in.Result == ResultError {
		tags["error_kind"] = apperrors.KindLabel(in.Err)
	}

	sink.Count("job.transition", 1, tags)

	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, CloneTags(tags))
	}
}

// DeliveryMetric captures details about one notification delivery outcome.
type DeliveryMetric struct {
	Target   string
	Result   string
	Attempts int
	Duration time.Duration
}

// EmitDelivery emits standardised notification delivery metrics.
func EmitDelivery(sink statsd.Sink, in DeliveryMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"target": in.Target,
		"result": in.Result,
	}

	sink.Count("notify.delivery", 1, tags)
	if in.Attempts > 0 {
		sink.Count("notify.attempts", int64(in.Attempts), CloneTags(tags))
	}
	if in.Duration > 0 {
		sink.Timing("notify.duration", in.Duration, CloneTags(tags))
	}
}

// EmitSweep emits registry sweep metrics.
func EmitSweep(sink statsd.Sink, evicted int, elapsed time.Duration) {
	if sink == nil {
		return
	}

	result := ResultNoop
	if evicted > 0 {
		result = ResultSuccess
	}
	tags := map[string]string{"result": result}

	sink.Count("reaper.sweep", 1, tags)
	if evicted > 0 {
		sink.Count("reaper.evicted", int64(evicted), CloneTags(tags))
	}
	if elapsed > 0 {
		sink.Timing("reaper.sweep_duration", elapsed, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
