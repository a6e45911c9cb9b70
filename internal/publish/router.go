// internal/publish/router.go
package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/tamzrod/meter-bridge/internal/register"
)

// Router turns register snapshots into bus messages.
// Periodic and Checkup may run on different goroutines; Router holds
// no mutable state.
type Router struct {
	plan Plan
	pub  Publisher
	log  *slog.Logger
	now  func() time.Time
}

// New builds a router over plan.
func New(plan Plan, pub Publisher, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		plan: plan,
		pub:  pub,
		log:  log,
		now:  time.Now,
	}
}

// Periodic publishes the bit0 aggregate. Called once per poll tick.
func (r *Router) Periodic(snap register.Snapshot) error {
	return r.notify(r.plan.RunTopic, aggregate(r.plan.Run, snap))
}

// Checkup answers an on-demand request: every bit2 register is published on
// its own side-channel topic, then the bit1 aggregate.
func (r *Router) Checkup(snap register.Snapshot) error {
	var errs []error

	for _, rt := range r.plan.SideChannel {
		data := strconv.FormatFloat(snap.Value(rt.Slot), 'f', 3, 64)
		if err := r.pub.Publish(rt.Topic, []byte(data), false); err != nil {
			r.log.Error("side-channel publish failed", "topic", rt.Topic, "error", err)
			errs = append(errs, fmt.Errorf("publish %s: %w", rt.Topic, err))
		}
	}

	if err := r.notify(r.plan.CheckupTopic, aggregate(r.plan.Checkup, snap)); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// notify timestamps, serializes and publishes one aggregate.
func (r *Router) notify(topic string, params map[string]any) error {
	params["time"] = epochSeconds(r.now())
	r.log.Debug("payload", "topic", topic, "params", params)

	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("publish: marshal %s: %w", topic, err)
	}

	if err := r.pub.Publish(topic, data, false); err != nil {
		r.log.Error("publish failed", "topic", topic, "error", err)
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	r.log.Info("published", "topic", topic)
	return nil
}

// ---- helpers ----

// aggregate copies the routed slots out of the snapshot.
// Non-finite values become JSON null.
func aggregate(routes []Route, snap register.Snapshot) map[string]any {
	out := make(map[string]any, len(routes)+1)
	for _, rt := range routes {
		v := snap.Value(rt.Slot)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[rt.Key] = nil
			continue
		}
		out[rt.Key] = v
	}
	return out
}

// epochSeconds formats t as fractional epoch seconds, e.g. "1700000000.25".
func epochSeconds(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixNano())/1e9, 'f', -1, 64)
}
