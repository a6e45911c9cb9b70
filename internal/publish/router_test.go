// internal/publish/router_test.go
package publish

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"sort"
	"testing"
	"time"

	cfg "github.com/tamzrod/meter-bridge/internal/config"
	"github.com/tamzrod/meter-bridge/internal/register"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// ---- fake publisher ----

type message struct {
	topic   string
	payload []byte
	retain  bool
}

type fakePublisher struct {
	msgs []message
	fail map[string]bool
}

func (f *fakePublisher) Publish(topic string, payload []byte, retain bool) error {
	if f.fail[topic] {
		return errors.New("broker down")
	}
	f.msgs = append(f.msgs, message{topic: topic, payload: payload, retain: retain})
	return nil
}

func (f *fakePublisher) topics() []string {
	var out []string
	for _, m := range f.msgs {
		out = append(out, m.topic)
	}
	return out
}

// ---- fixtures ----

func testConfig() *cfg.Config {
	return &cfg.Config{
		Name:       "power",
		MQTTPrefix: "pm",
		LLName:     "ll",
		Registers: []cfg.RegisterEntry{
			{Name: "dt", Flags: cfg.FlagRun},
			{Name: "voltage", Flags: cfg.FlagRun | cfg.FlagCheckup},
			{Name: "energy", Flags: cfg.FlagCheckup},
			{Name: "serial", Flags: cfg.FlagSideChannel},
			{Name: "unused", Flags: 0},
			{Name: "firmware", Flags: cfg.FlagCheckup | cfg.FlagSideChannel},
		},
	}
}

func testSnapshot() register.Snapshot {
	snap := make(register.Snapshot, register.StoreSlots)
	snap[0] = 1.0
	snap[1] = 230.5
	snap[2] = 1234.25
	snap[3] = 42.123456
	snap[4] = 7
	snap[5] = 3.1
	return snap
}

func newRouter(t *testing.T, pub Publisher) *Router {
	t.Helper()
	plan, err := BuildPlan(testConfig())
	if err != nil {
		t.Fatalf("BuildPlan err=%v", err)
	}
	r := New(plan, pub, quiet)
	r.now = func() time.Time { return time.Unix(1_700_000_000, 500_000_000) }
	return r
}

func decode(t *testing.T, payload []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		t.Fatalf("payload is not JSON: %v (%s)", err, payload)
	}
	return m
}

func keys(m map[string]any) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ---- tests ----

func TestBuildPlan_Routes(t *testing.T) {
	plan, err := BuildPlan(testConfig())
	if err != nil {
		t.Fatalf("BuildPlan err=%v", err)
	}

	if plan.RunTopic != "power/run" || plan.CheckupTopic != "power/checkup" {
		t.Fatalf("topics: %q %q", plan.RunTopic, plan.CheckupTopic)
	}
	if len(plan.Run) != 2 || len(plan.Checkup) != 3 || len(plan.SideChannel) != 2 {
		t.Fatalf("route counts run=%d checkup=%d side=%d",
			len(plan.Run), len(plan.Checkup), len(plan.SideChannel))
	}
	if plan.SideChannel[1].Topic != "ll/firmware" || plan.SideChannel[1].Slot != 5 {
		t.Fatalf("side route=%+v", plan.SideChannel[1])
	}
}

func TestBuildPlan_NameRequired(t *testing.T) {
	if _, err := BuildPlan(&cfg.Config{}); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestPeriodic_KeysAreBit0Registers(t *testing.T) {
	pub := &fakePublisher{}
	r := newRouter(t, pub)

	if err := r.Periodic(testSnapshot()); err != nil {
		t.Fatalf("Periodic err=%v", err)
	}

	// never any side-channel traffic from the periodic path
	if !equal(pub.topics(), []string{"power/run"}) {
		t.Fatalf("topics=%v", pub.topics())
	}
	if pub.msgs[0].retain {
		t.Fatalf("periodic payload retained")
	}

	m := decode(t, pub.msgs[0].payload)
	if got, want := keys(m), []string{"pm_dt", "pm_voltage", "time"}; !equal(got, want) {
		t.Fatalf("keys=%v want=%v", got, want)
	}
	if m["pm_voltage"] != 230.5 {
		t.Fatalf("pm_voltage=%v", m["pm_voltage"])
	}
	if m["time"] != "1700000000.5" {
		t.Fatalf("time=%v", m["time"])
	}
}

func TestCheckup_AggregateAndSideChannel(t *testing.T) {
	pub := &fakePublisher{}
	r := newRouter(t, pub)

	if err := r.Checkup(testSnapshot()); err != nil {
		t.Fatalf("Checkup err=%v", err)
	}

	want := []string{"ll/serial", "ll/firmware", "power/checkup"}
	if !equal(pub.topics(), want) {
		t.Fatalf("topics=%v want=%v", pub.topics(), want)
	}

	if string(pub.msgs[0].payload) != "42.123" {
		t.Fatalf("serial payload=%q", pub.msgs[0].payload)
	}
	if string(pub.msgs[1].payload) != "3.100" {
		t.Fatalf("firmware payload=%q", pub.msgs[1].payload)
	}

	m := decode(t, pub.msgs[2].payload)
	if got, want := keys(m), []string{"pm_energy", "pm_firmware", "pm_voltage", "time"}; !equal(got, want) {
		t.Fatalf("keys=%v want=%v", got, want)
	}
	for _, msg := range pub.msgs {
		if msg.retain {
			t.Fatalf("%s retained", msg.topic)
		}
	}
}

func TestCheckup_SideChannelOncePerTrigger(t *testing.T) {
	pub := &fakePublisher{}
	r := newRouter(t, pub)

	for i := 0; i < 3; i++ {
		_ = r.Periodic(testSnapshot())
	}
	_ = r.Checkup(testSnapshot())
	_ = r.Checkup(testSnapshot())

	count := map[string]int{}
	for _, topic := range pub.topics() {
		count[topic]++
	}
	if count["ll/serial"] != 2 || count["ll/firmware"] != 2 {
		t.Fatalf("side-channel counts=%v", count)
	}
	if count["power/run"] != 3 || count["power/checkup"] != 2 {
		t.Fatalf("aggregate counts=%v", count)
	}
}

func TestPeriodic_NonFiniteBecomesNull(t *testing.T) {
	pub := &fakePublisher{}
	r := newRouter(t, pub)

	snap := testSnapshot()
	snap[1] = math.NaN()
	snap[0] = math.Inf(1)

	if err := r.Periodic(snap); err != nil {
		t.Fatalf("Periodic err=%v", err)
	}

	m := decode(t, pub.msgs[0].payload)
	if v, ok := m["pm_voltage"]; !ok || v != nil {
		t.Fatalf("pm_voltage=%v present=%v", v, ok)
	}
	if v, ok := m["pm_dt"]; !ok || v != nil {
		t.Fatalf("pm_dt=%v present=%v", v, ok)
	}
}

func TestCheckup_PublishErrorsJoined(t *testing.T) {
	pub := &fakePublisher{fail: map[string]bool{"ll/serial": true, "power/checkup": true}}
	r := newRouter(t, pub)

	err := r.Checkup(testSnapshot())
	if err == nil {
		t.Fatalf("expected error, got nil")
	}

	// the remaining side channel still went out
	if !equal(pub.topics(), []string{"ll/firmware"}) {
		t.Fatalf("topics=%v", pub.topics())
	}
}
