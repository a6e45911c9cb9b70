// internal/publish/types.go
package publish

// Route is one register selected for one destination.
type Route struct {
	Slot  int    // register store slot
	Key   string // aggregate payload key (<mqtt_prefix>_<name>)
	Topic string // side-channel topic (<ll_name>/<name>); empty for aggregates
}

// Plan is the fully-built routing table.
// Built once at startup; never mutated.
type Plan struct {
	RunTopic     string // <name>/run
	CheckupTopic string // <name>/checkup

	Run         []Route // bit0
	Checkup     []Route // bit1
	SideChannel []Route // bit2
}

// Publisher delivers one message to the bus.
type Publisher interface {
	Publish(topic string, payload []byte, retain bool) error
}
