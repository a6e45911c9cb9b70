// internal/publish/builder.go
package publish

import (
	"errors"

	cfg "github.com/tamzrod/meter-bridge/internal/config"
)

// BuildPlan converts the register table into a routing plan.
// Assumes config has already passed validation.
func BuildPlan(c *cfg.Config) (Plan, error) {
	if c == nil || c.Name == "" {
		return Plan{}, errors.New("publish: name required")
	}

	plan := Plan{
		RunTopic:     c.Name + "/run",
		CheckupTopic: c.Name + "/checkup",
	}

	for slot, r := range c.Registers {
		key := c.MQTTPrefix + "_" + r.Name

		if r.Flags.Has(cfg.FlagRun) {
			plan.Run = append(plan.Run, Route{Slot: slot, Key: key})
		}
		if r.Flags.Has(cfg.FlagCheckup) {
			plan.Checkup = append(plan.Checkup, Route{Slot: slot, Key: key})
		}
		if r.Flags.Has(cfg.FlagSideChannel) {
			plan.SideChannel = append(plan.SideChannel, Route{
				Slot:  slot,
				Topic: c.LLName + "/" + r.Name,
			})
		}
	}

	return plan, nil
}
