package matcher

import (
	"log"

	"github.com/robfig/cron/v3"

	"github.com/bridgeswap/settlement-engine/internal/matchcache"
	"github.com/bridgeswap/settlement-engine/internal/model"
	"github.com/bridgeswap/settlement-engine/internal/ruleengine"
	"github.com/bridgeswap/settlement-engine/internal/store"
)

// Cron schedule from spec.md §6, expressed as cron entries rather than
// a raw time.Sleep loop. 3, 5 and 6 divide 60, so standard 5-field
// "*/N" fires every N minutes aligned to the wall clock; 7 does not
// ("*/7" would leave a 4-minute gap from :56 to :00), so the V1 dest
// sweep uses an "@every" interval counted from scheduler start.
const (
	cronV1SourceSweep = "*/5 * * * *"
	cronV1DestSweep   = "@every 7m"
	cronV2SourceSweep = "*/3 * * * *"
	cronV2DestSweep   = "*/6 * * * *"
)

// Scheduler owns the four sweep jobs and the cron runner driving them.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler wires both version families' sweeps onto their cadence
// from spec.md §6. recover() per job entry means one sweep's panic
// never takes down the others sharing this process.
func NewScheduler(bridgeStore *store.BridgeStore, cache *matchcache.Cache, registry *ruleengine.Registry) *Scheduler {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))

	v1Source := NewSourceSweep(bridgeStore, cache, registry.For(model.VersionV1Source), []model.Version{model.VersionV1Source})
	v1Dest := NewDestSweep(bridgeStore, cache, []model.Version{model.VersionV1Dest})
	v2Source := NewSourceSweep(bridgeStore, cache, registry.For(model.VersionV2Source), []model.Version{model.VersionV2Source})
	v2Dest := NewDestSweep(bridgeStore, cache, []model.Version{model.VersionV2Dest})

	mustAdd(c, cronV1SourceSweep, "v1 source sweep", v1Source.Run)
	mustAdd(c, cronV1DestSweep, "v1 dest sweep", v1Dest.Run)
	mustAdd(c, cronV2SourceSweep, "v2 source sweep", v2Source.Run)
	mustAdd(c, cronV2DestSweep, "v2 dest sweep", v2Dest.Run)

	return &Scheduler{cron: c}
}

func mustAdd(c *cron.Cron, spec, name string, run func() error) {
	_, err := c.AddFunc(spec, func() {
		if err := run(); err != nil {
			log.Printf("matcher: %s tick failed: %v", name, err)
		}
	})
	if err != nil {
		log.Fatalf("matcher: invalid cron schedule for %s: %v", name, err)
	}
}

func (s *Scheduler) Start() { s.cron.Start() }

func (s *Scheduler) Stop() { s.cron.Stop() }
