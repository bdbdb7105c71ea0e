package jobs

import (
	"RainMatrix/src/metrics"
	"RainMatrix/src/types"
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

const pruneTimeout = 30 * time.Second

// Pruner removes expired rows from the page cache on a cron schedule.
type Pruner struct {
	cache types.PageCache
	cron  *cron.Cron
}

func NewPruner(cache types.PageCache, spec string) (*Pruner, error) {
	p := &Pruner{
		cache: cache,
		cron:  cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
	if _, err := p.cron.AddFunc(spec, p.RunOnce); err != nil {
		return nil, errors.Wrapf(err, "invalid prune schedule %q", spec)
	}
	return p, nil
}

func (p *Pruner) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()

	n, err := p.cache.Prune(ctx)
	if err != nil {
		log.WithError(err).Warn("cache prune failed")
		return
	}
	metrics.RecordCachePruned(n)
	if n > 0 {
		log.WithField("rows", n).Info("pruned expired cache rows")
	}
}

func (p *Pruner) Start() {
	p.cron.Start()
}

// Stop halts scheduling and waits for a running prune to finish.
func (p *Pruner) Stop() {
	<-p.cron.Stop().Done()
}
