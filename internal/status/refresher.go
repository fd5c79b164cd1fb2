// Copyright 2025 The Skydash Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package status

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/sync/parallel"
	"go.chromium.org/luci/common/tsmon/metric"
)

var (
	refreshCycles = metric.NewCounter(
		"skydash/status/refresh_cycles",
		"The number of status refresh cycles attempted.",
		nil,
	)
	refreshFailures = metric.NewCounter(
		"skydash/status/refresh_failures",
		"The number of status refresh cycles that published nothing.",
		nil,
	)
)

// Default knobs, matching the cadence the dashboard has always used.
const (
	DefaultInterval     = 10 * time.Second
	DefaultFollowUp     = 10 * time.Second
	DefaultFetchTimeout = 30 * time.Second
)

// Refresher periodically rebuilds the fleet status snapshot and publishes it
// into a Cache.
//
// It is either idle or refreshing. A refresh starts on a periodic tick or on
// an explicit Trigger from a mutating operation. Triggers arriving while a
// refresh is in flight coalesce into at most one pending re-run, never one
// per trigger. A cycle is all-or-nothing: if any sub-fetch fails, nothing is
// published this cycle and the previous snapshot stays visible; the next tick
// retries everything.
type Refresher struct {
	// Interval is the periodic refresh cadence.
	Interval time.Duration

	// FollowUp is how long after an explicit trigger to run the second catch-up
	// cycle, giving mutations (say, a freshly uploaded app) time to settle.
	FollowUp time.Duration

	// FetchTimeout bounds each individual sub-fetch.
	FetchTimeout time.Duration

	cache  *Cache
	source Source

	wake     chan struct{} // pending refresh request, capacity 1
	followUp chan struct{} // pending delayed re-trigger request, capacity 1

	busy   sync.Mutex // held for the duration of one cycle
	cycles atomic.Int64
}

// NewRefresher returns a Refresher publishing into cache from source, with
// default timing knobs.
func NewRefresher(cache *Cache, source Source) *Refresher {
	return &Refresher{
		Interval:     DefaultInterval,
		FollowUp:     DefaultFollowUp,
		FetchTimeout: DefaultFetchTimeout,
		cache:        cache,
		source:       source,
		wake:         make(chan struct{}, 1),
		followUp:     make(chan struct{}, 1),
	}
}

// Trigger requests a refresh as soon as possible, plus a catch-up cycle
// FollowUp later.
//
// Safe to call from any goroutine and to call redundantly: requests landing
// while a cycle is in flight coalesce into a single pending re-run.
func (r *Refresher) Trigger() {
	r.wakeUp()
	select {
	case r.followUp <- struct{}{}:
	default:
	}
}

func (r *Refresher) wakeUp() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Cycles returns the number of refresh cycles attempted so far.
func (r *Refresher) Cycles() int64 {
	return r.cycles.Load()
}

// Run drives refresh cycles until the context is canceled.
//
// Meant to run as the server's background activity, independent of request
// handling. Cancellation abandons any scheduling state; a later restart
// simply derives a fresh snapshot.
func (r *Refresher) Run(ctx context.Context) {
	// Delayed re-triggers get their own timer loop so a Trigger from a dying
	// request context still produces its catch-up cycle.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.followUp:
				if res := <-clock.After(ctx, r.FollowUp); res.Err == nil {
					r.wakeUp()
				}
			}
		}
	}()

	for {
		tick := clock.After(ctx, r.Interval)
		select {
		case <-ctx.Done():
			return
		case <-r.wake:
		case res := <-tick:
			if res.Err != nil {
				return
			}
		}
		if err := r.RefreshNow(ctx); err != nil && ctx.Err() == nil {
			// Don't log the error if the server is shutting down.
			logging.Warningf(ctx, "Status refresh cycle failed, keeping previous snapshot: %s", err)
		}
	}
}

// RefreshNow runs one refresh cycle synchronously.
//
// Gathers machine stats, database health, API availability and application
// info in parallel, each under FetchTimeout, and publishes the assembled
// snapshot only if every sub-fetch succeeded. Also the cron entrypoint.
func (r *Refresher) RefreshNow(ctx context.Context) error {
	r.busy.Lock()
	defer r.busy.Unlock()

	r.cycles.Add(1)
	refreshCycles.Add(ctx, 1)

	snap := &Snapshot{}
	err := parallel.FanOutIn(func(work chan<- func() error) {
		work <- r.subFetch(ctx, "machine stats", func(ctx context.Context) (err error) {
			snap.Servers, err = r.source.MachineStats(ctx)
			return
		})
		work <- r.subFetch(ctx, "database info", func(ctx context.Context) (err error) {
			snap.Database, err = r.source.DatabaseInfo(ctx)
			return
		})
		work <- r.subFetch(ctx, "api status", func(ctx context.Context) (err error) {
			snap.Services, err = r.source.APIStatus(ctx)
			return
		})
		work <- r.subFetch(ctx, "application info", func(ctx context.Context) (err error) {
			snap.Apps, err = r.source.Applications(ctx)
			return
		})
	})
	if err != nil {
		refreshFailures.Add(ctx, 1)
		return errors.Annotate(err, "refreshing status snapshot")
	}

	snap.Updated = clock.Now(ctx).UTC()
	r.cache.Publish(snap)
	return nil
}

// subFetch wraps one collaborator fetch with its timeout. A timed-out fetch
// is that fetch's failure, not a crash of the cycle.
func (r *Refresher) subFetch(ctx context.Context, name string, f func(context.Context) error) func() error {
	return func() error {
		fctx, cancel := clock.WithTimeout(ctx, r.FetchTimeout)
		defer cancel()
		if err := f(fctx); err != nil {
			logging.Errorf(ctx, "Fetching %s failed: %s", name, err)
			return errors.Annotate(err, "fetching %s", name)
		}
		return nil
	}
}
