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

// Package status maintains the cached fleet status snapshot: a background
// refresher periodically recomputes it from the cluster-status collaborators
// and publishes it wholesale for the status views to read.
package status

import (
	"sync/atomic"
	"time"
)

// MachineStats is the utilization of one machine in the fleet, passed through
// from the cluster controller as-is.
type MachineStats struct {
	Host   string  `json:"host"`
	CPU    float64 `json:"cpu"`
	Memory float64 `json:"memory"`
	Disk   float64 `json:"disk"`
}

// DatabaseInfo describes the health of the deployment's datastore backend.
type DatabaseInfo struct {
	Engine      string `json:"engine"`
	Replication int64  `json:"replication"`
}

// Snapshot is a point-in-time capture of fleet status.
//
// A Snapshot is immutable once published: the refresher builds a fresh one
// each cycle and replaces the cached one wholesale, so readers always see
// either the old complete snapshot or the new complete one, never a mix.
type Snapshot struct {
	// Servers has per-machine utilization stats.
	Servers []MachineStats `json:"servers"`

	// Database describes datastore health.
	Database DatabaseInfo `json:"database"`

	// Services maps API name to its reported availability status.
	Services map[string]string `json:"services"`

	// Apps maps application ID to the URL it is served at ("" while an app is
	// still coming up).
	Apps map[string]string `json:"apps"`

	// Updated is when this snapshot was published.
	Updated time.Time `json:"updated"`
}

// Cache holds the last published Snapshot.
//
// Single writer (the refresher), many readers. Readers of a nil snapshot have
// simply arrived before the first successful refresh cycle.
type Cache struct {
	cur atomic.Pointer[Snapshot]
}

// Get returns the last published snapshot, or nil if none was published yet.
//
// The snapshot may be stale by up to the refresh interval; there is no
// explicit staleness marker beyond the Updated field.
func (c *Cache) Get() *Snapshot {
	return c.cur.Load()
}

// Publish atomically replaces the cached snapshot.
func (c *Cache) Publish(s *Snapshot) {
	c.cur.Store(s)
}
