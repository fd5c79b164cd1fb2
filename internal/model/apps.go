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

package model

import (
	"time"

	"go.chromium.org/luci/gae/service/datastore"
)

// RequestPoint is one sample of an application's request rate, reported by
// the external telemetry agent.
type RequestPoint struct {
	Timestamp time.Time `gae:"timestamp"`
	Rate      float64   `gae:"num_of_requests,noindex"`
}

// AppInfo holds the per-application request-rate time series shown on the
// application console.
//
// The entity ID is the application ID. RequestInfo is append-only and grows
// without bound: there is no retention policy, matching the behavior the
// telemetry reporters have always relied on. Deleting the application drops
// the whole entity.
type AppInfo struct {
	_kind string `gae:"$kind,AppInfo"`

	ID          string         `gae:"$id"`
	RequestInfo []RequestPoint `gae:"request_info,lsp"`

	_extra datastore.PropertyMap `gae:"-,extra"`
}
