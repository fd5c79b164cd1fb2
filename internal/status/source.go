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
	"encoding/json"
	"net/http"

	"go.chromium.org/luci/common/errors"
)

// Source is the cluster-status collaborator the refresher gathers from.
//
// Implementations fetch raw fleet metrics; their schema passes through into
// Snapshot fields untouched. Every call must respect the context deadline the
// refresher imposes.
type Source interface {
	MachineStats(ctx context.Context) ([]MachineStats, error)
	DatabaseInfo(ctx context.Context) (DatabaseInfo, error)
	APIStatus(ctx context.Context) (map[string]string, error)
	Applications(ctx context.Context) (map[string]string, error)
}

// HTTPSource fetches fleet status from the cluster controller's JSON
// endpoints.
type HTTPSource struct {
	base   string
	client *http.Client
}

// NewHTTPSource returns a Source talking to the controller at base, e.g.
// "http://10.0.0.1:17441".
func NewHTTPSource(base string) *HTTPSource {
	return &HTTPSource{base: base, client: http.DefaultClient}
}

// MachineStats implements Source.
func (s *HTTPSource) MachineStats(ctx context.Context) ([]MachineStats, error) {
	var out []MachineStats
	if err := s.getJSON(ctx, "/stats/machines", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DatabaseInfo implements Source.
func (s *HTTPSource) DatabaseInfo(ctx context.Context) (DatabaseInfo, error) {
	var out DatabaseInfo
	if err := s.getJSON(ctx, "/stats/database", &out); err != nil {
		return DatabaseInfo{}, err
	}
	return out, nil
}

// APIStatus implements Source.
func (s *HTTPSource) APIStatus(ctx context.Context) (map[string]string, error) {
	var out map[string]string
	if err := s.getJSON(ctx, "/stats/services", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Applications implements Source.
func (s *HTTPSource) Applications(ctx context.Context) (map[string]string, error) {
	var out map[string]string
	if err := s.getJSON(ctx, "/stats/applications", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *HTTPSource) getJSON(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+path, nil)
	if err != nil {
		return errors.Annotate(err, "building request for %s", path)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Annotate(err, "fetching %s", path)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Reason("fetching %s: HTTP %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return errors.Annotate(err, "decoding %s", path)
	}
	return nil
}
