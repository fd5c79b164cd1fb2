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

package logs

import (
	"context"
	"sort"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/retry/transient"
	"go.chromium.org/luci/gae/service/datastore"

	"go.skydash.dev/skydash/internal/model"
)

// RegisterHost records that host has reported logs for service.
//
// The host set is maintained by union, so concurrent and repeated
// registrations of the same pair are harmless no-ops. Access control is not
// enforced here; callers filter what they show.
func (s *Store) RegisterHost(ctx context.Context, service, host string) error {
	err := datastore.RunInTransaction(ctx, func(ctx context.Context) error {
		svc := &model.LoggedService{Name: service}
		switch err := datastore.Get(ctx, svc); {
		case err == datastore.ErrNoSuchEntity:
			// First upload for this service creates it.
		case err != nil:
			return err
		}
		for _, h := range svc.Hosts {
			if h == host {
				return nil
			}
		}
		svc.Hosts = append(svc.Hosts, host)
		return datastore.Put(ctx, svc)
	}, nil)
	if err != nil {
		return transient.Tag.Apply(errors.Annotate(err, "registering host %q for service %q", host, service))
	}
	return nil
}

// ListServices returns the names of all services known to the registry,
// sorted.
func (s *Store) ListServices(ctx context.Context) ([]string, error) {
	q := datastore.NewQuery("LoggedService").KeysOnly(true)
	var names []string
	err := datastore.Run(ctx, q, func(k *datastore.Key, _ datastore.CursorCB) error {
		names = append(names, k.StringID())
		return nil
	})
	if err != nil {
		return nil, transient.Tag.Apply(errors.Annotate(err, "listing services"))
	}
	sort.Strings(names)
	return names, nil
}

// ListHosts returns the hosts that have reported logs for the service, in
// registration order. An unknown service yields an empty list, not an error.
func (s *Store) ListHosts(ctx context.Context, service string) ([]string, error) {
	svc := &model.LoggedService{Name: service}
	switch err := datastore.Get(ctx, svc); {
	case err == datastore.ErrNoSuchEntity:
		return nil, nil
	case err != nil:
		return nil, transient.Tag.Apply(errors.Annotate(err, "fetching service %q", service))
	}
	return svc.Hosts, nil
}
