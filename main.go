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

// Package main implements the skydash server: the fleet log and status
// dashboard core. It ingests application logs from services across the
// deployment, serves them back paginated, and keeps a cached fleet status
// snapshot fresh in the background.
package main

import (
	"flag"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/server"
	"go.chromium.org/luci/server/auth"
	"go.chromium.org/luci/server/auth/openid"
	"go.chromium.org/luci/server/cron"
	"go.chromium.org/luci/server/gaeemulation"
	"go.chromium.org/luci/server/module"
	"go.chromium.org/luci/server/router"

	"go.skydash.dev/skydash/frontend"
	"go.skydash.dev/skydash/internal/acl"
	"go.skydash.dev/skydash/internal/logs"
	"go.skydash.dev/skydash/internal/status"
	"go.skydash.dev/skydash/internal/timekey"
)

var (
	adminGroup = flag.String(
		"skydash-admin-group",
		"skydash-admins",
		"Members of this group are cloud administrators and see every service.",
	)
	controllerURL = flag.String(
		"skydash-controller-url",
		"http://localhost:17441",
		"Base URL of the cluster controller serving fleet status JSON.",
	)
	refreshInterval = flag.Duration(
		"skydash-refresh-interval",
		status.DefaultInterval,
		"How often to refresh the cached status snapshot.",
	)
)

func main() {
	mods := []module.Module{
		cron.NewModuleFromFlags(),
		gaeemulation.NewModuleFromFlags(),
	}

	server.Main(nil, mods, func(srv *server.Server) error {
		// The key codec parameters are frozen per deployment. Refusing to
		// start beats writing keys that no longer sort against stored data.
		if err := timekey.V1.Validate(clock.Now(srv.Context)); err != nil {
			return errors.Annotate(err, "bad time key configuration")
		}

		store := logs.NewStore()
		cache := &status.Cache{}
		refresher := status.NewRefresher(cache, status.NewHTTPSource(*controllerURL))
		refresher.Interval = *refreshInterval
		srv.RunInBackground("skydash.refresh", refresher.Run)

		// The periodic cron tick is a second trigger for deployments that
		// prefer task-queue cadence over the in-process timer; the refresher
		// coalesces them.
		cron.RegisterHandler("refresh-dashboard", refresher.RefreshNow)

		mw := router.MiddlewareChain{
			auth.Authenticate(&openid.GoogleIDTokenAuthMethod{
				AudienceCheck: openid.AudienceMatchesHost,
			}),
		}
		frontend.InstallHandlers(srv.Routes, mw, &frontend.Handlers{
			Store:     store,
			Cache:     cache,
			Refresher: refresher,
			Auth:      &acl.GroupAuthorizer{AdminGroup: *adminGroup},
		})
		return nil
	})
}
