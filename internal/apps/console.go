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

// Package apps stores the per-application request-rate series backing the
// application console.
package apps

import (
	"context"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/retry/transient"
	"go.chromium.org/luci/gae/service/datastore"

	"go.skydash.dev/skydash/internal/model"
)

// Record appends one request-rate sample to the application's series,
// creating the series on the first report.
//
// The series is append-only with no retention policy; see model.AppInfo.
func Record(ctx context.Context, appID string, p model.RequestPoint) error {
	if appID == "" {
		return errors.Reason("application ID is required")
	}
	err := datastore.RunInTransaction(ctx, func(ctx context.Context) error {
		info := &model.AppInfo{ID: appID}
		switch err := datastore.Get(ctx, info); {
		case err == datastore.ErrNoSuchEntity:
		case err != nil:
			return err
		}
		info.RequestInfo = append(info.RequestInfo, p)
		return datastore.Put(ctx, info)
	}, nil)
	if err != nil {
		return transient.Tag.Apply(errors.Annotate(err, "recording request info for app %q", appID))
	}
	return nil
}

// History returns the application's request-rate series in report order, or
// an empty series for an unknown application.
func History(ctx context.Context, appID string) ([]model.RequestPoint, error) {
	info := &model.AppInfo{ID: appID}
	switch err := datastore.Get(ctx, info); {
	case err == datastore.ErrNoSuchEntity:
		return nil, nil
	case err != nil:
		return nil, transient.Tag.Apply(errors.Annotate(err, "fetching request info for app %q", appID))
	}
	return info.RequestInfo, nil
}

// Remove drops the application's console data. Removing an unknown
// application is a no-op.
func Remove(ctx context.Context, appID string) error {
	if err := datastore.Delete(ctx, &model.AppInfo{ID: appID}); err != nil {
		return transient.Tag.Apply(errors.Annotate(err, "deleting request info for app %q", appID))
	}
	return nil
}
