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

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/retry/transient"
	"go.chromium.org/luci/gae/service/datastore"

	"go.skydash.dev/skydash/internal/model"
)

// AllHosts disables the host filter in QueryPage.
const AllHosts = "all"

// DefaultPageSize is the number of records per page when the caller does not
// say otherwise.
const DefaultPageSize = 20

// ErrCursorExpired is returned when a pagination cursor can no longer be
// decoded. The only recovery is to restart pagination from the first page.
var ErrCursorExpired = errors.New("log cursor expired, restart pagination from the first page")

// Page is one page of log records.
type Page struct {
	// Records are at most pageSize records in record key order, i.e. newest
	// request timestamp first.
	Records []*model.RequestLogLine

	// NextCursor resumes the scan strictly after this page. Empty when the
	// scan is done. Opaque to callers: it round-trips as a string and nothing
	// more.
	NextCursor string

	// HasMore hints that another page likely exists. It is best-effort: with
	// concurrent writes the final page may report true and be followed by an
	// empty page. An empty page with no cursor always means the end.
	HasMore bool
}

// QueryPage returns up to pageSize records for the service, newest first,
// starting strictly after the position encoded by cursor.
//
// host restricts the scan to one machine; pass AllHosts to see every machine
// that reported for the service. An empty cursor starts from the newest
// record. pageSize <= 0 means DefaultPageSize.
func (s *Store) QueryPage(ctx context.Context, service, host string, pageSize int, cursor string) (*Page, error) {
	if service == "" {
		return nil, errors.Reason("service name is required")
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var start datastore.Cursor
	if cursor != "" {
		var err error
		if start, err = datastore.DecodeCursor(ctx, cursor); err != nil {
			return nil, ErrCursorExpired
		}
	}

	// Record keys embed the reversed timestamp, so ascending __key__ order is
	// descending time order.
	q := datastore.NewQuery("RequestLogLine").Eq("service_name", service)
	if host != AllHosts {
		q = q.Eq("host", host)
	}
	q = q.Order("__key__").Limit(int32(pageSize))
	if start != nil {
		q = q.Start(start)
	}

	page := &Page{}
	err := datastore.Run(ctx, q, func(rec *model.RequestLogLine, getCursor datastore.CursorCB) error {
		page.Records = append(page.Records, rec)
		if len(page.Records) < pageSize {
			return nil
		}
		cur, err := getCursor()
		if err != nil {
			return err
		}
		page.NextCursor = cur.String()
		return datastore.Stop
	})
	if err != nil {
		return nil, transient.Tag.Apply(errors.Annotate(err, "querying logs of service %q", service))
	}
	page.HasMore = page.NextCursor != ""
	return page, nil
}
