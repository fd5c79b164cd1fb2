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

// Package logs implements the log ingestion and retrieval core: appending
// uploaded log lines into reversed-timestamp-keyed records and serving them
// back as cursor-paginated pages, newest first.
package logs

import (
	"context"
	"time"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/retry/transient"
	"go.chromium.org/luci/common/tsmon/field"
	"go.chromium.org/luci/common/tsmon/metric"
	"go.chromium.org/luci/gae/service/datastore"

	"go.skydash.dev/skydash/internal/model"
	"go.skydash.dev/skydash/internal/timekey"
)

var entriesAppended = metric.NewCounter(
	"skydash/logs/entries_appended",
	"The number of log entries appended to the store.",
	nil,
	field.String("service"),
)

// Entry is one uploaded log line.
type Entry struct {
	Timestamp time.Time
	Message   string
	Level     int64
}

// Store owns the persisted log records and the service/host registry.
//
// It is constructed explicitly and passed to whoever needs it; all persistent
// state lives in the datastore bound to the context.
type Store struct {
	codec timekey.Codec
}

// NewStore returns a Store using the frozen V1 key codec.
func NewStore() *Store {
	return &Store{codec: timekey.V1}
}

// Append stores a batch of log entries for the given service and host.
//
// Each entry lands in the record keyed by (service, host, entry second),
// creating the record on first touch and appending otherwise, so one request's
// lines accumulate in a single record in submission order. Entries are not
// deduplicated: resubmitting a batch duplicates its lines.
//
// Also registers the (service, host) pair in the service registry.
//
// Datastore failures come back tagged transient; callers are expected to
// retry the whole batch (accepting the duplicate-entry risk above). A
// timestamp outside the key codec's window is a configuration error and is
// not retryable.
func (s *Store) Append(ctx context.Context, service, host string, entries []Entry) error {
	switch {
	case service == "":
		return errors.Reason("service name is required")
	case host == "":
		return errors.Reason("host is required")
	}

	if err := s.RegisterHost(ctx, service, host); err != nil {
		return err
	}

	for _, entry := range entries {
		frag, err := s.codec.Encode(entry.Timestamp)
		if err != nil {
			return errors.Annotate(err, "log entry for service %q", service)
		}
		recordID := service + host + frag

		line := model.AppLogLine{
			Message:   entry.Message,
			Level:     entry.Level,
			Timestamp: entry.Timestamp.Truncate(time.Second).UTC(),
		}

		// A transaction per entry: concurrent uploaders racing to the same
		// record key both get their lines in, in their own submission order.
		err = datastore.RunInTransaction(ctx, func(ctx context.Context) error {
			rec := &model.RequestLogLine{ID: recordID}
			switch err := datastore.Get(ctx, rec); {
			case err == datastore.ErrNoSuchEntity:
				rec.ServiceName = service
				rec.Host = host
			case err != nil:
				return err
			}
			rec.AppLogs = append(rec.AppLogs, line)
			return datastore.Put(ctx, rec)
		}, nil)
		if err != nil {
			return transient.Tag.Apply(errors.Annotate(err, "appending to log record %q", recordID))
		}
	}

	entriesAppended.Add(ctx, int64(len(entries)), service)
	return nil
}
