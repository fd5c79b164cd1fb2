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
	"fmt"
	"testing"
	"time"

	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"

	"go.skydash.dev/skydash/internal/model"
)

func TestQueryPage(t *testing.T) {
	t.Parallel()

	ftt.Run("QueryPage", t, func(t *ftt.Test) {
		ctx := testingContext()
		store := NewStore()

		// 45 records for (svc, h1), one second apart, plus noise on another
		// host and another service.
		base := int64(1361860000)
		for i := 0; i < 45; i++ {
			err := store.Append(ctx, "svc", "h1", []Entry{{
				Timestamp: time.Unix(base+int64(i), 0),
				Message:   fmt.Sprintf("line %d", i),
				Level:     1,
			}})
			assert.Loosely(t, err, should.BeNil)
		}
		for i := 0; i < 3; i++ {
			err := store.Append(ctx, "svc", "h2", []Entry{{
				Timestamp: time.Unix(base+int64(i), 0),
				Message:   "other host",
				Level:     1,
			}})
			assert.Loosely(t, err, should.BeNil)
		}
		err := store.Append(ctx, "unrelated", "h1", []Entry{{
			Timestamp: time.Unix(base, 0),
			Message:   "other service",
			Level:     1,
		}})
		assert.Loosely(t, err, should.BeNil)

		walk := func(service, host string) []*model.RequestLogLine {
			var all []*model.RequestLogLine
			cursor := ""
			for {
				page, err := store.QueryPage(ctx, service, host, 20, cursor)
				assert.Loosely(t, err, should.BeNil)
				all = append(all, page.Records...)
				if !page.HasMore {
					assert.Loosely(t, page.NextCursor, should.BeEmpty)
					return all
				}
				assert.Loosely(t, page.NextCursor, should.NotBeEmpty)
				cursor = page.NextCursor
			}
		}

		t.Run("Walks every record exactly once, newest first", func(t *ftt.Test) {
			all := walk("svc", "h1")
			assert.Loosely(t, all, should.HaveLength(45))

			seen := map[string]bool{}
			for i, rec := range all {
				assert.Loosely(t, seen[rec.ID], should.BeFalse)
				seen[rec.ID] = true
				assert.Loosely(t, rec.Host, should.Equal("h1"))
				// Newest first: record i holds timestamp base+44-i.
				assert.Loosely(t, rec.AppLogs[0].Timestamp.Unix(), should.Equal(base+int64(44-i)))
			}
		})

		t.Run("Pages are capped at the page size", func(t *ftt.Test) {
			page, err := store.QueryPage(ctx, "svc", "h1", 20, "")
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, page.Records, should.HaveLength(20))
			assert.Loosely(t, page.HasMore, should.BeTrue)
		})

		t.Run("The all-hosts sentinel lifts the host filter", func(t *ftt.Test) {
			all := walk("svc", AllHosts)
			assert.Loosely(t, all, should.HaveLength(48))
		})

		t.Run("Host filter excludes other hosts", func(t *ftt.Test) {
			all := walk("svc", "h2")
			assert.Loosely(t, all, should.HaveLength(3))
		})

		t.Run("Unknown service yields an empty page", func(t *ftt.Test) {
			page, err := store.QueryPage(ctx, "ghost", AllHosts, 20, "")
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, page.Records, should.BeEmpty)
			assert.Loosely(t, page.HasMore, should.BeFalse)
		})

		t.Run("Undecodable cursor reports expiry", func(t *ftt.Test) {
			_, err := store.QueryPage(ctx, "svc", "h1", 20, "not a cursor")
			assert.Loosely(t, err, should.Equal(ErrCursorExpired))
		})

		t.Run("Cursor round-trips as an opaque string", func(t *ftt.Test) {
			page, err := store.QueryPage(ctx, "svc", "h1", 20, "")
			assert.Loosely(t, err, should.BeNil)

			// Feed the serialized cursor back verbatim.
			next, err := store.QueryPage(ctx, "svc", "h1", 20, page.NextCursor)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, next.Records, should.HaveLength(20))
			assert.Loosely(t, next.Records[0].ID, should.NotEqual(page.Records[0].ID))
		})
	})
}
