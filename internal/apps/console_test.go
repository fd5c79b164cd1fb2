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

package apps

import (
	"context"
	"testing"
	"time"

	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"
	"go.chromium.org/luci/gae/impl/memory"
	"go.chromium.org/luci/gae/service/datastore"

	"go.skydash.dev/skydash/internal/model"
)

func TestConsole(t *testing.T) {
	t.Parallel()

	ftt.Run("Console", t, func(t *ftt.Test) {
		ctx := memory.Use(context.Background())
		datastore.GetTestable(ctx).AutoIndex(true)
		datastore.GetTestable(ctx).Consistent(true)

		point := func(sec int64, rate float64) model.RequestPoint {
			return model.RequestPoint{Timestamp: time.Unix(sec, 0).UTC(), Rate: rate}
		}

		t.Run("Samples accumulate in report order", func(t *ftt.Test) {
			assert.Loosely(t, Record(ctx, "guestbook", point(1000, 2.5)), should.BeNil)
			assert.Loosely(t, Record(ctx, "guestbook", point(1060, 4.0)), should.BeNil)
			assert.Loosely(t, Record(ctx, "guestbook", point(1120, 0)), should.BeNil)

			hist, err := History(ctx, "guestbook")
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, hist, should.Match([]model.RequestPoint{
				point(1000, 2.5),
				point(1060, 4.0),
				point(1120, 0),
			}))
		})

		t.Run("Applications do not share series", func(t *ftt.Test) {
			assert.Loosely(t, Record(ctx, "guestbook", point(1000, 2.5)), should.BeNil)
			assert.Loosely(t, Record(ctx, "blog", point(1000, 9.0)), should.BeNil)

			hist, err := History(ctx, "blog")
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, hist, should.HaveLength(1))
			assert.Loosely(t, hist[0].Rate, should.Equal(9.0))
		})

		t.Run("Unknown application has an empty history", func(t *ftt.Test) {
			hist, err := History(ctx, "ghost")
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, hist, should.BeEmpty)
		})

		t.Run("Record requires an application ID", func(t *ftt.Test) {
			assert.Loosely(t, Record(ctx, "", point(1000, 1)), should.ErrLike("application ID is required"))
		})

		t.Run("Remove drops the series", func(t *ftt.Test) {
			assert.Loosely(t, Record(ctx, "guestbook", point(1000, 2.5)), should.BeNil)
			assert.Loosely(t, Remove(ctx, "guestbook"), should.BeNil)

			hist, err := History(ctx, "guestbook")
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, hist, should.BeEmpty)
		})

		t.Run("Removing an unknown application is a no-op", func(t *ftt.Test) {
			assert.Loosely(t, Remove(ctx, "ghost"), should.BeNil)
		})
	})
}
