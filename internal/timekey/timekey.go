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

// Package timekey turns timestamps into fixed-width key fragments that sort
// newest-first on an ascending key scan.
//
// The datastore only scans keys in ascending order, so log record keys embed
// the timestamp subtracted from a ceiling: for t1 < t2 the fragment of t1 is
// lexicographically greater than the fragment of t2. The transform is one-way,
// there is no decode.
package timekey

import (
	"fmt"
	"time"

	"go.chromium.org/luci/common/errors"
)

// ErrOutsideWindow is returned for timestamps the codec cannot represent.
//
// Hitting it means the codec parameters were chosen too small for the
// deployment's lifetime. It is a configuration error, fatal at startup, never
// something to retry.
var ErrOutsideWindow = errors.New("timestamp outside the representable key window")

// Codec holds the parameters of the reversed-timestamp transform.
//
// The parameters are versioned: changing any of them makes previously stored
// key fragments incomparable with new ones, so a given deployment must stick
// with one codec forever. Use V1.
type Codec struct {
	// EpochCeiling is the exclusive upper bound on representable epoch seconds.
	EpochCeiling int64

	// Scale multiplies the reversed seconds into a fixed-point integer.
	Scale int64

	// Width is the zero-padded decimal width of every fragment.
	Width int
}

// V1 is the codec used for all stored log record keys.
//
// The ceiling of 2^34 seconds (year 2514) and microsecond scale reproduce the
// key layout the dashboard has always written. Frozen; do not touch.
var V1 = Codec{
	EpochCeiling: 1 << 34,
	Scale:        1000000,
	Width:        17,
}

// Encode converts a timestamp into its key fragment.
//
// The timestamp is truncated to whole epoch seconds, so every log line emitted
// by one (service, host) within the same second lands in the same record.
func (c Codec) Encode(t time.Time) (string, error) {
	sec := t.Unix()
	if sec < 0 || sec >= c.EpochCeiling {
		return "", errors.Annotate(ErrOutsideWindow, "timestamp %d", sec)
	}
	frag := fmt.Sprintf("%0*d", c.Width, (c.EpochCeiling-sec)*c.Scale)
	if len(frag) != c.Width {
		return "", errors.Annotate(ErrOutsideWindow, "fragment %q wider than %d", frag, c.Width)
	}
	return frag, nil
}

// Validate checks the codec can represent the current time.
//
// Called once at process startup; a failure is fatal.
func (c Codec) Validate(now time.Time) error {
	if _, err := c.Encode(now); err != nil {
		return errors.Annotate(err, "time key codec cannot represent the current time")
	}
	return nil
}
