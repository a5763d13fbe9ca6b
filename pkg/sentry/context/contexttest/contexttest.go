// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package contexttest builds a test context.Context.
package contexttest

import (
	"testing"

	"gvisor.dev/vmem/pkg/log"
	"gvisor.dev/vmem/pkg/sentry/context"
	"gvisor.dev/vmem/pkg/sentry/ktime"
	"gvisor.dev/vmem/pkg/sentry/pgalloc"
)

// DefaultFrames is the number of frames in the MemoryFile carried by a test
// context.
const DefaultFrames = 256

// Context returns a Context that may be used in tests. It carries a fresh
// MemoryFile of DefaultFrames frames, destroyed when the test ends, and a
// ManualClock. Log output goes to tb.
func Context(tb testing.TB) context.Context {
	return WithFrames(tb, DefaultFrames)
}

// WithFrames is like Context, but the MemoryFile has the given number of
// frames.
func WithFrames(tb testing.TB, frames uint) context.Context {
	mf, err := pgalloc.NewMemoryFile(pgalloc.MemoryFileOpts{Frames: frames})
	if err != nil {
		tb.Fatalf("NewMemoryFile failed: %v", err)
	}
	tb.Cleanup(mf.Destroy)
	return &testContext{
		Logger: &log.BasicLogger{
			Level:   log.Debug,
			Emitter: &log.TestEmitter{TestLogger: tb},
		},
		mf:    mf,
		clock: &ktime.ManualClock{},
	}
}

type testContext struct {
	log.Logger
	mf    *pgalloc.MemoryFile
	clock *ktime.ManualClock
}

// Value implements context.Context.
func (t *testContext) Value(key any) any {
	switch key {
	case pgalloc.CtxMemoryFile:
		return t.mf
	case ktime.CtxClock:
		return t.clock
	default:
		return nil
	}
}

// ManualClock returns the clock carried by a Context returned by this package.
func ManualClock(ctx context.Context) *ktime.ManualClock {
	return ktime.ClockFromContext(ctx).(*ktime.ManualClock)
}
