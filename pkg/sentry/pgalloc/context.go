// Copyright 2019 The gVisor Authors.
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

package pgalloc

import (
	"gvisor.dev/vmem/pkg/sentry/context"
)

type contextID int

// CtxMemoryFile is the Context.Value key under which a kernel exposes the
// MemoryFile that backs its tasks' frames.
const CtxMemoryFile contextID = 0

// WithMemoryFile returns a copy of parent that exposes mf under
// CtxMemoryFile.
func WithMemoryFile(parent context.Context, mf *MemoryFile) context.Context {
	return context.WithValue(parent, CtxMemoryFile, mf)
}

// MemoryFileFromContext returns the frame source of ctx. It returns nil if
// ctx carries none.
func MemoryFileFromContext(ctx context.Context) *MemoryFile {
	mf, _ := ctx.Value(CtxMemoryFile).(*MemoryFile)
	return mf
}
