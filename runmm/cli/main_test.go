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

package cli

import (
	"bytes"
	"testing"
	"time"

	"gvisor.dev/vmem/pkg/log"
)

func TestNewEmitter(t *testing.T) {
	for _, format := range []string{"text", "json"} {
		var b bytes.Buffer
		e := newEmitter(format, &b)
		e.Emit(0, log.Info, time.Now(), "hello %s", format)
		if !bytes.Contains(b.Bytes(), []byte("hello "+format)) {
			t.Errorf("%s emitter wrote %q", format, b.String())
		}
	}
}
