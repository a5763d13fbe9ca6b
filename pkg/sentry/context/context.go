// Copyright 2018 The gVisor Authors.
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

// Package context defines the sentry's Context type.
package context

import (
	"gvisor.dev/vmem/pkg/log"
)

// A Context represents a thread of execution. It carries state associated
// with the goroutine across API boundaries.
//
// It is *not safe* to use the same Context in multiple concurrent goroutines,
// nor to retain a Context passed to a function beyond the scope of that
// function call. Values extracted from the Context should be used instead.
type Context interface {
	log.Logger

	// Value returns the value associated with this Context for key, or nil if
	// no value is associated with key. Successive calls to Value with the same
	// key returns the same result.
	//
	// Packages should define keys as an unexported type to avoid collisions.
	Value(key any) any
}

type logContext struct {
	log.Logger
}

// Value implements Context.Value.
func (logContext) Value(key any) any {
	return nil
}

// bgContext is the context returned by context.Background.
var bgContext = &logContext{Logger: log.Log()}

// Background returns an empty context using the default logger.
//
// Generally, one should use the Task as their context when available.
func Background() Context {
	return bgContext
}

// WithValue returns a copy of parent in which the value associated with key is
// val.
func WithValue(parent Context, key, val any) Context {
	return &valueContext{
		Context: parent,
		key:     key,
		val:     val,
	}
}

type valueContext struct {
	Context
	key, val any
}

// Value implements Context.Value.
func (ctx *valueContext) Value(key any) any {
	if key == ctx.key {
		return ctx.val
	}
	return ctx.Context.Value(key)
}
