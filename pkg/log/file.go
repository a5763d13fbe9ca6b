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

package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Log file patterns may contain these variables. They are replaced when the
// file is opened.
const (
	// PatternCommand is replaced with the subcommand name.
	PatternCommand = "%COMMAND%"

	// PatternTimestamp is replaced with the start time of the process.
	PatternTimestamp = "%TIMESTAMP%"

	// PatternPID is replaced with the host process ID.
	PatternPID = "%PID%"
)

// TimestampFormat is the layout used for PatternTimestamp.
const TimestampFormat = "20060102-150405.000000"

// FileOpts names the runmm invocation a log file belongs to.
type FileOpts struct {
	// Command is the subcommand being run, e.g. "exec".
	Command string

	// Start is the time the process started.
	Start time.Time
}

// Build expands the variables in logPattern.
func (o FileOpts) Build(logPattern string) string {
	r := strings.NewReplacer(
		PatternCommand, o.Command,
		PatternTimestamp, o.Start.Format(TimestampFormat),
		PatternPID, strconv.Itoa(os.Getpid()),
	)
	return r.Replace(logPattern)
}

// OpenFile opens the log file named by logPattern, creating its parent
// directory. An empty pattern means no file and returns (nil, nil).
func OpenFile(logPattern string, flags int, opts FileOpts) (*os.File, error) {
	if len(logPattern) == 0 {
		return nil, nil
	}
	logPath := opts.Build(logPattern)

	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0775); err != nil {
		return nil, fmt.Errorf("error creating dir %q: %v", dir, err)
	}
	f, err := os.OpenFile(logPath, flags|os.O_WRONLY|os.O_CREATE, 0664)
	if err != nil {
		return nil, fmt.Errorf("error opening file %q: %v", logPath, err)
	}
	return f, nil
}
