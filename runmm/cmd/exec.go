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

package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/google/subcommands"

	"gvisor.dev/vmem/pkg/hostarch"
	"gvisor.dev/vmem/pkg/log"
	"gvisor.dev/vmem/pkg/sentry/kernel"
	"gvisor.dev/vmem/pkg/sentry/pgalloc"
	"gvisor.dev/vmem/runmm/cmd/util"
	"gvisor.dev/vmem/runmm/config"
	"gvisor.dev/vmem/runmm/script"
)

// Exec implements subcommands.Command for the "exec" command.
type Exec struct {
	output string
}

// Report is everything printed by the "exec" command.
type Report struct {
	Tasks  []script.TaskResult `json:"tasks"`
	Frames pgalloc.Stats       `json:"frames"`
}

// Name implements subcommands.Command.Name.
func (*Exec) Name() string {
	return "exec"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Exec) Synopsis() string {
	return "Run a script of memory operations."
}

// Usage implements subcommands.Command.Usage.
func (*Exec) Usage() string {
	return `exec [options] <script.yaml> - Run a script of memory operations.

Each task in the script gets its own address space. Tasks run concurrently
and share the physical frames configured with --frames.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (e *Exec) SetFlags(f *flag.FlagSet) {
	f.StringVar(&e.output, "o", "table", "Output format (table, json).")
}

// Execute implements subcommands.Command.Execute.
func (e *Exec) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	out, ok := reportOutputs[e.output]
	if !ok {
		return util.Errorf("Unsupported output format %q", e.output)
	}
	conf := args[0].(*config.Config)

	file, err := os.Open(f.Arg(0))
	if err != nil {
		return util.Errorf("Error opening script: %v", err)
	}
	defer file.Close()
	s, err := script.Parse(file)
	if err != nil {
		return util.Errorf("Error parsing %q: %v", f.Arg(0), err)
	}

	report, err := runScript(ctx, conf, s)
	if err != nil {
		return util.Errorf("Error running %q: %v", f.Arg(0), err)
	}
	if err := out(os.Stdout, report); err != nil {
		return util.Errorf("Error writing output: %v", err)
	}
	return subcommands.ExitSuccess
}

// runScript runs s in a fresh kernel configured by conf.
func runScript(ctx context.Context, conf *config.Config, s *script.Script) (*Report, error) {
	mf, err := pgalloc.NewMemoryFile(pgalloc.MemoryFileOpts{Frames: conf.Frames})
	if err != nil {
		return nil, err
	}
	defer mf.Destroy()
	log.Infof("Physical memory: %d frames (%s)", conf.Frames, humanize.IBytes(mf.TotalSize()))

	k := &kernel.Kernel{}
	if err := k.Init(kernel.InitKernelArgs{MemoryFile: mf}); err != nil {
		return nil, err
	}
	results, err := script.Run(ctx, k, s)
	if err != nil {
		return nil, err
	}
	return &Report{Tasks: results, Frames: mf.Stats()}, nil
}

type reportOutputFunc func(io.Writer, *Report) error

var reportOutputs = map[string]reportOutputFunc{
	"table": reportTable,
	"json":  reportJSON,
}

// reportTable writes one row per op, followed by a summary of each task and
// of physical memory.
func reportTable(w io.Writer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", "TASK", "OP", "RET", "DETAIL")
	for _, t := range r.Tasks {
		for _, res := range t.Results {
			lines := strings.Split(res.Detail, "\n")
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Name, res.Op, formatRet(res.Ret), lines[0])
			for _, l := range lines[1:] {
				fmt.Fprintf(tw, "\t\t\t%s\n", l)
			}
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	for _, t := range r.Tasks {
		fmt.Fprintf(w, "%s (tid %d): virtual %s, resident %s\n", t.Name, t.TID, humanize.IBytes(t.VirtualSize), humanize.IBytes(t.ResidentSize))
	}
	_, err := fmt.Fprintf(w, "frames: %d allocations, %d frees, %d of %d in use (%s)\n",
		r.Frames.Allocations, r.Frames.Frees, r.Frames.Used, r.Frames.Total,
		humanize.IBytes(r.Frames.Used*hostarch.PageSize))
	return err
}

func formatRet(ret int64) string {
	if ret > 0xffff {
		return fmt.Sprintf("%#x", ret)
	}
	return fmt.Sprintf("%d", ret)
}

func reportJSON(w io.Writer, r *Report) error {
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(r)
}
