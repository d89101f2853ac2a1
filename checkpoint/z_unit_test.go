// Copyright 2025 Zintix Labs
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

package checkpoint

import (
	"bytes"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/neutrace/errs"
	"github.com/zintix-labs/neutrace/stats"
)

var fixedNow = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

type exitRecorder struct {
	mu    sync.Mutex
	codes []int
}

func (e *exitRecorder) exit(code int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.codes = append(e.codes, code)
}

func newTestController(save func() error) (*Controller, *bytes.Buffer, *exitRecorder) {
	out := &bytes.Buffer{}
	rec := &exitRecorder{}
	c := New(Config{
		Out:  out,
		Now:  func() time.Time { return fixedNow },
		Exit: rec.exit,
		Status: func() Status {
			return Status{Instrument: "demo", Source: "demo.instr", Run: 250, NCount: 1000}
		},
		Save: save,
	})
	return c, out, rec
}

func TestReportResumes(t *testing.T) {
	c, out, rec := newTestController(nil)
	require.False(t, c.Check())
	require.NoError(t, c.Post(Post{Req: Report, Origin: "Signal 10 SIGUSR1 (Display info)"}))
	require.Equal(t, 1, c.Pending())
	c.SetBreakpoint("sample")
	require.False(t, c.Check())
	require.Equal(t, 0, c.Pending())
	require.Equal(t, Running, c.State())
	require.Empty(t, rec.codes)

	s := out.String()
	require.Contains(t, s, "Signal 10 SIGUSR1 (Display info) detected\n")
	require.Contains(t, s, "# Simulation: demo (demo.instr) \n")
	require.Contains(t, s, "# Breakpoint: sample 25.00 % (     250.0/    1000.0)\n")
	require.Contains(t, s, "# Date      : Tue Mar  4 05:06:07 2025\n")
	require.True(t, strings.HasSuffix(s, "# neutrace: Resuming simulation (continue)\n"))
}

func TestSaveCallsHookAndResumes(t *testing.T) {
	saves := 0
	var c *Controller
	c, out, _ := newTestController(func() error {
		saves++
		require.Equal(t, Saving, c.State())
		return nil
	})
	require.NoError(t, c.Post(Post{Req: Save, Origin: "HTTP save"}))
	require.NoError(t, c.Post(Post{Req: Save, Origin: "HTTP save"}))
	require.False(t, c.Check())
	require.Equal(t, 2, saves)
	require.Equal(t, Running, c.State())
	require.Equal(t, 2, strings.Count(out.String(), "Saving data and resume simulation"))
}

func TestTerminateStops(t *testing.T) {
	c, out, rec := newTestController(nil)
	require.NoError(t, c.Post(Post{Req: Terminate, Origin: "Signal 15 SIGTERM (termination)"}))
	require.True(t, c.Check())
	require.Equal(t, Terminating, c.State())
	require.Contains(t, out.String(), "Finishing simulation (save results and exit)")
	require.Empty(t, rec.codes)
}

func TestAbortExitsImmediately(t *testing.T) {
	c, out, rec := newTestController(nil)
	err := c.Post(Post{Req: Abort, Origin: "Signal 3 SIGQUIT (quit from terminal)"})
	require.Error(t, err)
	require.Equal(t, errs.KindInterrupt, errs.KindOf(err))
	require.Equal(t, []int{ExitAbort}, rec.codes)
	require.Equal(t, Aborting, c.State())
	require.Contains(t, out.String(), "Simulation stop (abort)")
}

func TestReentrantAbortIsFatal(t *testing.T) {
	var c *Controller
	c, out, rec := newTestController(func() error {
		_ = c.Post(Post{Req: Abort, Origin: "Signal 6 SIGABRT (abort)"})
		return nil
	})
	require.NoError(t, c.Post(Post{Req: Save, Origin: "Signal 12 SIGUSR2 (Save simulation)"}))
	c.Check()
	require.Equal(t, []int{ExitFatal}, rec.codes)
	require.Contains(t, out.String(), "unrecoverable loop")
}

func TestReportAndSaveDuringAbortAreServed(t *testing.T) {
	saves := 0
	var c *Controller
	out := &bytes.Buffer{}
	var codes []int
	c = New(Config{
		Out: out,
		Now: func() time.Time { return fixedNow },
		Exit: func(code int) {
			codes = append(codes, code)
			if code != ExitAbort {
				return
			}
			// 中止尚未結束時主迴圈到達安全點
			require.NoError(t, c.Post(Post{Req: Report, Origin: "Signal 10 SIGUSR1 (Display info)"}))
			require.NoError(t, c.Post(Post{Req: Save, Origin: "Signal 12 SIGUSR2 (Save simulation)"}))
			require.False(t, c.Check())
		},
		Save: func() error {
			saves++
			return nil
		},
	})
	require.Error(t, c.Post(Post{Req: Abort, Origin: "Signal 6 SIGABRT (abort)"}))
	require.Equal(t, []int{ExitAbort}, codes)
	require.Equal(t, 1, saves)
	require.Equal(t, Aborting, c.State())
	s := out.String()
	require.Contains(t, s, "Resuming simulation (continue)")
	require.Contains(t, s, "Saving data and resume simulation (continue)")
	require.NotContains(t, s, "unrecoverable loop")
}

func TestTerminateDuringAbortIsFatal(t *testing.T) {
	var c *Controller
	out := &bytes.Buffer{}
	var codes []int
	c = New(Config{
		Out: out,
		Exit: func(code int) {
			codes = append(codes, code)
			if code == ExitAbort {
				require.NoError(t, c.Post(Post{Req: Terminate, Origin: "Signal 15 SIGTERM (termination)"}))
				require.True(t, c.Check())
			}
		},
	})
	require.Error(t, c.Post(Post{Req: Abort, Origin: "Signal 3 SIGQUIT (quit from terminal)"}))
	require.Equal(t, []int{ExitAbort, ExitFatal}, codes)
	require.Contains(t, out.String(), "unrecoverable loop")
}

func TestQueueFull(t *testing.T) {
	c := New(Config{Queue: 1, Out: &bytes.Buffer{}})
	require.NoError(t, c.Post(Post{Req: Report}))
	err := c.Post(Post{Req: Report})
	require.Error(t, err)
	require.False(t, errs.IsFatal(err))
}

func TestParseRequest(t *testing.T) {
	r, err := ParseRequest("save")
	require.NoError(t, err)
	require.Equal(t, Save, r)
	_, err = ParseRequest("pause")
	require.Error(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	h := stats.New1D("lam", "Wavelength", 4, 0, 4).WithFile("lam.dat")
	h.Fill(2, 1.5)
	s := &Snapshot{
		Version:    SnapshotVersion,
		Instrument: "demo",
		Seed:       42,
		SeedSet:    true,
		Run:        500,
		NCount:     1000,
		Generator:  "mt",
		RNG:        []byte{1, 2, 3, 4},
		Params:     map[string]string{"lambda": "1.5"},
		Detectors:  []*stats.Histogram{h},
		State:      []byte(`{"scattered":17}`),
		SavedAt:    fixedNow,
	}
	path := filepath.Join(t.TempDir(), "run.ckpt")
	require.NoError(t, WriteFile(path, s))
	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, s.Run, got.Run)
	require.Equal(t, s.RNG, got.RNG)
	require.Equal(t, s.Params, got.Params)
	require.Equal(t, s.State, got.State)
	require.True(t, got.SavedAt.Equal(fixedNow))
	require.Equal(t, h.Sum, got.Detectors[0].Sum)
	require.Equal(t, h.Filename, got.Detectors[0].Filename)

	b, err := Encode(s)
	require.NoError(t, err)
	_, err = Read(bytes.NewReader(b[:len(b)-3]), 0)
	require.Error(t, err)
	_, err = Read(bytes.NewReader(b), 4)
	require.Error(t, err)
	_, err = Read(strings.NewReader("nope"), 0)
	require.Error(t, err)
}
