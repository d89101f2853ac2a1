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

package neutrace

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/neutrace/checkpoint"
	"github.com/zintix-labs/neutrace/config"
	"github.com/zintix-labs/neutrace/errs"
	"github.com/zintix-labs/neutrace/sdk/particle"
	"github.com/zintix-labs/neutrace/stats"
)

var fixedNow = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

type beam struct {
	total *stats.Histogram
	x     *stats.Histogram
	hook  func(r *Run, n int64)
}

func (b *beam) Info() Info {
	return Info{
		Name:   "TestBeam",
		Source: "test_beam.instr",
		Params: []config.ParamDef{{Name: "width", Kind: config.Double}},
	}
}

func (b *beam) Init(r *Run) error {
	w := r.Params().Float("width")
	b.total = r.Monitor(stats.New0D("total", "Total"))
	b.x = r.Monitor(stats.New1D("x", "Position", 10, -w, w).WithFile("x.dat"))
	return nil
}

func (b *beam) Trace(r *Run, p *particle.State) error {
	w := r.Params().Float("width")
	p.X = r.RNG().RandPM1() * w
	p.P = 1 + r.RNG().Rand01()
	b.total.Fill(p.P)
	b.x.Fill(p.P, p.X)
	if b.hook != nil {
		b.hook(r, r.Completed()+1)
	}
	return nil
}

func testConfig(ncount int64) *config.RunConfig {
	c := config.Default()
	seed := int64(42)
	c.Seed = &seed
	c.NCount = ncount
	c.NoOutputFiles = true
	c.Params = map[string]string{"width": "0.5"}
	return c
}

func newRun(t *testing.T, b *beam, c *config.RunConfig, opt Options) (*Run, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	opt.Out = out
	opt.Now = func() time.Time { return fixedNow }
	if opt.Exit == nil {
		opt.Exit = func(code int) { t.Fatalf("unexpected exit %d", code) }
	}
	r, err := New(b, c, opt)
	require.NoError(t, err)
	return r, out
}

func TestExecuteIsDeterministic(t *testing.T) {
	r1, _ := newRun(t, &beam{}, testConfig(500), Options{})
	rep1, err := r1.Execute(context.Background())
	require.NoError(t, err)
	r2, _ := newRun(t, &beam{}, testConfig(500), Options{})
	rep2, err := r2.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(500), rep1.Completed)
	assert.Equal(t, rep1.Detectors, rep2.Detectors)
	assert.Equal(t, r1.Detectors()[1].Sum, r2.Detectors()[1].Sum)
	assert.Equal(t, float64(500), rep1.Detectors[0].Events)
}

func TestResumeMatchesUninterruptedRun(t *testing.T) {
	full, _ := newRun(t, &beam{}, testConfig(2000), Options{})
	_, err := full.Execute(context.Background())
	require.NoError(t, err)

	state := filepath.Join(t.TempDir(), "run.ntck")
	half, _ := newRun(t, &beam{}, testConfig(1000), Options{StatePath: state})
	_, err = half.Execute(context.Background())
	require.NoError(t, err)

	resumed, _ := newRun(t, &beam{}, testConfig(2000), Options{})
	require.NoError(t, resumed.Resume(state))
	assert.Equal(t, int64(1000), resumed.Completed())
	rep, err := resumed.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2000), rep.Completed)
	for i, h := range full.Detectors() {
		got := resumed.Detectors()[i]
		assert.Equal(t, h.Counts, got.Counts, h.Name)
		assert.Equal(t, h.Sum, got.Sum, h.Name)
		assert.Equal(t, h.Sum2, got.Sum2, h.Name)
	}
}

func TestResumeRejectsOtherGenerator(t *testing.T) {
	state := filepath.Join(t.TempDir(), "run.ntck")
	r, _ := newRun(t, &beam{}, testConfig(10), Options{StatePath: state})
	_, err := r.Execute(context.Background())
	require.NoError(t, err)

	c := testConfig(10)
	c.Generator = "mt"
	other, _ := newRun(t, &beam{}, c, Options{})
	err = other.Resume(state)
	require.Error(t, err)
	assert.Equal(t, errs.KindConfig, errs.KindOf(err))
}

func TestTerminateStopsAtSafePoint(t *testing.T) {
	b := &beam{hook: func(r *Run, n int64) {
		if n == 10 {
			require.NoError(t, r.Post(checkpoint.Post{Req: checkpoint.Terminate, Origin: "test"}))
		}
	}}
	r, out := newRun(t, b, testConfig(1000), Options{})
	rep, err := r.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), rep.Completed)
	assert.Contains(t, out.String(), "Finishing simulation (save results and exit)")
	assert.Contains(t, out.String(), "Detector: total_I=")
	assert.True(t, r.Progress().Done)
}

func TestSaveRequestWritesIntermediateResults(t *testing.T) {
	b := &beam{hook: func(r *Run, n int64) {
		if n == 5 {
			require.NoError(t, r.Post(checkpoint.Post{Req: checkpoint.Save, Origin: "test"}))
		}
	}}
	r, out := newRun(t, b, testConfig(20), Options{})
	rep, err := r.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(20), rep.Completed)
	assert.Equal(t, 2, strings.Count(out.String(), "Detector: total_I="))
	assert.Contains(t, out.String(), "Saving data and resume simulation (continue)")
}

func TestCanceledContextTerminates(t *testing.T) {
	r, _ := newRun(t, &beam{}, testConfig(1000), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := r.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rep.Completed)
}

func TestOutputFilesAreWritten(t *testing.T) {
	c := testConfig(100)
	c.NoOutputFiles = false
	c.Dir = filepath.Join(t.TempDir(), "out")
	require.NoError(t, c.PrepareDir())
	r, _ := newRun(t, &beam{}, c, Options{})
	_, err := r.Execute(context.Background())
	require.NoError(t, err)

	sim, err := os.ReadFile(filepath.Join(c.Dir, "mcstas.sim"))
	require.NoError(t, err)
	assert.Contains(t, string(sim), "Param: width=0.5")
	assert.Contains(t, string(sim), "Seed: 42")
	_, err = os.Stat(filepath.Join(c.Dir, "x.dat"))
	require.NoError(t, err)
}

func TestParameterErrors(t *testing.T) {
	c := testConfig(10)
	c.Params = map[string]string{}
	_, err := New(&beam{}, c, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "left unset")

	c.Params = map[string]string{"width": "0.5", "height": "1"}
	_, err = New(&beam{}, c, Options{})
	require.Error(t, err)

	c.Params = map[string]string{"width": "wide"}
	_, err = New(&beam{}, c, Options{})
	require.Error(t, err)
	assert.True(t, errs.IsFatal(err))
}

func TestUnsetSeedIsNotReported(t *testing.T) {
	c := testConfig(1)
	c.Seed = nil
	r, _ := newRun(t, &beam{}, c, Options{})
	assert.NotZero(t, r.Seed())

	var info bytes.Buffer
	require.NoError(t, r.WriteInfo(&info))
	assert.NotContains(t, info.String(), "Seed:")
	assert.Contains(t, info.String(), "Ncount: 1")
}
