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

package server

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/neutrace"
	"github.com/zintix-labs/neutrace/checkpoint"
	"github.com/zintix-labs/neutrace/errs"
	"github.com/zintix-labs/neutrace/server/api"
	"github.com/zintix-labs/neutrace/server/netsvr"
	"github.com/zintix-labs/neutrace/server/svrcfg"
	"github.com/zintix-labs/neutrace/stats"
)

type fakeRun struct {
	mu    sync.Mutex
	posts []checkpoint.Post
	full  bool
	done  bool
	dets  int
}

func (f *fakeRun) Progress() neutrace.Progress {
	f.mu.Lock()
	defer f.mu.Unlock()
	return neutrace.Progress{
		Instrument: "TestBeam",
		State:      "Running",
		Run:        25,
		NCount:     100,
		Pending:    len(f.posts),
		Done:       f.done,
	}
}

func (f *fakeRun) Report() *stats.RunReport {
	rep := &stats.RunReport{Instrument: "TestBeam", Generator: "lagged", Seed: 1, Requested: 100, Completed: 25}
	rep.Detectors = append(rep.Detectors, stats.NewSummary("total", 0, stats.Accumulator{N: 4, P1: 8, P2: 20}, ""))
	for i := 0; i < f.dets; i++ {
		rep.Detectors = append(rep.Detectors, stats.NewSummary("extra_monitor", 1, stats.Accumulator{N: 1, P1: 1, P2: 1}, "extra.dat"))
	}
	return rep
}

func (f *fakeRun) Post(p checkpoint.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return errs.Warnf("checkpoint queue full: %s dropped", p.Req).WithKind(errs.KindInterrupt)
	}
	f.posts = append(f.posts, p)
	return nil
}

func newTestServer(t *testing.T, run *fakeRun) *httptest.Server {
	t.Helper()
	cfg := &svrcfg.SvrCfg{Run: run, Tick: 10 * time.Millisecond}
	require.NoError(t, cfg.Valid())
	svr := netsvr.NewChiServer("")
	require.True(t, svr.Ready())
	api.RegisterRoutes(svr, cfg)
	ts := httptest.NewServer(svr.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t, &fakeRun{})
	resp, body := get(t, ts.URL+"/v1/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var p neutrace.Progress
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	assert.Equal(t, "TestBeam", p.Instrument)
	assert.Equal(t, int64(25), p.Run)
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
}

func TestDetectors(t *testing.T) {
	ts := newTestServer(t, &fakeRun{})

	resp, body := get(t, ts.URL+"/v1/detectors")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rep stats.RunReport
	require.NoError(t, json.Unmarshal([]byte(body), &rep))
	require.Len(t, rep.Detectors, 1)
	assert.Equal(t, "total", rep.Detectors[0].Name)
	assert.Equal(t, 8.0, rep.Detectors[0].Intensity)

	resp, body = get(t, ts.URL+"/v1/detectors?format=yaml")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "name: total")
	assert.Contains(t, resp.Header.Get("Content-Type"), "yaml")

	resp, _ = get(t, ts.URL+"/v1/detectors?format=xml")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDetectorsAreCompressed(t *testing.T) {
	ts := newTestServer(t, &fakeRun{dets: 20})
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/v1/detectors", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
	zr, err := gzip.NewReader(resp.Body)
	require.NoError(t, err)
	var rep stats.RunReport
	require.NoError(t, json.NewDecoder(zr).Decode(&rep))
	assert.Len(t, rep.Detectors, 21)
}

func TestCheckpointRequests(t *testing.T) {
	run := &fakeRun{}
	ts := newTestServer(t, run)
	post := func(path string) int {
		resp, err := http.Post(ts.URL+path, "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusAccepted, post("/v1/checkpoint/save"))
	assert.Equal(t, http.StatusAccepted, post("/v1/checkpoint/report"))
	assert.Equal(t, http.StatusBadRequest, post("/v1/checkpoint/abort"))
	assert.Equal(t, http.StatusBadRequest, post("/v1/checkpoint/explode"))

	run.mu.Lock()
	require.Len(t, run.posts, 2)
	assert.Equal(t, checkpoint.Save, run.posts[0].Req)
	assert.True(t, strings.HasPrefix(run.posts[0].Origin, "HTTP POST /v1/checkpoint/save"))
	run.full = true
	run.mu.Unlock()

	assert.Equal(t, http.StatusTooManyRequests, post("/v1/checkpoint/terminate"))
}

func TestProgressStream(t *testing.T) {
	run := &fakeRun{}
	ts := newTestServer(t, run)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var p neutrace.Progress
	require.NoError(t, conn.ReadJSON(&p))
	assert.Equal(t, "TestBeam", p.Instrument)
	assert.False(t, p.Done)

	run.mu.Lock()
	run.done = true
	run.mu.Unlock()
	for !p.Done {
		require.NoError(t, conn.ReadJSON(&p))
	}
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestValidRequiresRun(t *testing.T) {
	cfg := &svrcfg.SvrCfg{}
	err := cfg.Valid()
	require.Error(t, err)
	assert.Equal(t, errs.KindConfig, errs.KindOf(err))
}
