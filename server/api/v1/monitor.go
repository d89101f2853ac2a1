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

package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/zintix-labs/neutrace/checkpoint"
	"github.com/zintix-labs/neutrace/errs"
	"github.com/zintix-labs/neutrace/server/httperr"
	"github.com/zintix-labs/neutrace/server/svrcfg"
	"github.com/zintix-labs/neutrace/stats"
)

// MonitorHandler 提供執行進度、偵測器摘要與中斷請求的 HTTP 介面。
// 只讀取原子值與已發布的快照，不會碰到試驗迴圈的狀態。
type MonitorHandler struct {
	cfg      *svrcfg.SvrCfg
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewMonitorHandler(cfg *svrcfg.SvrCfg) *MonitorHandler {
	return &MonitorHandler{
		cfg: cfg,
		log: cfg.Log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Status GET /v1/status
func (h *MonitorHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cfg.Run.Progress())
}

// Detectors GET /v1/detectors[?format=json|yaml]
func (h *MonitorHandler) Detectors(w http.ResponseWriter, r *http.Request) {
	rep := h.cfg.Run.Report()
	if rep == nil {
		httperr.Errs(w, errs.NewWarn("no detector summary published yet"))
		return
	}
	name := r.URL.Query().Get("format")
	rend, err := stats.RenderFor(name)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	if _, ok := rend.(*stats.YAMLRunReportRender); ok {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	if err := rep.WriteWith(w, rend); err != nil {
		httperr.Log(h.log, "write detectors", err)
	}
}

// Checkpoint POST /v1/checkpoint/{report|save|terminate}
//
// abort 只接受來自訊號，因為它會直接結束行程。
func (h *MonitorHandler) Checkpoint(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "req")
	req, err := checkpoint.ParseRequest(name)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	if req == checkpoint.Abort {
		httperr.Errs(w, errs.NewWarn("abort is not accepted over HTTP"))
		return
	}
	p := checkpoint.Post{Req: req, Origin: "HTTP " + r.Method + " " + r.URL.Path + " from " + r.RemoteAddr}
	if err := h.cfg.Run.Post(p); err != nil {
		httperr.Log(h.log, "post checkpoint request", err)
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted": req.String(),
		"pending":  h.cfg.Run.Progress().Pending,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
