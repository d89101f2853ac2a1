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
	"maps"

	"github.com/zintix-labs/neutrace/checkpoint"
	"github.com/zintix-labs/neutrace/errs"
	"github.com/zintix-labs/neutrace/stats"
)

// Snapshot 擷取續跑所需的完整狀態；偵測器為深拷貝。
func (r *Run) Snapshot() (*checkpoint.Snapshot, error) {
	state, err := r.rng.Snapshot()
	if err != nil {
		return nil, err
	}
	dets := make([]*stats.Histogram, len(r.detectors))
	for i, h := range r.detectors {
		dets[i] = h.Clone()
	}
	var extra []byte
	if st, ok := r.instr.(Stateful); ok {
		if extra, err = st.SaveState(); err != nil {
			return nil, errs.Wrap(err, "instrument state")
		}
	}
	return &checkpoint.Snapshot{
		Version:    checkpoint.SnapshotVersion,
		Instrument: r.info.Name,
		Seed:       r.seed,
		SeedSet:    r.seedSet,
		Run:        r.run.Load(),
		NCount:     r.ncount,
		Generator:  r.res.RNG.String(),
		RNG:        state,
		Params:     r.params.Raw(),
		Detectors:  dets,
		State:      extra,
		SavedAt:    r.opt.Now().UTC(),
	}, nil
}

// Resume 讀取狀態檔並還原；必須在 Execute 之前呼叫。
func (r *Run) Resume(path string) error {
	s, err := checkpoint.ReadFile(path)
	if err != nil {
		return err
	}
	return r.Restore(s)
}

// Restore 還原計數、亂數串流、偵測器累積值與儀器狀態，使後續試驗與不中斷的執行逐位元一致。
// 試驗總數沿用目前設定，因此可以延長先前的執行。
func (r *Run) Restore(s *checkpoint.Snapshot) error {
	if s.Instrument != r.info.Name {
		return errs.Configf("checkpoint is for instrument '%s', not '%s'", s.Instrument, r.info.Name)
	}
	if gen := r.res.RNG.String(); s.Generator != gen {
		return errs.Configf("checkpoint generator '%s' does not match '%s'", s.Generator, gen)
	}
	if len(s.Detectors) != len(r.detectors) {
		return errs.Configf("checkpoint has %d detectors, instrument has %d", len(s.Detectors), len(r.detectors))
	}
	for i, d := range s.Detectors {
		h := r.detectors[i]
		if d.Name != h.Name || d.Size() != h.Size() ||
			len(d.Counts) != h.Size() || len(d.Sum) != h.Size() || len(d.Sum2) != h.Size() {
			return errs.Configf("checkpoint detector '%s' does not match '%s'", d.Name, h.Name)
		}
	}
	if st, ok := r.instr.(Stateful); ok && s.State != nil {
		if err := st.RestoreState(s.State); err != nil {
			return errs.Configf("checkpoint instrument state: %v", err)
		}
	}
	if err := r.rng.Restore(s.RNG); err != nil {
		return err
	}
	if !maps.Equal(s.Params, r.params.Raw()) {
		r.log.Warn("checkpoint parameters differ from current parameters")
	}
	for i, d := range s.Detectors {
		h := r.detectors[i]
		copy(h.Counts, d.Counts)
		copy(h.Sum, d.Sum)
		copy(h.Sum2, d.Sum2)
	}
	r.seed, r.seedSet = s.Seed, s.SeedSet
	r.run.Store(s.Run)
	r.engine.SetInfo(r.simInfo())
	r.log.Info("resumed from checkpoint", "run", s.Run, "ncount", r.ncount)
	r.publish()
	return nil
}
