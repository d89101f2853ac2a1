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

// Package demo_logic 提供示範儀器：點光源 → 狹縫 → 球形樣品 → 旋轉臂上的偵測器。
package demo_logic

import (
	"encoding/json"
	"math"

	"github.com/zintix-labs/neutrace"
	"github.com/zintix-labs/neutrace/config"
	"github.com/zintix-labs/neutrace/errs"
	"github.com/zintix-labs/neutrace/sdk/geom"
	"github.com/zintix-labs/neutrace/sdk/particle"
	"github.com/zintix-labs/neutrace/sdk/rng"
	"github.com/zintix-labs/neutrace/sdk/sampler"
	"github.com/zintix-labs/neutrace/stats"
)

// K 為波長（Å）與速度（m/s）的換算常數：λ = K / v。
const K = 3956.0346

// maxwellA 為 Maxwell 光譜指數中的常數（K·Å²）。
const maxwellA = 949.0

// spectrumBins 為光譜表的區間數。
const spectrumBins = 256

// 幾何（公尺）
const (
	slitDist   = 1.0
	slitH      = 0.02
	sampleDist = 2.0
	detDist    = 1.0
	detW       = 0.1
	detH       = 0.1
)

var (
	origin = geom.Coords{}
	zAxis  = geom.NewCoords(0, 0, 1)
)

// SphereSample 為示範儀器。參數：
//
//	lambda, dlambda  波長中心與半寬（Å）
//	temp             光源溫度（K），0 為均勻光譜
//	slit_w           狹縫寬（m）
//	sample_r         樣品半徑（m）
//	mu_s             散射係數（1/m）
//	a4               偵測器臂角度（度）
//	nbins            1D/2D 偵測器的區間數
//	split            每個軌跡在樣品前分裂的次數
//	label            樣品名稱，用於偵測器標題
type SphereSample struct {
	lambda, dlambda float64
	slitW           float64
	radius, mu      float64
	split           int
	spectrum        *sampler.AliasTable

	arm    geom.Rotation
	armInv geom.Rotation
	armOff geom.Coords

	slit *stats.Histogram
	flux *stats.Histogram
	lam  *stats.Histogram
	psd  *stats.Histogram

	scattered int64
}

func NewSphereSample() *SphereSample { return &SphereSample{} }

func (s *SphereSample) Info() neutrace.Info {
	return neutrace.Info{
		Name:   "SphereSample",
		Source: "sphere_sample.instr",
		Params: []config.ParamDef{
			{Name: "lambda", Kind: config.Double},
			{Name: "dlambda", Kind: config.Double},
			{Name: "temp", Kind: config.Double},
			{Name: "slit_w", Kind: config.Double},
			{Name: "sample_r", Kind: config.Double},
			{Name: "mu_s", Kind: config.Double},
			{Name: "a4", Kind: config.Double},
			{Name: "nbins", Kind: config.Int},
			{Name: "split", Kind: config.Int},
			{Name: "label", Kind: config.String},
		},
		TraceEnabled: true,
		DefaultMain:  true,
		Embedded:     true,
	}
}

func (s *SphereSample) Init(r *neutrace.Run) error {
	ps := r.Params()
	s.lambda, s.dlambda = ps.Float("lambda"), ps.Float("dlambda")
	s.slitW = ps.Float("slit_w")
	s.radius, s.mu = ps.Float("sample_r"), ps.Float("mu_s")
	s.split = ps.Int("split")
	nbins := ps.Int("nbins")
	label := ps.Text("label")

	switch {
	case s.lambda <= s.dlambda || s.dlambda < 0:
		return errs.Configf("need lambda > dlambda >= 0, got %g and %g", s.lambda, s.dlambda)
	case s.slitW <= 0 || s.radius <= 0 || s.mu < 0:
		return errs.Configf("slit_w and sample_r must be > 0 and mu_s >= 0")
	case nbins < 1 || s.split < 1:
		return errs.Configf("nbins and split must be >= 1")
	}

	if temp := ps.Float("temp"); temp > 0 {
		t, err := maxwellSpectrum(s.lambda-s.dlambda, s.lambda+s.dlambda, temp)
		if err != nil {
			return err
		}
		s.spectrum = t
	}

	// 樣品座標 → 臂座標：先繞 y 軸轉 a4，再沿新的 z 軸平移到偵測器平面。
	s.arm = geom.SetRotation(0, s.a4(ps), 0)
	s.armInv = s.arm.Transpose()
	s.armOff = geom.NewCoords(0, 0, -detDist)

	l1, l2 := s.lambda-1.5*s.dlambda, s.lambda+1.5*s.dlambda
	if l1 <= 0 {
		l1 = 0
	}
	s.slit = r.Monitor(stats.New0D("slit", "Beam after slit"))
	s.flux = r.Monitor(stats.New0D("flux", "Detector flux"))
	s.lam = r.Monitor(stats.New1D("lambda", "Wavelength, "+label, nbins, l1, l2).
		WithLabels("Wavelength [AA]", "Intensity", "").
		WithVars("L", "", "").
		WithFile("lambda.dat"))
	s.psd = r.Monitor(stats.New2D("psd", "PSD, "+label, nbins, nbins, -detW/2, detW/2, -detH/2, detH/2).
		WithLabels("X position [m]", "Y position [m]", "").
		WithFile("psd.dat"))
	r.Bank().Grow(0)
	return nil
}

func (s *SphereSample) a4(ps *config.Params) float64 {
	return ps.Float("a4") * math.Pi / 180
}

// maxwellSpectrum 以區間中心的 Maxwell 通量 λ^-5 exp(-a/(Tλ²)) 建立光譜表。
func maxwellSpectrum(l1, l2, temp float64) (*sampler.AliasTable, error) {
	w := make([]float64, spectrumBins)
	dl := (l2 - l1) / spectrumBins
	for i := range w {
		l := l1 + (float64(i)+0.5)*dl
		w[i] = math.Exp(-maxwellA/(temp*l*l)) / math.Pow(l, 5)
	}
	return sampler.BuildAliasTable(w)
}

// sourceLambda 取光源波長：有光譜表時先選區間再於區間內均勻取值。
func (s *SphereSample) sourceLambda(rnd *rng.Stream) float64 {
	if s.spectrum == nil {
		return s.lambda + s.dlambda*rnd.RandPM1()
	}
	dl := 2 * s.dlambda / spectrumBins
	bin := s.spectrum.Pick(rnd)
	return s.lambda - s.dlambda + (float64(bin)+rnd.Rand01())*dl
}

func (s *SphereSample) Trace(r *neutrace.Run, p *particle.State) error {
	rnd := r.RNG()
	g := r.Gravity()

	r.Breakpoint("source (Trace)")
	lambda := s.sourceLambda(rnd)
	v := K / lambda
	dir, omega := geom.RandVecTargetRect(rnd, geom.NewCoords(0, 0, slitDist), s.slitW/slitDist, slitH/slitDist)
	p.SetVel(dir.Scale(v / geom.Norm(dir)))
	p.P = omega / (4 * math.Pi)

	r.Breakpoint("slit (Trace)")
	p.CoordsChange(geom.NewCoords(0, 0, -slitDist), geom.Identity())
	if !p.PropPlane(zAxis, origin, g) || math.Abs(p.X) > s.slitW/2 || math.Abs(p.Y) > slitH/2 {
		p.Absorb()
		return nil
	}
	s.slit.Fill(p.P)

	// 樣品前分裂：每條分支從同一個狀態出發，權重均分。
	bank := r.Bank()
	if err := bank.Save(0, *p); err != nil {
		return err
	}
	for k := 0; k < s.split; k++ {
		q, err := bank.Restore(0)
		if err != nil {
			return err
		}
		q.P /= float64(s.split)
		s.sample(r, &q)
		if k == s.split-1 {
			*p = q
		}
	}
	return nil
}

// sample 處理樣品散射與偵測器臂；q 從狹縫座標系進入。
func (s *SphereSample) sample(r *neutrace.Run, q *particle.State) {
	rnd := r.RNG()
	g := r.Gravity()

	r.Breakpoint("sample (Trace)")
	q.CoordsChange(geom.NewCoords(0, 0, -(sampleDist-slitDist)), geom.Identity())
	if t0, t1, ok := geom.SphereIntersect(q.Pos(), q.Vel(), s.radius); ok && t1 > 0 {
		t0 = max(t0, 0)
		speed := geom.Norm(q.Vel())
		l := (t1 - t0) * speed
		if rnd.Rand01() < 1-math.Exp(-s.mu*l) {
			q.PropDT(t0+(t1-t0)*rnd.Rand01(), g)
			target := s.armInv.Apply(geom.NewCoords(0, 0, detDist)).Sub(q.Pos())
			dir, omega := geom.RandVecTargetCircle(rnd, target, math.Hypot(detW, detH)/2)
			q.SetVel(dir.Scale(speed / geom.Norm(dir)))
			q.P *= omega / (4 * math.Pi)
			s.scattered++
		}
	}

	r.Breakpoint("detector (Trace)")
	q.CoordsChange(s.armOff, s.arm)
	if !q.PropPlane(zAxis, origin, s.arm.Apply(g)) || math.Abs(q.X) > detW/2 || math.Abs(q.Y) > detH/2 {
		q.Absorb()
		return
	}
	s.flux.Fill(q.P)
	s.lam.Fill(q.P, K/geom.Norm(q.Vel()))
	s.psd.Fill(q.P, q.X, q.Y)
}

type sampleState struct {
	Scattered int64 `json:"scattered"`
}

// SaveState 讓散射次數隨狀態檔續跑。
func (s *SphereSample) SaveState() ([]byte, error) {
	return json.Marshal(sampleState{Scattered: s.scattered})
}

func (s *SphereSample) RestoreState(data []byte) error {
	var st sampleState
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	s.scattered = st.Scattered
	return nil
}

// Scattered 回傳目前為止在樣品中散射的分支數。
func (s *SphereSample) Scattered() int64 { return s.scattered }

// Finally 記錄散射次數。
func (s *SphereSample) Finally(r *neutrace.Run) error {
	r.Logger().Info("sample finished", "scattered", s.scattered, "trials", r.Completed())
	return nil
}
