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

package output

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/neutrace/format"
	"github.com/zintix-labs/neutrace/stats"
)

var fixedNow = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

func testInfo() SimInfo {
	return SimInfo{
		Instrument: "demo",
		Source:     "demo.instr",
		Params: []Param{
			{Name: "lambda", Type: "double", Value: "1.5"},
			{Name: "label", Type: "string", Value: `"it's"`},
		},
		Seed: 42,
	}
}

func newTestEngine(t *testing.T, dialect string, dataOnly bool, mut func(*Config)) (*Engine, *bytes.Buffer, string) {
	t.Helper()
	d, err := format.Use(dialect, dataOnly)
	require.NoError(t, err)
	dir := t.TempDir()
	out := &bytes.Buffer{}
	cfg := Config{
		Dir:      dir,
		Out:      out,
		Now:      func() time.Time { return fixedNow },
		User:     "tester on host",
		Progress: func() (float64, float64) { return 1000, 1000 },
	}
	if mut != nil {
		mut(&cfg)
	}
	return New(d, cfg, testInfo()), out, dir
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func seq(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func TestSave0DMcStas(t *testing.T) {
	e, out, dir := newTestEngine(t, "McStas", false, nil)
	require.NoError(t, e.Save(Block0D("mon", "Monitor", stats.Accumulator{N: 4, P1: 8, P2: 32})))

	require.Equal(t, "Detector: mon_I=8 mon_ERR=6.1101 mon_N=4\n", out.String())

	sim := readFile(t, filepath.Join(dir, "mcstas.sim"))
	require.True(t, strings.HasPrefix(sim, "Format: McStas with text headers file\n"))
	require.Contains(t, sim, "Creator: demo (demo.instr) simulation (neutrace)\n")
	require.Contains(t, sim, "begin instrument\n  name: demo\n")
	require.Contains(t, sim, "  Parameters:  lambda(double) label(string)\n")
	require.Contains(t, sim, "  Ncount: 1000\n")
	require.Contains(t, sim, "  Seed: 42\n")
	require.Contains(t, sim, "  Param: lambda=1.5\n")
	require.Contains(t, sim, "begin component\n  name: mon\n")
	require.Contains(t, sim, "  type: array_0d\n")
	require.Contains(t, sim, "  variables: I I I_err N\n")
	require.Contains(t, sim, "  values: 8 6.1101 4\n")
	require.Contains(t, sim, "  xylimits: 0 0 0 0 0 0\n")
	require.True(t, strings.HasSuffix(sim, "EndDate: (1741064767) Tue Mar  4 05:06:07 2025\n"))
}

func TestTextValuesReparse(t *testing.T) {
	const n, p1, p2 = 7.0, 0.123456789, 0.0152415787
	e, _, dir := newTestEngine(t, "Matlab", false, func(c *Config) { c.SingleFile = true })
	require.NoError(t, e.Save(Block3D("cube", "Cube", "x", "y", "z", "x", "y", "z",
		0, 1, 0, 1, 0, 1, 1, 1, 1, []float64{n}, []float64{p1}, []float64{p2}, "cube.m")))
	sim := readFile(t, filepath.Join(dir, "mcstas.m"))

	value := func(part string) float64 {
		m := regexp.MustCompile(`\.` + part + ` = \[\s*(\S+) `).FindStringSubmatch(sim)
		require.Len(t, m, 2, part)
		v, err := strconv.ParseFloat(m[1], 64)
		require.NoError(t, err, part)
		return v
	}
	gotN, gotP1, gotErr := value("events"), value("data"), value("errors")
	require.Equal(t, n, gotN)
	require.InEpsilon(t, p1, gotP1, 1e-5)
	require.InEpsilon(t, stats.EstimateError(n, p1, p2), gotErr, 1e-5)

	// 由誤差反推二階矩
	mean := gotP1 / gotN
	gotP2 := gotErr*gotErr*(gotN-1)/gotN + mean*mean
	require.InEpsilon(t, p2, gotP2, 1e-4)
}

func TestNonFiniteValuesUseCSpelling(t *testing.T) {
	require.Equal(t, "nan", g(math.NaN()))
	require.Equal(t, "inf", g(math.Inf(1)))
	require.Equal(t, "-inf", g(math.Inf(-1)))
	require.Equal(t, "1e+06", g(1e6))
	require.Equal(t, "0.000123457", g(0.000123456789))

	e, out, _ := newTestEngine(t, "McStas", false, nil)
	require.NoError(t, e.Save(Block0D("mon", "Monitor", stats.Accumulator{N: 1, P1: math.Inf(1), P2: math.NaN()})))
	require.Equal(t, "Detector: mon_I=inf mon_ERR=inf mon_N=1\n", out.String())
}

func TestNoFormatErrorsInAnyDialect(t *testing.T) {
	for _, name := range format.Names() {
		for _, variant := range []string{"", " binary", " binary double"} {
			t.Run(name+variant, func(t *testing.T) {
				e, _, dir := newTestEngine(t, name+variant, false, nil)
				h1 := stats.New1D("lam", "Wavelength", 5, 0, 10).WithLabels("Wavelength [AA]", "Intensity", "").WithVars("L", "", "").WithFile("lam.dat")
				h2 := stats.New2D("psd", "PSD", 3, 2, -1, 1, -1, 1).WithLabels("X", "Y", "").WithFile("psd.dat")
				h3 := stats.New3D("cube", "Cube", 2, 2, 2, 0, 1, 0, 1, 0, 1).WithVars("x", "y", "z").WithFile("cube.dat")
				h1.Fill(1, 3)
				h2.Fill(2, 0.1, 0.1)
				h3.Fill(3, 0.2, 0.7, 0.9)
				require.NoError(t, e.Save(
					Block0D("mon", "Monitor", stats.Accumulator{N: 2, P1: 1, P2: 0.5}),
					FromHistogram(h1), FromHistogram(h2), FromHistogram(h3),
				))
				entries, err := os.ReadDir(dir)
				require.NoError(t, err)
				require.NotEmpty(t, entries)
				sim := readFile(t, filepath.Join(dir, e.InfoFileName()))
				require.NotContains(t, sim, "%!")
				if variant == "" {
					for _, ent := range entries {
						require.NotContains(t, readFile(t, filepath.Join(dir, ent.Name())), "%!", ent.Name())
					}
				}
			})
		}
	}
}

func TestSaveIsIdempotent(t *testing.T) {
	e, _, dir := newTestEngine(t, "Matlab", false, nil)
	h := stats.New2D("psd", "PSD", 4, 3, 0, 4, 0, 3).WithFile("psd.m")
	for i := 0; i < 12; i++ {
		h.Fill(float64(i%5), float64(i%4)+0.5, float64(i%3)+0.5)
	}
	snapshot := func() map[string]string {
		files := map[string]string{}
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, ent := range entries {
			files[ent.Name()] = readFile(t, filepath.Join(dir, ent.Name()))
		}
		return files
	}
	require.NoError(t, e.Save(FromHistogram(h)))
	first := snapshot()
	require.NoError(t, e.Save(FromHistogram(h)))
	require.Equal(t, first, snapshot())
	require.Contains(t, first["psd.m"], ".errors = [ ")
}

func TestTextLayoutAndTransposition(t *testing.T) {
	e, _, dir := newTestEngine(t, "McStas", true, nil)
	e.Save(Block2D("psd", "PSD", "X", "Y", 0, 3, 0, 2, 3, 2, nil, seq(6), nil, "psd.dat"))
	require.Equal(t, "0 2 4 \n1 3 5 \n", readFile(t, filepath.Join(dir, "psd.dat")))

	e.Save(Block2D("psd", "PSD", "X", "Y", 0, 3, 0, 2, -3, 2, nil, seq(6), nil, "psdT.dat"))
	require.Equal(t, "0 1 \n2 3 \n4 5 \n", readFile(t, filepath.Join(dir, "psdT.dat")))
}

func TestListSeparatedDialect(t *testing.T) {
	e, _, dir := newTestEngine(t, "Python", true, nil)
	e.Save(Block2D("psd", "PSD", "X", "Y", 0, 3, 0, 2, 3, 2, nil, seq(6), nil, "psd.py"))
	require.Equal(t, "0,2,4,\n1,3,5 \n", readFile(t, filepath.Join(dir, "psd.py")))
	sim := readFile(t, filepath.Join(dir, "mcstas.py"))
	require.Contains(t, sim, "['data'] = [  ]\n")
	require.Contains(t, sim, "mc_psd_py['title'] = 'PSD'\n")
}

func TestQuotesAreStripped(t *testing.T) {
	e, _, dir := newTestEngine(t, "Scilab", false, nil)
	require.NoError(t, e.Save())
	sim := readFile(t, filepath.Join(dir, "mcstas.sci"))
	require.Contains(t, sim, ".label = ' it s ';\n")
}

func TestBinaryData(t *testing.T) {
	e, _, dir := newTestEngine(t, "McStas binary double", true, nil)
	e.Save(Block2D("psd", "PSD", "X", "Y", 0, 3, 0, 2, 3, 2, nil, seq(6), nil, "psd.bin"))
	raw := []byte(readFile(t, filepath.Join(dir, "psd.bin")))
	require.Len(t, raw, 48)
	for i := 0; i < 6; i++ {
		require.Equal(t, float64(i), math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:])))
	}

	e, _, dir = newTestEngine(t, "McStas binary", true, nil)
	p0 := []float64{1, 1, 4, 1, 1, 1}
	p1 := []float64{1, 2, 8, 4, 5, 6}
	p2 := []float64{1, 4, 32, 16, 25, 36}
	e.Save(Block2D("psd", "PSD", "X", "Y", 0, 3, 0, 2, 3, 2, p0, p1, p2, "psd.bin"))
	raw = []byte(readFile(t, filepath.Join(dir, "psd.bin")))
	require.Len(t, raw, 3*24)
	errAt := func(i int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(raw[24+4*i:]))
	}
	require.Equal(t, float32(2), errAt(1))
	require.InDelta(t, 6.1101, float64(errAt(2)), 1e-4)
	require.Equal(t, float32(4), math.Float32frombits(binary.LittleEndian.Uint32(raw[48+8:])))
}

func TestInterleaved1D(t *testing.T) {
	e, out, dir := newTestEngine(t, "McStas", true, nil)
	p0 := []float64{1, 1, 1, 1}
	p1 := []float64{1, 2, 3, 4}
	p2 := []float64{1, 4, 9, 16}
	require.Equal(t, 10.0, e.DetectorOut(Block1D("lam", "L", "x", "I", "x", 0, 4, 4, p0, p1, p2, "lam.dat")))
	require.Equal(t, "0 1 1 1\n1 2 2 1\n2 3 3 1\n3 4 4 1\n", readFile(t, filepath.Join(dir, "lam.dat")))
	require.Equal(t, "Detector: lam_I=10 lam_ERR=5.62731 lam_N=4 \"lam.dat\"\n", out.String())
}

func TestDataFileTextHeaders(t *testing.T) {
	e, _, dir := newTestEngine(t, "McStas", false, nil)
	h := stats.New1D("lam", "Wavelength", 4, 0, 4).WithLabels("L", "I", "").WithVars("L", "", "").WithFile("lam.dat")
	h.Fill(1, 0.5)
	require.NoError(t, e.Save(FromHistogram(h)))
	data := readFile(t, filepath.Join(dir, "lam.dat"))
	require.True(t, strings.HasPrefix(data, "# Format: McStas with text headers file\n"))
	require.Contains(t, data, "# type: array_1d(4)\n")
	require.Contains(t, data, "# xlimits: 0 4\n")
	require.Contains(t, data, "0 1 1 1\n")
	require.True(t, strings.HasSuffix(data, "# EndDate: (1741064767) Tue Mar  4 05:06:07 2025\n"))

	sim := readFile(t, filepath.Join(dir, "mcstas.sim"))
	require.Contains(t, sim, "begin data\n    name: lam.dat\n    parent: lam\n")
	require.Contains(t, sim, "    filename: lam.dat\n")
}

func TestSingleFile(t *testing.T) {
	e, _, dir := newTestEngine(t, "McStas", false, func(c *Config) { c.SingleFile = true })
	require.NoError(t, e.Save(Block2D("psd", "PSD", "X", "Y", 0, 3, 0, 2, 3, 2, nil, seq(6), nil, "psd.dat")))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	sim := readFile(t, filepath.Join(dir, "mcstas.sim"))
	require.Contains(t, sim, "    begin array_2d(3,2)\n    0 2 4 \n    1 3 5 \n    end array_2d(3,2)\n")
}

func TestDisabledOutput(t *testing.T) {
	e, out, dir := newTestEngine(t, "McStas", false, func(c *Config) { c.Disabled = true })
	require.NoError(t, e.Save(Block2D("psd", "PSD", "X", "Y", 0, 3, 0, 2, 3, 2, nil, seq(6), nil, "psd.dat")))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Equal(t, "Detector: psd_I=15 psd_ERR=7.64853 psd_N=6 \"psd.dat\"\n", out.String())
}

func TestUnwritableDirectoryOnlyWarns(t *testing.T) {
	e, out, _ := newTestEngine(t, "McStas", false, func(c *Config) { c.Dir = filepath.Join(c.Dir, "missing") })
	require.NoError(t, e.Save(Block0D("mon", "Monitor", stats.Accumulator{N: 1, P1: 2, P2: 4})))
	require.Equal(t, "Detector: mon_I=2 mon_ERR=2 mon_N=1\n", out.String())
}

func TestCompressedDataFile(t *testing.T) {
	e, _, dir := newTestEngine(t, "McStas", true, func(c *Config) { c.Compress = CompressGzip })
	e.Save(Block2D("psd", "PSD", "X", "Y", 0, 3, 0, 2, 3, 2, nil, seq(6), nil, "psd.dat"))
	f, err := os.Open(filepath.Join(dir, "psd.dat.gz"))
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	b, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.Equal(t, "0 2 4 \n1 3 5 \n", string(b))
}

func TestHeaderOutAndInfo(t *testing.T) {
	e, _, _ := newTestEngine(t, "McStas", false, nil)
	var buf bytes.Buffer
	require.NoError(t, e.HeaderOut(&buf, Block2D("psd", "PSD", "X", "Y", 0, 3, 0, 2, 3, 2, nil, nil, nil, "psd.dat")))
	s := buf.String()
	require.True(t, strings.HasPrefix(s, "# Format: McStas with text headers file\n"))
	require.Contains(t, s, "# type: array_2d(3, 2)\n")
	require.Contains(t, s, "# begin array_2d(3,2)\n# end array_2d(3,2)\n")
	require.NotContains(t, s, "# values:")

	buf.Reset()
	require.NoError(t, e.WriteInfo(&buf))
	require.Contains(t, buf.String(), "Param: label=\"it's\"\n")
	require.Contains(t, buf.String(), "end simulation\n  EndDate:")
}

func TestCompressionParse(t *testing.T) {
	c, err := ParseCompression("ZSTD")
	require.NoError(t, err)
	require.Equal(t, ".zst", c.Suffix())
	_, err = ParseCompression("lz4")
	require.Error(t, err)
}
