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

package config

import (
	"slices"
	"strconv"
	"strings"

	"github.com/zintix-labs/neutrace/errs"
	"github.com/zintix-labs/neutrace/output"
)

// ParamKind 為儀器參數的型別（封閉集合）。
type ParamKind uint8

const (
	Double ParamKind = iota
	Int
	String
)

func (k ParamKind) String() string {
	switch k {
	case Int:
		return "int"
	case String:
		return "string"
	}
	return "double"
}

// ParamDef 宣告一個儀器參數。
type ParamDef struct {
	Name string
	Kind ParamKind
}

// ParamValue 為已解析的參數值。
type ParamValue struct {
	Kind ParamKind
	F    float64
	I    int
	S    string
}

// ParseParam 依型別解析字串；整數限制在 32 位元範圍內，其餘字元必須完全被解析。
func ParseParam(k ParamKind, raw string) (ParamValue, error) {
	v := ParamValue{Kind: k}
	s := strings.TrimLeft(raw, " \t\n\r\v\f")
	switch k {
	case Double:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || s == "" {
			return v, errs.Configf("invalid value '%s' for floating point parameter", raw)
		}
		v.F = f
	case Int:
		i, err := strconv.ParseInt(s, 10, 32)
		if err != nil || s == "" {
			return v, errs.Configf("invalid value '%s' for integer parameter", raw)
		}
		v.I = int(i)
	default:
		v.S = raw
	}
	return v, nil
}

// Format 以 %g / %d 輸出數值；字串跳脫換行、歸位、雙引號與反斜線。
func (v ParamValue) Format() string {
	switch v.Kind {
	case Int:
		return strconv.Itoa(v.I)
	case String:
		var b strings.Builder
		for _, r := range v.S {
			switch r {
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '"':
				b.WriteString(`\"`)
			case '\\':
				b.WriteString(`\\`)
			default:
				b.WriteRune(r)
			}
		}
		return b.String()
	}
	return strconv.FormatFloat(v.F, 'g', 6, 64)
}

// Params 為一個儀器的參數表。
type Params struct {
	defs []ParamDef
	vals map[string]ParamValue
}

func NewParams(defs ...ParamDef) *Params {
	return &Params{defs: defs, vals: make(map[string]ParamValue, len(defs))}
}

func (p *Params) def(name string) (ParamDef, bool) {
	for _, d := range p.defs {
		if d.Name == name {
			return d, true
		}
	}
	return ParamDef{}, false
}

// Set 解析並設定單一參數；未宣告的名稱為設定錯誤。
func (p *Params) Set(name, raw string) error {
	d, ok := p.def(name)
	if !ok {
		return errs.Configf("unrecognized parameter %s", name)
	}
	v, err := ParseParam(d.Kind, raw)
	if err != nil {
		return errs.Wrap(err, "parameter "+name)
	}
	p.vals[name] = v
	return nil
}

// Apply 依名稱排序套用一組參數。
func (p *Params) Apply(raw map[string]string) error {
	names := make([]string, 0, len(raw))
	for k := range raw {
		names = append(names, k)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := p.Set(name, raw[name]); err != nil {
			return err
		}
	}
	return nil
}

// Check 回傳第一個未設定的參數錯誤。
func (p *Params) Check() error {
	for _, d := range p.defs {
		if _, ok := p.vals[d.Name]; !ok {
			return errs.Configf("instrument parameter %s left unset", d.Name)
		}
	}
	return nil
}

func (p *Params) Value(name string) (ParamValue, bool) {
	v, ok := p.vals[name]
	return v, ok
}

func (p *Params) Float(name string) float64 { return p.vals[name].F }

func (p *Params) Int(name string) int { return p.vals[name].I }

func (p *Params) Text(name string) string { return p.vals[name].S }

// Table 依宣告順序回傳描述檔使用的參數列表。
func (p *Params) Table() []output.Param {
	out := make([]output.Param, 0, len(p.defs))
	for _, d := range p.defs {
		out = append(out, output.Param{Name: d.Name, Type: d.Kind.String(), Value: p.vals[d.Name].Format()})
	}
	return out
}

// Raw 回傳可寫回設定檔的字串形式。
func (p *Params) Raw() map[string]string {
	out := make(map[string]string, len(p.vals))
	for _, d := range p.defs {
		v, ok := p.vals[d.Name]
		if !ok {
			continue
		}
		if d.Kind == String {
			out[d.Name] = v.S
		} else {
			out[d.Name] = v.Format()
		}
	}
	return out
}
