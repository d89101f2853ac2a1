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

// Package format 定義結構化輸出的方言（dialect）：每種方言是一組不可變的文字樣板，
// 由 output.Engine 依固定的參數順序填入。
//
// 樣板使用 Go 的顯式索引動詞（%[n]s、%[n]d、%.6[n]g），參數順序見各常數說明。
// 空字串樣板代表該部分不輸出。
package format

import (
	"strings"

	"github.com/zintix-labs/neutrace/errs"
)

// Family 為方言家族，決定資料區塊的排版細節。
type Family uint8

const (
	FamilyMcStas Family = iota
	FamilyScilab
	FamilyMatlab
	FamilyIDL
	FamilyPython
	FamilyXML
)

// Encoding 為資料區塊的編碼。
type Encoding uint8

const (
	Text Encoding = iota
	BinaryFloat
	BinaryDouble
)

// 名稱後綴（只附加，不修改原名）。
const (
	SuffixBinaryFloat  = " binary float data"
	SuffixBinaryDouble = " binary double data"
	SuffixTextHeaders  = " with text headers"
)

// Dialect 為一種輸出方言的樣板集合。
//
// Header / Footer 參數：1 前綴, 2 "儀器 (來源)", 3 檔名, 4 格式名稱, 5 日期字串,
// 6 使用者, 7 合法化的父節點名稱, 8 Unix 時間 (int64)。
//
// BeginSection / EndSection 參數：1 前綴, 2 類型, 3 名稱, 4 合法名稱, 5 父節點,
// 6 合法父節點, 7 層級 (int)。
//
// AssignTag 參數：1 前綴, 2 合法區段名, 3 標籤名, 4 值。
//
// Begin/End Data/Errors/Ncount 參數：1 前綴, 2 合法父節點, 3 標題, 4 檔名,
// 5 x 標籤, 6 合法 x 標籤, 7 y 標籤, 8 合法 y 標籤, 9 z 標籤, 10 合法 z 標籤,
// 11 x 變數, 12 y 變數, 13 z 變數, 14-16 m n p (int), 17-22 x1 x2 y1 y2 z1 z2 (float64)。
type Dialect struct {
	Name      string
	Extension string
	Family    Family
	Encoding  Encoding
	// DataOnly 為 true 時資料檔不寫入任何文字標頭。
	DataOnly bool

	Header       string
	Footer       string
	AssignTag    string
	BeginSection string
	EndSection   string
	BeginData    string
	EndData      string
	BeginErrors  string
	EndErrors    string
	BeginNcount  string
	EndNcount    string
}

// IsMcStas 回傳是否為預設純文字方言。
func (d Dialect) IsMcStas() bool { return d.Family == FamilyMcStas }

// IsBinary 回傳資料是否以二進位輸出。
func (d Dialect) IsBinary() bool { return d.Encoding != Text }

// StripQuotes 回傳標籤值是否需去除引號（值會被包在字串常值中）。
func (d Dialect) StripQuotes() bool {
	switch d.Family {
	case FamilyScilab, FamilyMatlab, FamilyIDL, FamilyPython:
		return true
	}
	return false
}

// ListSeparated 回傳資料值是否以逗號分隔。
func (d Dialect) ListSeparated() bool {
	return d.Family == FamilyIDL || d.Family == FamilyPython
}

// EOL 回傳資料列結尾。
func (d Dialect) EOL() string {
	if d.Family == FamilyIDL {
		return "$\n"
	}
	return "\n"
}

// Root 回傳模擬描述檔的根節點名稱。
func (d Dialect) Root() string {
	if d.Family == FamilyXML {
		return "root"
	}
	return "mcstas"
}

// DataPrefix 回傳獨立資料檔中標頭的前綴。
func (d Dialect) DataPrefix() string {
	if d.IsMcStas() {
		return "# "
	}
	return ""
}

// Names 回傳已註冊方言名稱。
func Names() []string {
	out := make([]string, len(registry))
	for i, d := range registry {
		out[i] = d.Name
	}
	return out
}

// Default 回傳預設方言（McStas 純文字）。
func Default() Dialect { return registry[0] }

// Lookup 以完整名稱取得方言。
func Lookup(name string) (Dialect, bool) {
	for _, d := range registry {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return Dialect{}, false
}

// Use 依使用者字串選擇方言並附加修飾後綴。
//
// 字串中包含已註冊名稱（不分大小寫，最後一個命中者優先）即選中；
// 包含 "binary" 時依 "double" 與否選擇 64/32 位元；
// dataOnly 為 false 時名稱再附加 " with text headers"。未知方言為設定錯誤。
func Use(choice string, dataOnly bool) (Dialect, error) {
	lower := strings.ToLower(choice)
	idx := -1
	if strings.TrimSpace(choice) == "" {
		idx = 0
	}
	for i, d := range registry {
		if strings.Contains(lower, strings.ToLower(d.Name)) {
			idx = i
		}
	}
	if idx < 0 {
		return Dialect{}, errs.Configf("unknown output format: %q (known: %s)", choice, strings.Join(Names(), ", "))
	}
	d := registry[idx]
	if strings.Contains(lower, "binary") {
		if strings.Contains(lower, "double") {
			d.Encoding = BinaryDouble
			d.Name += SuffixBinaryDouble
		} else {
			d.Encoding = BinaryFloat
			d.Name += SuffixBinaryFloat
		}
	}
	d.DataOnly = dataOnly
	if !dataOnly {
		d.Name += SuffixTextHeaders
	}
	return d, nil
}
