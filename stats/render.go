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

package stats

import (
	"encoding/json"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zintix-labs/neutrace/errs"
)

type RunReportRender interface {
	Write(w io.Writer, r *RunReport) error
}

// Json渲染
type JsonRunReportRender struct{}

func (jr *JsonRunReportRender) Write(w io.Writer, r *RunReport) error {
	return json.NewEncoder(w).Encode(r)
}

// YAML渲染
type YAMLRunReportRender struct{}

func (yr *YAMLRunReportRender) Write(w io.Writer, r *RunReport) error {
	return forceReadableList(w, r)
}

// RenderFor 依名稱取得渲染器（json / yaml）。
func RenderFor(name string) (RunReportRender, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return &JsonRunReportRender{}, nil
	case "yaml", "yml":
		return &YAMLRunReportRender{}, nil
	}
	return nil, errs.Warnf("unsupported report format: %q", name)
}

// YAML 內層方法：最內層的一維 sequence 以 flow style 輸出。
func forceReadableList[T any](w io.Writer, t *T) error {
	var node yaml.Node
	if err := node.Encode(t); err != nil {
		return err
	}
	styleReadableSequences(&node)

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(&node)
}

func styleReadableSequences(n *yaml.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case yaml.DocumentNode, yaml.MappingNode:
		for _, c := range n.Content {
			styleReadableSequences(c)
		}
	case yaml.SequenceNode:
		nested := false
		for _, c := range n.Content {
			if c != nil && (c.Kind == yaml.SequenceNode || c.Kind == yaml.MappingNode) {
				nested = true
			}
			styleReadableSequences(c)
		}
		if !nested {
			n.Style = yaml.FlowStyle
		}
	}
}
