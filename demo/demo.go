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

// Package demo 組裝示範儀器與其內嵌設定。
package demo

import (
	"github.com/zintix-labs/neutrace"
	"github.com/zintix-labs/neutrace/config"
	"github.com/zintix-labs/neutrace/demo/demo_configs"
	"github.com/zintix-labs/neutrace/demo/demo_logic"
	"github.com/zintix-labs/neutrace/errs"
)

// ConfigFile 為內嵌設定檔名。
const ConfigFile = "sphere_sample.yaml"

// Config 讀取內嵌的預設設定。
func Config() (*config.RunConfig, error) {
	b, err := demo_configs.FS.ReadFile(ConfigFile)
	if err != nil {
		return nil, errs.Wrap(err, "read embedded demo config")
	}
	return config.Parse(b, "yaml")
}

// Instrument 回傳新的示範儀器實例。
func Instrument() neutrace.Instrument {
	return demo_logic.NewSphereSample()
}

// New 以 cfg 建立示範儀器的 Run；cfg 為 nil 時使用內嵌設定。
func New(cfg *config.RunConfig, opt neutrace.Options) (*neutrace.Run, error) {
	if cfg == nil {
		var err error
		if cfg, err = Config(); err != nil {
			return nil, err
		}
	}
	return neutrace.New(Instrument(), cfg, opt)
}
