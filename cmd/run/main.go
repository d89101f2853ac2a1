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

// Command run 執行示範儀器：
//
//	go run ./cmd/run -n 1e6 -s 42 -d out lambda=4.5 a4=45
//
// 旗標覆寫設定檔（預設為內嵌設定），其餘參數以 name=value 指定儀器參數。
package main

import "os"

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdout, os.Stderr))
}
