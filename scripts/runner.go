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

package main

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// lineFilter 決定一行輸出如何顯示；回傳 false 表示略過。
type lineFilter func(line string) bool

// cleanTestCache 清除 go test 快取。
func cleanTestCache() error {
	cmd := exec.Command("go", "clean", "-testcache")
	cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go clean -testcache failed: %w", err)
	}
	return nil
}

// stream 執行指令，合併 stdout/stderr 並逐行交給 filter。
// filter 為 nil 時直接輸出。
func stream(filter lineFilter, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if filter == nil {
		cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
		return cmd.Run()
	}

	out, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	sc := bufio.NewScanner(out)
	for sc.Scan() {
		filter(sc.Text())
	}
	if err := sc.Err(); err != nil {
		PrintRed(fmt.Sprintf("scanner error: %v", err))
	}
	return cmd.Wait()
}

// colorResult 以顏色標示 ok / FAIL 行，其他行交由 rest 處理。
func colorResult(rest lineFilter) lineFilter {
	return func(line string) bool {
		switch {
		case strings.HasPrefix(line, "ok"):
			PrintGreen(line)
		case strings.HasPrefix(line, "FAIL"):
			PrintRed(line)
		default:
			return rest(line)
		}
		return true
	}
}
