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
	"errors"
	"fmt"
	"os"
	"strings"
)

func runTest(_ []string) error {
	PrintGreen("running tests")
	if err := cleanTestCache(); err != nil {
		PrintRed(err.Error())
	}
	// 只顯示結果行；編譯錯誤仍要看得到
	filter := colorResult(func(line string) bool {
		if strings.Contains(line, "build failed") || strings.Contains(line, "setup failed") {
			PrintRed(line)
			return true
		}
		return false
	})
	if err := stream(filter, "go", "test", "./...", "-cover", "-count=1"); err != nil {
		return errors.New("tests finished with errors")
	}
	return nil
}

func runTestAll(_ []string) error {
	PrintGreen("running tests (all with coverage)")
	if err := cleanTestCache(); err != nil {
		return err
	}
	if err := stream(nil, "go", "test", "./...", "-cover"); err != nil {
		return errors.New("tests (with coverage) finished with errors")
	}
	return nil
}

func runTestDetail(_ []string) error {
	PrintGreen("running tests (detail)")
	if err := cleanTestCache(); err != nil {
		return err
	}
	filter := colorResult(func(line string) bool {
		if strings.Contains(line, "[no test files]") {
			return false
		}
		fmt.Println(line)
		return true
	})
	if err := stream(filter, "go", "test", "./...", "-v", "-count=1"); err != nil {
		return errors.New("tests (detail) finished with errors")
	}
	return nil
}

// runDemo 以內嵌設定執行示範儀器，額外參數原樣轉給 cmd/run。
func runDemo(args []string) error {
	const dir = "build/demo"
	PrintBlue("running demo instrument into " + dir)
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	argv := append([]string{"run", "./cmd/run", "-d", dir}, args...)
	if err := stream(nil, "go", argv...); err != nil {
		return fmt.Errorf("demo failed: %w", err)
	}
	PrintGreen("demo output written to " + dir)
	return nil
}
