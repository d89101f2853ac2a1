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
	"fmt"
	"os"
	"sort"
)

// task 為一個可由 `go run ./scripts <name>` 觸發的工作。
type task struct {
	desc string
	run  func(args []string) error
}

var tasks = map[string]task{
	"test":        {"run all tests, show only package results", runTest},
	"test-all":    {"run all tests with coverage", runTestAll},
	"test-detail": {"run all tests verbosely", runTestDetail},
	"demo":        {"run the embedded demo instrument into build/demo", runDemo},
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	t, ok := tasks[os.Args[1]]
	if !ok {
		PrintYellow(fmt.Sprintf("unknown task: %s", os.Args[1]))
		usage()
		os.Exit(1)
	}
	if err := t.run(os.Args[2:]); err != nil {
		PrintRed(err.Error())
		os.Exit(1)
	}
}

func usage() {
	PrintDefault("Usage: go run ./scripts <task> [args]")
	names := make([]string, 0, len(tasks))
	for n := range tasks {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		PrintDefault(fmt.Sprintf("  %-12s %s", n, tasks[n].desc))
	}
}
