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
)

// ansiColor 為終端機 ANSI 顏色代碼。
type ansiColor string

const (
	ColorBlue    ansiColor = "\033[34m"
	ColorYellow  ansiColor = "\033[33m"
	ColorGreen   ansiColor = "\033[32m"
	ColorRed     ansiColor = "\033[31m"
	ColorDefault ansiColor = ""
	ColorReset             = "\033[0m"
)

func fmtColor(color ansiColor, msg string) {
	if color == ColorDefault || os.Getenv("NO_COLOR") != "" {
		fmt.Println(msg)
		return
	}
	fmt.Printf("%s%s%s\n", color, msg, ColorReset)
}

func PrintDefault(msg string) { fmtColor(ColorDefault, msg) }
func PrintRed(msg string)     { fmtColor(ColorRed, msg) }
func PrintGreen(msg string)   { fmtColor(ColorGreen, msg) }
func PrintYellow(msg string)  { fmtColor(ColorYellow, msg) }
func PrintBlue(msg string)    { fmtColor(ColorBlue, msg) }
