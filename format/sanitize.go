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

package format

import "strings"

const invalidNameChars = "!\"#$%&'()*+,-.:;<=>?@[\\]^`/ "

// ValidName 將字串轉成各方言皆可用的變數名稱：
// 逐位元組處理：控制字元、大於 'z' 的位元組與標點以 '_' 取代，第一個字元改以 'm' 取代；空字串回傳 "noname"。
func ValidName(original string) string {
	if original == "" {
		return "noname"
	}
	b := []byte(original)
	for i, c := range b {
		if c > 'z' || c < ' ' || strings.IndexByte(invalidNameChars, c) >= 0 {
			if i == 0 {
				b[i] = 'm'
			} else {
				b[i] = '_'
			}
		}
	}
	return string(b)
}
