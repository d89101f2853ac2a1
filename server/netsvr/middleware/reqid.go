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

package middleware

import (
	"net/http"

	chimid "github.com/go-chi/chi/v5/middleware"
)

func RequestID(next http.Handler) http.Handler {
	return chimid.RequestID(next)
}

// GetReqId 回傳本次請求的 ID；未經 RequestID 時為空字串。
func GetReqId(r *http.Request) string {
	return chimid.GetReqID(r.Context())
}

func Recover(next http.Handler) http.Handler {
	return chimid.Recoverer(next)
}
