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
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/zintix-labs/neutrace/checkpoint"
)

type signalInfo struct {
	req  checkpoint.Request
	name string
	desc string
}

type poster interface {
	Post(checkpoint.Post) error
}

// postFor 把訊號轉成中斷請求。
func postFor(sig os.Signal) (checkpoint.Post, bool) {
	info, ok := signalTable[sig]
	if !ok {
		return checkpoint.Post{}, false
	}
	num := -1
	if s, ok := sig.(syscall.Signal); ok {
		num = int(s)
	}
	return checkpoint.Post{
		Req:    info.req,
		Origin: fmt.Sprintf("Signal %d %s (%s)", num, info.name, info.desc),
	}, true
}

// watchSignals 將訊號轉送給 p；回傳的函式停止轉送。
func watchSignals(p poster, log *slog.Logger) (stop func()) {
	sigs := make([]os.Signal, 0, len(signalTable))
	for s := range signalTable {
		sigs = append(sigs, s)
	}
	ch := make(chan os.Signal, 8)
	signal.Notify(ch, sigs...)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-ch:
				post, ok := postFor(sig)
				if !ok {
					continue
				}
				if err := p.Post(post); err != nil {
					log.Warn("signal not delivered", "signal", sig.String(), "err", err)
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}
