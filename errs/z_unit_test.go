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

package errs

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapKeepsSentinelAndLevel(t *testing.T) {
	sentinel := NewWarn("invalid sample size")
	err := WrapWithExtra(sentinel, "draw index sample", "k=4 pool=3")

	if !errors.Is(err, sentinel) {
		t.Fatalf("expected errors.Is to find sentinel")
	}
	if err.ErrLv != Warn {
		t.Fatalf("expected warn level, got %s", err.ErrLv)
	}
	if IsFatal(err) {
		t.Fatalf("warn error reported as fatal")
	}
	msg := err.Error()
	if !strings.Contains(msg, "k=4 pool=3") || !strings.Contains(msg, "invalid sample size") {
		t.Fatalf("unexpected message: %s", msg)
	}
}

func TestWrapForeignErrorIsFatal(t *testing.T) {
	err := Wrap(errors.New("boom"), "hook failed")
	if !IsFatal(err) {
		t.Fatalf("foreign cause must be fatal")
	}
	if _, ok := AsErr(errors.New("plain")); ok {
		t.Fatalf("plain error must not be *E")
	}
}

func TestLevelString(t *testing.T) {
	if Fatal.String() != "fatal" || Warn.String() != "warn" || Log.String() != "log" {
		t.Fatalf("unexpected level names")
	}
	if ErrLevel(99).String() != "" {
		t.Fatalf("unknown level must render empty")
	}
}
