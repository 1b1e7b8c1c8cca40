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

// Package errs 提供 sacprob 統一的錯誤型別。
//
// 分級語意：
//   - Fatal：實例狀態不可信（例如 hook panic），持有者應淘汰該 Problem。
//   - Warn：可預期、僅影響單次擬合的錯誤（樣本數不合法、重複索引、退化模型）。
//   - Log：僅供記錄。
package errs

import (
	"errors"
	"fmt"
)

// ErrLevel : Error 分級，使最上層理解問題嚴重程度
type ErrLevel uint8

const (
	None ErrLevel = iota
	Fatal
	Warn
	Log
)

var errLvMap = map[ErrLevel]string{
	None:  "",
	Fatal: "fatal",
	Warn:  "warn",
	Log:   "log",
}

// String 回傳分級名稱，未知分級回傳空字串。
func (l ErrLevel) String() string {
	return errLvMap[l]
}

func ErrLv(errlv ErrLevel) string {
	return errlv.String()
}

// E 是統一的錯誤型別。
// Message 為主訊息；Extra 為呼叫端追加的上下文（例如 k=3 pool=2）；
// Cause 串接下層錯誤，哨兵錯誤（sentinel）也是經由 Cause 串接，因此 errors.Is 可直接比對。
type E struct {
	Message string
	Extra   string
	Cause   error
	ErrLv   ErrLevel
}

// Error 實作 error 介面並回傳格式化後的錯誤訊息。
func (e *E) Error() string {
	base := fmt.Sprintf("errlv=%s %s", e.ErrLv, e.Message)
	if e.Extra != "" {
		base += " | extra: " + e.Extra
	}
	if e.Cause != nil {
		base += fmt.Sprintf(" (cause: %v)", e.Cause)
	}
	return base
}

// Unwrap 讓 errors.Is / errors.As 能夠向下展開。
func (e *E) Unwrap() error { return e.Cause }

func New(errLv ErrLevel, msg string) *E {
	return &E{Message: msg, ErrLv: errLv}
}

func NewFatal(msg string) *E {
	return &E{Message: msg, ErrLv: Fatal}
}

func NewWarn(msg string) *E {
	return &E{Message: msg, ErrLv: Warn}
}

func NewLog(msg string) *E {
	return &E{Message: msg, ErrLv: Log}
}

func Fatalf(format string, a ...any) *E {
	return NewFatal(fmt.Sprintf(format, a...))
}

func Warnf(format string, a ...any) *E {
	return NewWarn(fmt.Sprintf(format, a...))
}

func Logf(format string, a ...any) *E {
	return NewLog(fmt.Sprintf(format, a...))
}

// NewWithExtra 與 New 相同，但可附加額外上下文字串（不影響主訊息）。
func NewWithExtra(errLv ErrLevel, msg string, extra string) *E {
	e := New(errLv, msg)
	e.Extra = extra
	return e
}

// Wrap 以訊息包裝底層錯誤。
//
// ErrLevel 規則：
//   - cause 鏈上有 *E：沿用最近一層的 ErrLv。
//   - 否則（標準庫或三方錯誤）一律視為 Fatal。
func Wrap(cause error, msg string) *E {
	r := New(levelOf(cause), msg)
	r.Cause = cause
	return r
}

// WrapWithExtra 與 Wrap 相同，另外附加上下文。
//
// 常見用法是包裝哨兵錯誤：
//
//	errs.WrapWithExtra(ErrInvalidSampleSize, "draw index sample", "k=4 pool=3")
func WrapWithExtra(cause error, msg string, extra string) *E {
	r := NewWithExtra(levelOf(cause), msg, extra)
	r.Cause = cause
	return r
}

func AsErr(err error) (*E, bool) {
	var e *E
	if errors.As(err, &e) {
		return e, true
	}
	return e, false
}

// IsFatal 判斷錯誤是否代表「實例狀態不可信」。
func IsFatal(err error) bool {
	e, ok := AsErr(err)
	return ok && e.ErrLv == Fatal
}

func levelOf(cause error) ErrLevel {
	if e, ok := AsErr(cause); ok {
		return e.ErrLv
	}
	return Fatal
}
