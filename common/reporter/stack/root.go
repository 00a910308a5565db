// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package stack extracts call sites from the current goroutine stack. It
// is used to attach a module name to logs and metrics.
package stack

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
)

// Call is a program counter extracted from the stack.
type Call uintptr

// Trace is a list of calls, innermost first.
type Trace []Call

var pcPool = sync.Pool{
	New: func() any {
		pcs := make([]uintptr, 512)
		return &pcs
	},
}

// Callers returns the stack of the caller of this function.
func Callers() Trace {
	ptr := pcPool.Get().(*[]uintptr)
	defer pcPool.Put(ptr)
	pcs := *ptr
	n := runtime.Callers(2, pcs)
	trace := make(Trace, n)
	for i := range n {
		trace[i] = Call(pcs[i])
	}
	return trace
}

func (pc Call) function() *runtime.Func {
	return runtime.FuncForPC(uintptr(pc) - 1)
}

// FunctionName returns the fully-qualified function name of the call
// (for example "unifimon/inlet/flow.(*Component).flush").
func (pc Call) FunctionName() string {
	fn := pc.function()
	if fn == nil {
		return "(nofunc)"
	}
	return fn.Name()
}

// SourceFile returns the source file of the call, relative to the
// import path of its package, and optionally the line number.
func (pc Call) SourceFile(withLine bool) string {
	fn := pc.function()
	if fn == nil {
		return "(nosource)"
	}
	file, line := fn.FileLine(uintptr(pc) - 1)
	name := fn.Name()

	// Keep as many path elements from the file as there are in the
	// package path.
	for strings.Count(file, "/") > strings.Count(name, "/") {
		idx := strings.Index(file, "/")
		if idx == -1 {
			break
		}
		file = file[idx+1:]
	}
	dot := strings.Index(name, ".")
	if dot == -1 {
		return "(nosource)"
	}
	module, _, _ := strings.Cut(name[:dot], "/")
	if withLine {
		return fmt.Sprintf("%s/%s:%d", module, file, line)
	}
	return fmt.Sprintf("%s/%s", module, file)
}

var (
	ownPackage, _, _ = strings.Cut(Callers()[0].FunctionName(), ".") // unifimon/common/reporter/stack
	reporterPackage  = ownPackage[:strings.LastIndex(ownPackage, "/")]  // unifimon/common/reporter

	// ModuleName is the name of the current Go module.
	ModuleName = strings.TrimSuffix(reporterPackage[:strings.LastIndex(reporterPackage, "/")], "/common")
)
