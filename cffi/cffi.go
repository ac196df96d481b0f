// Package cffi exposes the download engine through a stable C ABI (spec
// §6's foreign-function wrapper contract), for embedding in a
// foreign-language wrapper via cgo. No panic escapes this boundary: every
// exported function recovers and maps the failure to the stable code set
// below, and the text of the most recent error (one process-wide value,
// see lastErrorText) is retrievable via osmdl_last_error.
package main

/*
#include <stdlib.h>

typedef void (*osmdl_progress_cb)(long long done, long long total);

static inline void osmdl_call_progress_cb(osmdl_progress_cb cb, long long done, long long total) {
    if (cb != NULL) {
        cb(done, total);
    }
}
*/
import "C"

import (
	"context"
	"fmt"
	"sync"

	"github.com/cognusion/go-osmdl"
)

// The stable error code set spec §6 guarantees to the foreign caller.
const (
	codeSuccess          = 0
	codeInvalidParameter = 1
	codeNetwork          = 2
	codeIO               = 3
	codeUnknown          = 4
)

// lastError is a simplified stand-in for true OS-thread-local storage,
// which cgo exports cannot portably express without platform-specific TLS
// bindings; see DESIGN.md for why a single process-wide mutex-guarded
// string was chosen instead. The documented usage pattern is one
// synchronous, blocking FFI call at a time per process, which this
// satisfies.
var (
	lastErrorMu   sync.Mutex
	lastErrorText string
)

func setLastError(err error) {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	if err == nil {
		lastErrorText = ""
		return
	}
	lastErrorText = err.Error()
}

func codeFor(err error) C.int {
	if err == nil {
		return codeSuccess
	}
	xerr, ok := osmdl.AsError(err)
	if !ok {
		return codeUnknown
	}
	switch xerr.Code {
	case osmdl.CodeNetwork, osmdl.CodeHTTPStatus, osmdl.CodeRangeNotSupported, osmdl.CodeServerIgnoredRange:
		return codeNetwork
	case osmdl.CodeIO, osmdl.CodeOverwriteRefused, osmdl.CodeIntegrityViolation:
		return codeIO
	case osmdl.CodeSourceNotFound:
		return codeInvalidParameter
	default:
		return codeUnknown
	}
}

// overwritePolicyFromC maps the foreign overwrite_policy int (0=Prompt,
// 1=Force, 2=NeverOverwrite, matching osmdl.OverwritePolicy's own iota
// ordering) to its Go value.
func overwritePolicyFromC(v C.int) osmdl.OverwritePolicy {
	switch v {
	case 1:
		return osmdl.Force
	case 2:
		return osmdl.NeverOverwrite
	default:
		return osmdl.Prompt
	}
}

//export osmdl_get
func osmdl_get(source, dest *C.char, overwritePolicy C.int) (code C.int) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			setLastError(err)
			code = codeUnknown
		}
	}()

	if source == nil || dest == nil {
		err := fmt.Errorf("source and dest must not be null")
		setLastError(err)
		return codeInvalidParameter
	}

	opts := osmdl.DefaultOptions()
	opts.Overwrite = overwritePolicyFromC(overwritePolicy)

	err := osmdl.GetWithOptions(context.Background(), C.GoString(source), C.GoString(dest), opts)
	setLastError(err)
	return codeFor(err)
}

//export osmdl_get_with_progress
func osmdl_get_with_progress(source, dest *C.char, progressCb C.osmdl_progress_cb) (code C.int) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			setLastError(err)
			code = codeUnknown
		}
	}()

	if source == nil || dest == nil {
		err := fmt.Errorf("source and dest must not be null")
		setLastError(err)
		return codeInvalidParameter
	}

	progress := func(done, total int64) {
		// Invoked synchronously from the task that advances next_to_write,
		// per spec §9; the foreign callback runs to completion before this
		// function returns control past it (spec §6's synchronous guarantee).
		C.osmdl_call_progress_cb(progressCb, C.longlong(done), C.longlong(total))
	}

	err := osmdl.GetWithProgress(context.Background(), C.GoString(source), C.GoString(dest), progress)
	setLastError(err)
	return codeFor(err)
}

//export osmdl_last_error
func osmdl_last_error() *C.char {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	return C.CString(lastErrorText)
}

func main() {}
