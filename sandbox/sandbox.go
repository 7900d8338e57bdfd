// Package sandbox runs hand-written extraction routines inside an
// isolated JavaScript interpreter. The evaluation context exposes only
// the DOM facade, a captured console, a small utils object and an items
// container — routines cannot reach the network, filesystem or process
// environment. Isolation here is an API-surface restriction for
// well-behaved scripts, not a hostile-code containment boundary.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/skylarkhq/gleaner/dom"
	"github.com/skylarkhq/gleaner/models"
)

// ScriptError reports a runtime error thrown by the routine.
type ScriptError struct {
	Msg string
}

func (e *ScriptError) Error() string { return "script: " + e.Msg }

// SyntaxError reports that the routine failed to parse.
type SyntaxError struct {
	Msg string
}

func (e *SyntaxError) Error() string { return "syntax: " + e.Msg }

// TimeoutError reports that the wall-clock bound was exceeded.
type TimeoutError struct {
	Bound time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout: routine exceeded %s bound", e.Bound)
}

// interruptReason is the sentinel passed to the interpreter interrupt so
// a routine catching the resulting value cannot fake a different cause.
const interruptReason = "execution time bound exceeded"

// Executor evaluates routines with a wall-clock bound. It holds no
// state between runs; each call builds a fresh interpreter.
type Executor struct{}

// NewExecutor creates an Executor.
func NewExecutor() *Executor {
	return &Executor{}
}

// Run evaluates the routine against the document and returns up to
// maxItems items. Result extraction priority:
//
//  1. an array explicitly returned by the routine
//  2. the items container, if the routine pushed into it
//  3. an "items" property on a returned object
//  4. empty
//
// A thrown error surfaces as *ScriptError, a parse failure as
// *SyntaxError, and exceeding bound as *TimeoutError. The bound is
// enforced by interrupting the interpreter from a timer; the
// observation always terminates at the bound even if the routine loops
// forever (best-effort halt — the interpreter stops at the next
// instruction boundary).
func (e *Executor) Run(ctx context.Context, routine string, doc *dom.Document, maxItems int, bound time.Duration) ([]models.Item, error) {
	vm := goja.New()
	logs := doc.Logs()

	bindConsole(vm, logs)
	bindDocument(vm, doc)
	bindUtils(vm)
	if err := vm.Set("items", vm.NewArray()); err != nil {
		return nil, fmt.Errorf("sandbox: bind items: %w", err)
	}

	// Wrapping in a function body allows top-level return statements,
	// the natural shape for extraction routines.
	prog, err := goja.Compile("routine.js", "(function() {\n"+routine+"\n})()", false)
	if err != nil {
		return nil, &SyntaxError{Msg: compileMessage(err)}
	}

	// Interrupt on either the wall-clock bound or caller cancellation.
	timer := time.AfterFunc(bound, func() { vm.Interrupt(interruptReason) })
	defer timer.Stop()
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(interruptReason)
		case <-watchDone:
		}
	}()

	value, err := vm.RunProgram(prog)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return nil, &TimeoutError{Bound: bound}
		}
		var exception *goja.Exception
		if errors.As(err, &exception) {
			return nil, &ScriptError{Msg: exception.Value().String()}
		}
		return nil, &ScriptError{Msg: err.Error()}
	}

	return extractItems(vm, value, maxItems), nil
}

// extractItems applies the result priority order.
func extractItems(vm *goja.Runtime, returned goja.Value, maxItems int) []models.Item {
	if items := coerceItems(exported(returned), maxItems); items != nil {
		return items
	}
	if items := coerceItems(exported(vm.Get("items")), maxItems); items != nil {
		return items
	}
	if obj, ok := exported(returned).(map[string]any); ok {
		if items := coerceItems(obj["items"], maxItems); items != nil {
			return items
		}
	}
	return []models.Item{}
}

func exported(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}

// coerceItems normalizes whatever the routine produced into an item
// list: maps pass through, anything else is wrapped under "value".
// Returns nil (not empty) when v is not a non-empty array, so callers
// can fall through the priority order.
func coerceItems(v any, maxItems int) []models.Item {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return nil
	}
	items := make([]models.Item, 0, min(len(arr), maxItems))
	for _, entry := range arr {
		if len(items) >= maxItems {
			break
		}
		switch e := entry.(type) {
		case map[string]any:
			items = append(items, models.Item(e))
		case nil:
			continue
		default:
			items = append(items, models.Item{"value": e})
		}
	}
	return items
}

// compileMessage trims goja's multi-line compiler output to its first line.
func compileMessage(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i > 0 {
		msg = msg[:i]
	}
	return msg
}
