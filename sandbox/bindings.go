package sandbox

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"github.com/skylarkhq/gleaner/dom"
)

// bindConsole routes console.log/warn/error into the captured log
// buffer instead of process output, preserving call order.
func bindConsole(vm *goja.Runtime, logs *dom.LogBuffer) {
	capture := func(level string) func(args ...goja.Value) {
		return func(args ...goja.Value) {
			parts := make([]string, 0, len(args))
			for _, a := range args {
				parts = append(parts, formatValue(a))
			}
			logs.Append(level + ": " + strings.Join(parts, " "))
		}
	}
	console := vm.NewObject()
	_ = console.Set("log", capture("log"))
	_ = console.Set("warn", capture("warn"))
	_ = console.Set("error", capture("error"))
	_ = vm.Set("console", console)
}

// bindDocument exposes the querySelector-shaped read surface plus page
// metadata. Elements are projected as plain objects captured at query
// time — there is no live node handle for the routine to mutate.
func bindDocument(vm *goja.Runtime, doc *dom.Document) {
	document := vm.NewObject()
	_ = document.Set("querySelector", func(selector string) any {
		el := doc.Query(selector)
		if el == nil {
			return nil
		}
		return projectElement(vm, el)
	})
	_ = document.Set("querySelectorAll", func(selector string) []any {
		matches := doc.QueryAll(selector)
		out := make([]any, 0, len(matches))
		for _, el := range matches {
			out = append(out, projectElement(vm, el))
		}
		return out
	})
	_ = document.Set("title", doc.Title())
	_ = document.Set("bodyText", doc.BodyText())
	_ = vm.Set("document", document)
}

// projectElement builds the read-only element projection.
func projectElement(vm *goja.Runtime, el *dom.Element) *goja.Object {
	obj := vm.NewObject()
	_ = obj.Set("textContent", el.Text())
	_ = obj.Set("innerHTML", el.HTML())
	_ = obj.Set("tagName", strings.ToUpper(el.Tag()))
	_ = obj.Set("className", el.Class())
	_ = obj.Set("id", el.ID())
	_ = obj.Set("getAttribute", func(name string) string {
		return el.Attr(name)
	})
	return obj
}

// bindUtils adds a few pure string/number helpers. Date, Math, JSON and
// the Array/String/Number primitives are already native to the
// interpreter; utils only covers what routines kept reimplementing.
func bindUtils(vm *goja.Runtime) {
	utils := vm.NewObject()
	_ = utils.Set("normalizeSpace", func(s string) string {
		return strings.Join(strings.Fields(s), " ")
	})
	_ = utils.Set("absoluteURL", func(base, href string) string {
		return joinURL(base, href)
	})
	_ = vm.Set("utils", utils)
}

func formatValue(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	exported := v.Export()
	if s, ok := exported.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", exported)
}
