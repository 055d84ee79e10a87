package app

import (
	"fmt"
	"runtime/debug"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"studio/internal/service"
)

const unexpectedMessage = "Something went wrong. Please try again."

// rescue turns a panic inside a binding into a logged error and a generic
// toast. Use as: defer a.rescue("AddText", &err).
func (a *App) rescue(op string, errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if a.ctx != nil {
		wailsRuntime.LogErrorf(a.ctx, "%s panicked: %v\n%s", op, r, debug.Stack())
	}
	a.Emit(a.ctx, service.EventToast, service.Toast{Level: "error", Message: unexpectedMessage})
	if errp != nil {
		*errp = fmt.Errorf("%s: unexpected error", op)
	}
}
