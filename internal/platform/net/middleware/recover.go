package middleware

import (
	stdhttp "net/http"
	"runtime/debug"
	"strings"

	perr "invitehound/internal/platform/errors"
	"invitehound/internal/platform/logger"
	phttp "invitehound/internal/platform/net/http"
)

// Recover converts panics into a panic-coded 500 envelope and logs the
// stack with the request id
func Recover(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		defer func() {
			if v := recover(); v != nil {
				raw := debug.Stack()
				stack := strings.Join(strings.Split(string(raw), "\n"), "\n\t")

				logger.C(r.Context()).Error().
					Interface("panic", v).
					Msgf("panic recovered\n%s", stack)

				phttp.JSONError(w, perr.PanicErrf("%s %s: handler panicked", r.Method, r.URL.Path))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
