package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/akinalp/tms/pkg"
)

// Recovery, handler zincirinde oluşan panic'i yakalar, loglar ve 500 döner.
// Süreç ayakta kalır.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.Printf("[recovery] panic on %s %s: %v\n%s", r.Method, r.URL.Path, rec, debug.Stack())
			pkg.ErrorWithMessage(w, http.StatusInternalServerError, "An unexpected error occurred.")
		}()

		next.ServeHTTP(w, r)
	})
}
