package api

import (
	"log"
	"net/http"

	"github.com/strefethen/wam-hub-go/internal/apperrors"
)

// Handler is an http.Handler whose body reports failures as error values.
// Returned errors are rendered through WriteError, so route bodies carry no
// status-code plumbing.
type Handler func(w http.ResponseWriter, r *http.Request) error

func (handler Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := handler(w, r); err != nil {
		WriteError(w, r, err)
	}
}

// NewRecoverer builds middleware that turns handler panics into 500
// responses. The panic value is logged with the request id; the client only
// ever sees the generic internal-error body.
func NewRecoverer(logger *log.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					logger.Printf("Panic recovered request_id=%s %s %s: %v", RequestID(r), r.Method, r.URL.Path, recovered)
					WriteError(w, r, apperrors.NewInternalError("Internal server error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
