package middleware

import (
	"net/http"

	"github.com/garrettrowe/contracts-blockchain/application/deploygate"
	apperrors "github.com/garrettrowe/contracts-blockchain/pkg/errors"
)

// Readiness rejects traffic-affecting requests until the deployment gate
// confirms the chaincode. 503 with a Retry-After hint while probing; once
// the gate has failed the message says so, since only a restart recovers.
func Readiness(gate *deploygate.Gate, errHandler *apperrors.ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gate.Ready() {
				next.ServeHTTP(w, r)
				return
			}

			switch gate.State() {
			case deploygate.StateFailed:
				errHandler.Handle(w, r, gate.Err())
			default:
				errHandler.Handle(w, r, apperrors.NewNotReadyError("chaincode deployment is still being confirmed, retry shortly"))
			}
		})
	}
}
