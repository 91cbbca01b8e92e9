package handlers

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestRouterUnregisteredGroupsAnswerNotImplemented(t *testing.T) {
	router := NewRouter()

	rr := doRequest(t, router, http.MethodPost, "/api/v1/checkout", `{}`)
	assert.Equal(t, http.StatusNotImplemented, rr.Code)
	assert.Equal(t, "not_implemented", decodeError(t, rr).Code)

	rr = doRequest(t, router, http.MethodGet, "/api/v1/wallet/transactions", "")
	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}

func TestRouterUnknownRoute(t *testing.T) {
	rr := doRequest(t, NewRouter(), http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "route_not_found", decodeError(t, rr).Code)
}

func TestRouterAppliesGroupMiddlewares(t *testing.T) {
	blocked := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
	}
	router := NewRouter(
		WithInternalMiddlewares(blocked),
		WithInternalRoutes(func(r chi.Router) {
			r.Post("/transactions/{txnID}:reconcile", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
		}),
	)

	rr := doRequest(t, router, http.MethodPost, "/api/v1/internal/transactions/txn_1:reconcile", `{}`)
	assert.Equal(t, http.StatusTeapot, rr.Code)

	rr = doRequest(t, router, http.MethodPost, "/api/v1/checkout", `{}`)
	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}
