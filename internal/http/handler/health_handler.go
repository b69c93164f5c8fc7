// Package handler provides the HTTP surface of the simulation server.
package handler

import (
	"net/http"
)

// HealthCheckHandler returns HTTP 200 OK. Used by container health
// checks to verify the simulation server is accepting connections.
func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
