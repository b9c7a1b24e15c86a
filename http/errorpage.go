package http

import "net/http"

// writeNotFound answers unmatched routes and methods alike.
func writeNotFound(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusNotFound, "Not Found")
}
