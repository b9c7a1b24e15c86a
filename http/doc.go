// Package http serves the web-sync gateway over HTTP.
//
// # Routes
//
//	GET  /                 embedded browser UI
//	GET  /api/text         notepad content as text/plain, empty if never saved
//	POST /api/text         replace the notepad with the raw body, answers "Saved"
//	GET  /api/files        JSON array of {key, name, size, date, url}, newest first
//	POST /api/sign-upload  {filename, type} -> {url, key}
//	POST /api/delete       {key}, answers "Deleted"
//	GET  /healthz          liveness
//	GET  /readyz           signed HEAD against the bucket
//	GET  /metrics          Prometheus exposition, when metrics are enabled
//
// Any OPTIONS request is answered with 204 before routing. Every response,
// including errors and the plain-text 404 for unmatched routes, carries the
// CORS headers.
//
// # Errors
//
// Failures are JSON bodies of the form {"error": code, "message": text}:
//
//	400 invalid_request      malformed JSON, missing fields, bad filename or key
//	413 too_large            body over the configured limit
//	500 configuration_error  storage credentials or addressing unusable
//	502 upstream_error       storage answered with a failure or could not be reached
//	504 upstream_timeout     storage did not answer in time
//	500 internal_error       anything else
//
// # Usage
//
//	handler := http.NewHandler(&http.HandlerConfig{Metrics: metrics.New()}, gateway)
//	server := &nethttp.Server{Addr: ":8080", Handler: handler.Router()}
package http
