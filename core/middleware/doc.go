// Package middleware groups the HTTP middleware for the Fiber application.
//
// # Components
//
//   - auth: API key validation protecting every route outside the public prefixes.
//   - rayid: a unique Request ID (RayID) for every incoming request, stored on the
//     context and echoed in the response headers for tracing.
//
// Both are registered globally by the start command, rayid first.
package middleware
