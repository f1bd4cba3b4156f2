// Package swagger serves the OpenAPI document and a Swagger UI for it.
package swagger

import (
	"context"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// DocPath is where the embedded OpenAPI document is served.
const DocPath = "/openapi.yaml"

// Register attaches the OpenAPI document and Swagger UI routes to mux.
//
//	GET /openapi.yaml -> embedded OpenAPI spec
//	GET /swagger/     -> Swagger UI loading /openapi.yaml
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("GET "+DocPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		_, _ = w.Write(OpenAPI)
	})

	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL(DocPath),
	))
}
