package swagger

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// DocURL is where the router publishes the OpenAPI document.
const DocURL = "/openapi.yml"

// Handler serves Swagger UI for the document at docURL, keeping the bearer token across reloads.
func Handler(docURL string) http.Handler {
	if docURL == "" {
		docURL = DocURL
	}
	return httpSwagger.Handler(
		httpSwagger.URL(docURL),
		httpSwagger.DocExpansion("none"),
		httpSwagger.DeepLinking(true),
		httpSwagger.PersistAuthorization(true),
	)
}
