package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPIHandler serves the API document that was validated at startup.
type OpenAPIHandler struct {
	path string
	doc  *openapi3.T
}

// LoadOpenAPI loads and validates the document at path.
func LoadOpenAPI(ctx context.Context, path string) (*OpenAPIHandler, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load openapi document %s: %w", path, err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi document %s: %w", path, err)
	}
	return &OpenAPIHandler{path: path, doc: doc}, nil
}

func (h *OpenAPIHandler) Title() string {
	if h.doc.Info == nil {
		return ""
	}
	return h.doc.Info.Title
}

func (h *OpenAPIHandler) Version() string {
	if h.doc.Info == nil {
		return ""
	}
	return h.doc.Info.Version
}

// PathCount is the number of documented paths.
func (h *OpenAPIHandler) PathCount() int {
	if h.doc.Paths == nil {
		return 0
	}
	return h.doc.Paths.Len()
}

func (h *OpenAPIHandler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	http.ServeFile(w, r, h.path)
}
