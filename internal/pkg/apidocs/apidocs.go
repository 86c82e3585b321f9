// Package apidocs validates and serves the OpenAPI document.
package apidocs

import (
	"context"
	"fmt"
	"os"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
)

const DocumentPath = "public/docs/v1/openapi.yml"

// Locate returns the first existing candidate base + DocumentPath, so the
// binary works from the repo root and from cmd/<name>.
func Locate(bases ...string) (string, error) {
	if len(bases) == 0 {
		bases = []string{"./", "../../", "../../../"}
	}
	for _, base := range bases {
		if _, err := os.Stat(base + DocumentPath); err == nil {
			return base + DocumentPath, nil
		}
	}
	return "", fmt.Errorf("openapi document %s not found", DocumentPath)
}

// Load parses and validates the document at path.
func Load(ctx context.Context, path string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load openapi: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi: %w", err)
	}
	return doc, nil
}

// Handler serves the swagger UI under /docs/api/v1.
func Handler(path string) fiber.Handler {
	return swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: path,
		Path:     "v1",
		Title:    "YOLO Trainer Portal API",
	})
}
