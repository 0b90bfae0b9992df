package http

import (
	"bytes"
	"html/template"
	"log/slog"
	"os"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
)

// DefaultOpenAPIPath is the OpenAPI document location relative to the working directory.
const DefaultOpenAPIPath = "api/openapi.yaml"

var swaggerUIPage = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}{{with .Version}} {{.}}{{end}} - Swagger UI</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
  <style>html{box-sizing:border-box}*,*::before,*::after{box-sizing:inherit}body{margin:0;background:#fafafa}</style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: '/docs/openapi.yaml',
      dom_id: '#swagger-ui',
      deepLinking: true,
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: 'BaseLayout',
    });
  </script>
</body>
</html>`))

type docsPage struct {
	Title   string
	Version string
}

// SetupDocs registers Swagger UI at /docs and the OpenAPI document at
// /docs/openapi.yaml. The page title is read from the document's info block.
func SetupDocs(app *fiber.App, path string) {
	if path == "" {
		path = DefaultOpenAPIPath
	}

	page := docsPage{Title: "FireWatch API"}
	loader := &openapi3.Loader{IsExternalRefsAllowed: false}
	if doc, err := loader.LoadFromFile(path); err != nil {
		slog.Warn("openapi document not loaded", "path", path, "error", err)
	} else if doc.Info != nil && doc.Info.Title != "" {
		page = docsPage{Title: doc.Info.Title, Version: doc.Info.Version}
	}

	var buf bytes.Buffer
	if err := swaggerUIPage.Execute(&buf, page); err != nil {
		panic(err)
	}
	html := buf.Bytes()

	app.Get("/docs", func(c *fiber.Ctx) error {
		c.Type("html", "utf-8")
		return c.Send(html)
	})

	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return errNotFound(c, "openapi.yaml not found")
		}
		c.Set("Content-Type", "application/yaml")
		return c.Send(data)
	})
}
