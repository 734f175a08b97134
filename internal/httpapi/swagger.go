//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

// docTemplate is the OpenAPI document served at /swagger/doc.json.
// Regenerate with `swag init -g cmd/spacelens/docs.go` when handlers change.
const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "basePath": "{{.BasePath}}",
    "schemes": {{ marshal .Schemes }},
    "paths": {
        "/assets": {
            "get": {"tags": ["assets"], "summary": "List photos", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}},
            "post": {"tags": ["assets"], "summary": "Scan a file already in the photo directory into the library", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "404": {"description": "File not found"}}}
        },
        "/assets/{id}": {"delete": {"tags": ["assets"], "summary": "Delete a photo", "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}}},
        "/assets/{id}/layout": {"put": {"tags": ["session"], "summary": "Record the measured on-screen size of the rendered image", "responses": {"204": {"description": "No Content"}}}},
        "/assets/{id}/touch": {"post": {"tags": ["session"], "summary": "Add a point from a display-local touch", "responses": {"202": {"description": "Accepted"}, "409": {"description": "Layout unknown or generation in progress"}}}},
        "/assets/{id}/points": {"post": {"tags": ["session"], "summary": "Add a point in source pixel space", "responses": {"202": {"description": "Accepted"}, "409": {"description": "Generation in progress"}}}},
        "/assets/{id}/generate": {"post": {"tags": ["session"], "summary": "Request 3D generation", "responses": {"202": {"description": "Accepted"}, "409": {"description": "Not ready"}}}},
        "/assets/{id}/reset": {"post": {"tags": ["session"], "summary": "Reset the session", "responses": {"204": {"description": "No Content"}}}},
        "/assets/{id}/session": {"get": {"tags": ["session"], "summary": "Current session state", "responses": {"200": {"description": "OK"}}}},
        "/models": {"get": {"tags": ["models"], "summary": "Previously generated models", "responses": {"200": {"description": "OK"}, "502": {"description": "Remote list failed"}}}},
        "/models/refresh": {"post": {"tags": ["models"], "summary": "Refetch the remote model list", "responses": {"200": {"description": "OK"}, "502": {"description": "Remote list failed"}}}},
        "/gallery/status": {"get": {"tags": ["gallery"], "summary": "Generation status per asset", "responses": {"200": {"description": "OK"}}}},
        "/gallery/status/{id}": {"get": {"tags": ["gallery"], "summary": "Generation status of one asset", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}}
    }
}`

// SwaggerInfo holds the exported document metadata.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "spacelens API",
	Description:      "Point-prompted segmentation sessions handing off to a remote 3D generation service.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// MountSwagger serves the Swagger UI under /swagger/.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}
