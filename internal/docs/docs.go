// Package docs registers the OpenAPI description served under /swagger/.
// Regenerate with: swag init -g cmd/gallery/main.go -o internal/docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/sessions": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Create a session and upload its first photos",
                "parameters": [
                    {"type": "string", "name": "name", "in": "formData", "required": true},
                    {"type": "string", "name": "mode", "in": "formData"},
                    {"type": "string", "name": "welcome_message", "in": "formData"},
                    {"type": "string", "name": "theme_primary", "in": "formData"},
                    {"type": "string", "name": "theme_secondary", "in": "formData"},
                    {"type": "file", "name": "files", "in": "formData", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.APIEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/domain.APIEnvelope"}},
                    "413": {"description": "Too many photos", "schema": {"$ref": "#/definitions/domain.APIEnvelope"}}
                }
            }
        },
        "/api/sessions/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Get session details",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.APIEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/domain.APIEnvelope"}},
                    "410": {"description": "Expired", "schema": {"$ref": "#/definitions/domain.APIEnvelope"}}
                }
            },
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Update session settings",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.APIEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/domain.APIEnvelope"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Delete a session with all its photos",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.APIEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/domain.APIEnvelope"}}
                }
            }
        },
        "/api/sessions/{id}/photos": {
            "get": {
                "produces": ["application/json"],
                "tags": ["photos"],
                "summary": "List photos of a session",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "per_page", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.APIEnvelope"}}
                }
            },
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Upload more photos into a session",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "file", "name": "files", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.APIEnvelope"}}
                }
            }
        },
        "/api/sessions/{id}/photos/{photo}/thumbnail": {
            "get": {
                "produces": ["image/jpeg"],
                "tags": ["photos"],
                "summary": "Get the JPEG thumbnail of a photo",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "photo", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "file"}}}
            }
        },
        "/api/sessions/{id}/photos/{photo}/original": {
            "get": {
                "produces": ["application/octet-stream"],
                "tags": ["photos"],
                "summary": "Get the original upload of a photo",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "photo", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "file"}}}
            }
        },
        "/api/sessions/{id}/download": {
            "get": {
                "produces": ["application/zip"],
                "tags": ["photos"],
                "summary": "Download every photo as a zip archive",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"type": "file"}}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/zip"],
                "tags": ["photos"],
                "summary": "Download selected photos as a zip archive",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "schema": {"type": "object"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "file"}}}
            }
        },
        "/v1/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.APIEnvelope"}}}
            }
        },
        "/v1/readyz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.APIEnvelope"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/domain.APIEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "domain.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "text": {"type": "string"}
            }
        },
        "domain.APIEnvelope": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {"$ref": "#/definitions/domain.APIError"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Event Gallery API",
	Description:      "Time-bounded photo galleries: bulk upload, browse, download.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
