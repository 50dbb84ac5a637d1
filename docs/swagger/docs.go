// Package swagger holds the OpenAPI document served on /swagger.
// Regenerate it with `swag init -g cmd/start.go -o docs/swagger` after changing a route annotation.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/mirror/status": {
            "get": {
                "description": "Returns the configured bucket and source together with the reconciliation counters.",
                "produces": ["application/json"],
                "tags": ["mirror"],
                "summary": "Mirror Status",
                "responses": {
                    "200": {"description": "Status", "schema": {"$ref": "#/definitions/mirror.Status"}}
                }
            }
        },
        "/mirror/items": {
            "delete": {
                "description": "Requests every rendered object to be deleted. Applied asynchronously.",
                "produces": ["application/json"],
                "tags": ["mirror"],
                "summary": "Remove All Items",
                "parameters": [
                    {"type": "boolean", "description": "Wait until applied", "name": "wait", "in": "query"}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/mirror/items/{key}": {
            "put": {
                "description": "Requests the object for key to hold the given payload. Applied asynchronously.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["mirror"],
                "summary": "Put Item",
                "parameters": [
                    {"type": "string", "description": "Item key (e.g. 'banners/home.json')", "name": "key", "in": "path", "required": true},
                    {"type": "boolean", "description": "Wait until applied", "name": "wait", "in": "query"},
                    {"description": "Item", "name": "item", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.ItemRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "delete": {
                "description": "Requests the object for key to be deleted. Applied asynchronously.",
                "produces": ["application/json"],
                "tags": ["mirror"],
                "summary": "Remove Item",
                "parameters": [
                    {"type": "string", "description": "Item key", "name": "key", "in": "path", "required": true},
                    {"type": "boolean", "description": "Wait until applied", "name": "wait", "in": "query"}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/mirror/replace": {
            "post": {
                "description": "Makes the given items the complete desired collection. Unchanged items are not rewritten.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["mirror"],
                "summary": "Replace Items",
                "parameters": [
                    {"type": "boolean", "description": "Wait until applied", "name": "wait", "in": "query"},
                    {"description": "Items by key", "name": "items", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.ReplaceRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/mirror/refresh": {
            "post": {
                "description": "Loads the configured source (database or manifest) and makes it the desired collection.",
                "produces": ["application/json"],
                "tags": ["mirror"],
                "summary": "Refresh From Source",
                "parameters": [
                    {"type": "boolean", "description": "Wait until applied", "name": "wait", "in": "query"}
                ],
                "responses": {
                    "202": {"description": "Refresh Report", "schema": {"$ref": "#/definitions/models.RefreshReport"}},
                    "409": {"description": "No Source Configured", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        }
    },
    "definitions": {
        "asyncmap.Stats": {
            "type": "object",
            "properties": {
                "applied": {"type": "integer"},
                "pending_adds": {"type": "integer"},
                "pending_removes": {"type": "integer"},
                "queued": {"type": "integer"},
                "commands": {"type": "integer"},
                "draining": {"type": "boolean"},
                "processing": {"type": "boolean"},
                "destroyed": {"type": "boolean"}
            }
        },
        "mirror.Status": {
            "type": "object",
            "properties": {
                "bucket": {"type": "string"},
                "prefix": {"type": "string"},
                "source": {"type": "string"},
                "stats": {"$ref": "#/definitions/asyncmap.Stats"}
            }
        },
        "models.ItemRequest": {
            "type": "object",
            "properties": {
                "payload": {"type": "string"},
                "content_type": {"type": "string"}
            }
        },
        "models.ReplaceRequest": {
            "type": "object",
            "properties": {
                "items": {"type": "object", "additionalProperties": {"$ref": "#/definitions/models.ItemRequest"}}
            }
        },
        "models.RefreshReport": {
            "type": "object",
            "properties": {
                "source": {"type": "string"},
                "items": {"type": "integer"},
                "duration": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Overlay Sync API",
	Description:      "API for mirroring overlay items into an object storage bucket.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
