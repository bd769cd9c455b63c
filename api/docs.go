package api

import "github.com/swaggo/swag"

// @title nessql API
// @version v1.0.0
// @description Query, drill-down and severity override API over imported Nessus scan databases.

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:5000
// @BasePath /api
// @schemes http

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/version": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Version"],
                "summary": "Get application version",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/databases": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Databases"],
                "summary": "List scan databases",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/upload": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["Databases"],
                "summary": "Upload a Nessus scan",
                "parameters": [{"type": "file", "description": ".nessus scan file", "name": "file", "in": "formData", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.MessageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/query": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Query"],
                "summary": "Execute a query",
                "parameters": [{"description": "Database handle and query text", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.QueryRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.QueryResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/query_plugin": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Query"],
                "summary": "Drill into a plugin",
                "parameters": [{"description": "Database handle and plugin name", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.PluginQueryRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.QueryResult"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/update_severity": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Query"],
                "summary": "Override plugin severity",
                "parameters": [{"description": "Database handle, plugin id and new severity", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.SeverityUpdateRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.MessageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/statistics": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Query"],
                "summary": "Scan statistics",
                "parameters": [{"description": "Database handle", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.StatisticsRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Statistics"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.ErrorResponse": {"type": "object", "properties": {"error": {"type": "string"}}},
        "models.MessageResponse": {"type": "object", "properties": {"message": {"type": "string"}, "db": {"type": "string"}}},
        "models.QueryRequest": {"type": "object", "properties": {"db": {"type": "string"}, "query": {"type": "string"}}},
        "models.PluginQueryRequest": {"type": "object", "properties": {"db": {"type": "string"}, "plugin_name": {"type": "string"}}},
        "models.SeverityUpdateRequest": {"type": "object", "properties": {"db": {"type": "string"}, "plugin_id": {"type": "integer"}, "severity": {"type": "integer", "enum": [0, 1, 2, 3, 4, 5]}}},
        "models.StatisticsRequest": {"type": "object", "properties": {"db": {"type": "string"}}},
        "models.QueryResult": {"type": "object", "properties": {"columns": {"type": "array", "items": {"type": "string"}}, "rows": {"type": "array", "items": {"type": "array", "items": {}}}}},
        "models.Statistics": {"type": "object", "properties": {"scan_name": {"type": "string"}, "total_hosts": {"type": "integer"}, "severity_counts": {"type": "object", "additionalProperties": {"type": "integer"}}, "top_ports": {"type": "array", "items": {"type": "array", "items": {}}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "v1.0.0",
	Host:             "localhost:5000",
	BasePath:         "/api",
	Schemes:          []string{"http"},
	Title:            "nessql API",
	Description:      "Query, drill-down and severity override API over imported Nessus scan databases.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
