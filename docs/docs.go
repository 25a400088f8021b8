// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with: swag init -g internal/app/app.go -o docs
package docs

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
    "securityDefinitions": {
        "UserID": {"type": "apiKey", "name": "X-User-ID", "in": "header"},
        "RoleID": {"type": "apiKey", "name": "X-Role-ID", "in": "header"}
    },
    "security": [{"UserID": [], "RoleID": []}],
    "paths": {
        "/opportunities": {
            "get": {
                "tags": ["Opportunities"],
                "summary": "List opportunities",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "stage", "in": "query"},
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "string", "name": "assigned_to", "in": "query"},
                    {"type": "string", "name": "partner_id", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Opportunities"],
                "summary": "Create opportunity",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}
            }
        },
        "/opportunities/{id}": {
            "get": {
                "tags": ["Opportunities"],
                "summary": "Get opportunity",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "put": {
                "tags": ["Opportunities"],
                "summary": "Update opportunity",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/opportunities/{id}/stage/validate": {
            "post": {
                "tags": ["Pipeline"],
                "summary": "Validate stage transition",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/opportunities/{id}/stage": {
            "patch": {
                "tags": ["Pipeline"],
                "summary": "Move opportunity to a stage",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}, "422": {"description": "Unprocessable Entity"}}
            }
        },
        "/opportunities/{id}/notes": {
            "post": {
                "tags": ["Opportunities"],
                "summary": "Add note",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/opportunities/{id}/hold": {
            "post": {
                "tags": ["Opportunities"],
                "summary": "Put on hold",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/opportunities/{id}/resume": {
            "post": {
                "tags": ["Opportunities"],
                "summary": "Resume",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/pipeline/stages": {
            "get": {"tags": ["Pipeline"], "summary": "Pipeline stages", "responses": {"200": {"description": "OK"}}}
        },
        "/forecast": {
            "get": {"tags": ["Forecast"], "summary": "Forecast dashboard", "responses": {"200": {"description": "OK"}}}
        },
        "/forecast/report.pdf": {
            "get": {"tags": ["Forecast"], "summary": "Forecast PDF export", "produces": ["application/pdf"], "responses": {"200": {"description": "OK"}}}
        },
        "/commission/resolve": {
            "post": {
                "tags": ["Commission"],
                "summary": "Resolve commission",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/board/ws": {
            "get": {"tags": ["Pipeline"], "summary": "Kanban board socket", "responses": {"101": {"description": "Switching Protocols"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Partner Pipeline API",
	Description:      "Opportunity pipeline state and forecast engine.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
