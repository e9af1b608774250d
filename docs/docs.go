// Package docs registers the OpenAPI description served under /swagger.
// Regenerate with `swag init -g cmd/api/main.go` after changing handler annotations.
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
    "paths": {
        "/v1/session": {
            "get": {"tags": ["session"], "summary": "Read the whole session state", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        },
        "/v1/session/theme": {
            "post": {"tags": ["session"], "summary": "Flip dark mode", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        },
        "/v1/session/search": {
            "put": {"tags": ["session"], "summary": "Set the search text", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        },
        "/v1/cart": {
            "get": {"tags": ["cart"], "summary": "Get the session cart", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["cart"], "summary": "Empty the cart", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        },
        "/v1/cart/items": {
            "post": {"tags": ["cart"], "summary": "Add a product to the cart", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "409": {"description": "Out of stock"}}}
        },
        "/v1/cart/items/{id}": {
            "patch": {"tags": ["cart"], "summary": "Set a line quantity", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["cart"], "summary": "Remove a line", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/v1/checkout": {
            "post": {"tags": ["orders"], "summary": "Place an order from the session cart", "parameters": [{"type": "string", "name": "Idempotency-Key", "in": "header"}], "responses": {"201": {"description": "Created"}, "200": {"description": "Replay of an earlier checkout"}, "422": {"description": "Empty cart"}}}
        },
        "/v1/orders": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["orders"], "summary": "List my orders", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}
        },
        "/v1/orders/{id}": {
            "get": {"tags": ["orders"], "summary": "Get an order", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "tracking", "in": "query"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/v1/orders/{id}/return": {
            "post": {"tags": ["orders"], "summary": "Request a return for a delivered order", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "422": {"description": "Return not allowed"}}}
        },
        "/v1/admin/orders": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "List every order", "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}
        },
        "/v1/admin/orders/{id}/status": {
            "patch": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Move an order along its lifecycle", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}, "422": {"description": "Invalid transition"}}}
        },
        "/v1/admin/stats": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Ledger summary", "responses": {"200": {"description": "OK"}}}
        },
        "/v1/auth/register": {
            "post": {"tags": ["auth"], "summary": "Register a new customer", "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}}
        },
        "/v1/auth/login": {
            "post": {"tags": ["auth"], "summary": "Login", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}
        },
        "/v1/auth/logout": {
            "post": {"tags": ["auth"], "summary": "Logout", "responses": {"204": {"description": "No Content"}}}
        },
        "/health": {
            "get": {"tags": ["health"], "summary": "Liveness probe", "responses": {"200": {"description": "OK"}}}
        },
        "/health/ready": {
            "get": {"tags": ["health"], "summary": "Readiness probe", "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "724 Parça Bul Storefront API",
	Description:      "Session cart store and order ledger of the 724 Parça Bul auto-parts shop.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
