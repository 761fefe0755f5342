// Package docs holds the OpenAPI description served at /swagger.
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
        "/operations/{id}/availability": {
            "get": {
                "tags": ["capacity"],
                "summary": "Remaining capacity per slot for an operation",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "from", "in": "query"},
                    {"type": "string", "name": "to", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/bookings": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["bookings"],
                "summary": "Reserve capacity and open a payment checkout",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Capacity exceeded"},
                    "422": {"description": "Invalid state"}
                }
            }
        },
        "/bookings/{id}/cancel": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["bookings"],
                "summary": "Cancel a booking",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}
            }
        },
        "/bookings/{id}/refunds": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["refunds"],
                "summary": "Request a refund for a confirmed booking",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Not eligible"}}
            }
        },
        "/admin/refunds/{id}/approve": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["refunds"],
                "summary": "Approve a pending refund",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Concurrent update"}}
            }
        },
        "/refund-policies/calculate": {
            "get": {
                "tags": ["refund-policies"],
                "summary": "Preview the refund for an amount and lead time",
                "parameters": [
                    {"type": "number", "name": "amount", "in": "query", "required": true},
                    {"type": "integer", "name": "days", "in": "query", "required": true},
                    {"type": "string", "name": "trigger_type", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/payments/webhook": {
            "post": {
                "tags": ["payments"],
                "summary": "Signed payment outcome callback",
                "parameters": [{"type": "string", "name": "X-Tourly-Signature", "in": "header", "required": true}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Bad signature"}}
            }
        },
        "/payments/stripe/webhook": {
            "post": {
                "tags": ["payments"],
                "summary": "Stripe checkout session events",
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad signature"}}
            }
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
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Tourly Booking API",
	Description:      "Tour capacity, booking lifecycle and refund workflow.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
