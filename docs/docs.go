// Package docs registers the OpenAPI description served at /swagger/index.html.
// Regenerate with `swag init` after changing handler annotations.
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
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Inicio de sesión (el token queda en la sesión del servidor)",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/auth.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/apierr.ErrorDTO"}}
                }
            }
        },
        "/auth/logout": {"post": {"tags": ["auth"], "summary": "Cerrar sesión", "responses": {"200": {"description": "OK"}}}},
        "/auth/verify": {"get": {"tags": ["auth"], "summary": "Verificar el token", "responses": {"200": {"description": "OK"}}}},
        "/auth/refresh": {"post": {"tags": ["auth"], "summary": "Renovar el token", "responses": {"200": {"description": "OK"}}}},
        "/auth/activity": {"post": {"tags": ["auth"], "summary": "Registrar actividad", "responses": {"204": {"description": "No Content"}}}},
        "/auth/me": {"get": {"tags": ["auth"], "summary": "Usuario actual", "responses": {"200": {"description": "OK"}}}},
        "/dashboard": {"get": {"tags": ["dashboard"], "summary": "Datos de referencia", "responses": {"200": {"description": "OK"}, "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/apierr.ErrorDTO"}}}}},
        "/solicitantes": {
            "get": {
                "tags": ["solicitantes"],
                "summary": "Solicitantes (filtro y paginación)",
                "parameters": [
                    {"type": "string", "name": "q", "in": "query"},
                    {"type": "string", "name": "identificacion", "in": "query"},
                    {"type": "string", "name": "rol", "in": "query"},
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "page_size", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {"tags": ["solicitantes"], "summary": "Registrar solicitante", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/apierr.ErrorDTO"}}}}
        },
        "/solicitantes/importar": {
            "post": {
                "tags": ["importar"],
                "summary": "Importar solicitantes desde .xlsx",
                "consumes": ["multipart/form-data"],
                "parameters": [{"type": "file", "name": "file", "in": "formData", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "504": {"description": "Gateway Timeout"}}
            }
        },
        "/productos": {
            "get": {
                "tags": ["productos"],
                "summary": "Productos (filtro y paginación)",
                "parameters": [
                    {"type": "string", "name": "codigo", "in": "query"},
                    {"type": "integer", "name": "tipo", "in": "query"},
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "page_size", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {"tags": ["productos"], "summary": "Registrar producto", "responses": {"201": {"description": "Created"}}}
        },
        "/productos/importar": {
            "post": {
                "tags": ["importar"],
                "summary": "Importar productos desde .xlsx",
                "consumes": ["multipart/form-data"],
                "parameters": [{"type": "file", "name": "file", "in": "formData", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/prestamos": {
            "get": {
                "tags": ["prestamos"],
                "summary": "Préstamos (más recientes primero)",
                "parameters": [
                    {"type": "string", "name": "solicitante", "in": "query"},
                    {"type": "string", "name": "estado", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/prestamos/{id}/devolver": {"put": {"tags": ["prestamos"], "summary": "Devolver préstamo", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/prestamos/{id}/prolongar": {"put": {"tags": ["prestamos"], "summary": "Prolongar préstamo", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/nuevo-prestamo/confirmar": {"post": {"tags": ["prestamos"], "summary": "Registrar préstamo (solicitud, productos, préstamo)", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "502": {"description": "Bad Gateway"}}}}
    },
    "definitions": {
        "auth.LoginRequest": {
            "type": "object",
            "required": ["nombre", "password"],
            "properties": {"nombre": {"type": "string"}, "password": {"type": "string"}}
        },
        "apierr.ErrorDTO": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "object",
                    "properties": {"code": {"type": "string"}, "message": {"type": "string"}, "details": {}}
                },
                "redirect": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "LendIt admin gateway",
	Description:      "Gateway de administración de préstamos sobre la API REST de inventario.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
