package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Attendance Grid API",
        "description": "Weekly attendance grid with daily rollups, staged editing and batch submission",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and token validation"},
        {"name": "Attendance", "description": "Weekly grid composition and exports"},
        {"name": "Sessions", "description": "Server-side edit sessions and staged changes"},
        {"name": "Bulk", "description": "Per-date and global multi-student selections"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/attendance/grid": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Weekly attendance grid",
                "parameters": [
                    {"name": "class_id", "in": "query", "type": "string", "required": true},
                    {"name": "start_date", "in": "query", "type": "string", "required": true},
                    {"name": "end_date", "in": "query", "type": "string", "required": true},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/grid/export": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Export the weekly grid as CSV or PDF",
                "parameters": [
                    {"name": "class_id", "in": "query", "type": "string", "required": true},
                    {"name": "start_date", "in": "query", "type": "string", "required": true},
                    {"name": "end_date", "in": "query", "type": "string", "required": true},
                    {"name": "format", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/attendance/sessions": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Open an edit session over a composed grid",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/sessions/{id}/changes": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Stage an attendance change (current day only)",
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Date not editable or invalid status"}
                }
            },
            "get": {
                "tags": ["Sessions"],
                "summary": "List staged changes",
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Sessions"],
                "summary": "Clear all staged changes",
                "responses": {"204": {"description": "Cleared"}}
            }
        },
        "/attendance/sessions/{id}/submit": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Submit staged changes as one atomic batch",
                "responses": {
                    "200": {"description": "Submission summary"},
                    "409": {"description": "Staged dates no longer editable"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
