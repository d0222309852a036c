package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Campus Timetable API",
        "description": "Constraint-based timetable generation for course sections",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and token lifecycle"},
        {"name": "Timetable", "description": "Constraint-based timetable generation"},
        {"name": "Schedules", "description": "Persisted timetable views and exports"}
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Tokens issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "Tokens rotated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Expired or revoked token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Logout current session",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Session revoked"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user info",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "User info", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetable/generate": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Generate a timetable",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "Generation result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "No active classrooms", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetable/result": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Latest generation result",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "semester", "in": "query", "type": "integer", "required": true},
                    {"name": "year", "in": "query", "type": "integer", "required": true}
                ],
                "responses": {
                    "200": {"description": "Cached result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No cached result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedules": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List schedules",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "semester", "in": "query", "type": "integer"},
                    {"name": "year", "in": "query", "type": "integer"},
                    {"name": "classroomId", "in": "query", "type": "string"},
                    {"name": "dayOfWeek", "in": "query", "type": "integer"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Paginated schedules", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedules/{id}": {
            "delete": {
                "tags": ["Schedules"],
                "summary": "Remove a schedule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Schedule removed"},
                    "404": {"description": "Schedule not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedules/export/csv": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Export timetable as CSV",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv"],
                "parameters": [
                    {"name": "semester", "in": "query", "type": "integer", "required": true},
                    {"name": "year", "in": "query", "type": "integer", "required": true}
                ],
                "responses": {
                    "200": {"description": "CSV file"},
                    "404": {"description": "No schedules for term", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedules/export/pdf": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Export timetable as PDF",
                "security": [{"BearerAuth": []}],
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "semester", "in": "query", "type": "integer", "required": true},
                    {"name": "year", "in": "query", "type": "integer", "required": true}
                ],
                "responses": {
                    "200": {"description": "PDF file"},
                    "404": {"description": "No schedules for term", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "RefreshTokenRequest": {
            "type": "object",
            "required": ["refresh_token"],
            "properties": {
                "refresh_token": {"type": "string"}
            }
        },
        "TimeSlotRequest": {
            "type": "object",
            "required": ["dayOfWeek", "startTime", "endTime"],
            "properties": {
                "dayOfWeek": {"type": "integer", "minimum": 1, "maximum": 5},
                "startTime": {"type": "string", "example": "08:30"},
                "endTime": {"type": "string", "example": "09:20"}
            }
        },
        "GenerateTimetableRequest": {
            "type": "object",
            "required": ["semester", "year"],
            "properties": {
                "semester": {"type": "integer", "minimum": 1, "maximum": 2},
                "year": {"type": "integer"},
                "sectionIds": {"type": "array", "items": {"type": "string"}},
                "timeSlots": {"type": "array", "items": {"$ref": "#/definitions/TimeSlotRequest"}},
                "maxIterations": {"type": "integer", "minimum": 0},
                "dryRun": {"type": "boolean"}
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
