package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Term Roadmap API",
        "description": "Lays lessons over the instructional days of a school term.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Login and session info"},
        {"name": "Roadmap", "description": "Stateless roadmap computation"},
        {"name": "Plans", "description": "Stored term plans"},
        {"name": "Exports", "description": "Rendered roadmap files"},
        {"name": "Enrichment", "description": "Lesson enrichment operations"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Get current user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/roadmap/preview": {
            "post": {
                "tags": ["Roadmap"],
                "summary": "Build a roadmap from the request body",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoadmapPreviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/roadmap/stats": {
            "post": {
                "tags": ["Roadmap"],
                "summary": "Available days and weeks",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoadmapStatsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/roadmap/weeks": {
            "get": {
                "tags": ["Roadmap"],
                "summary": "Raw weeks of a range",
                "parameters": [
                    {"name": "start", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "end", "in": "query", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plans": {
            "get": {
                "tags": ["Plans"],
                "summary": "List term plans",
                "parameters": [
                    {"name": "subject", "in": "query", "type": "string"},
                    {"name": "gradeLevel", "in": "query", "type": "string"},
                    {"name": "mine", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Plans"],
                "summary": "Create a term plan",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreatePlanRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plans/{id}": {
            "get": {
                "tags": ["Plans"],
                "summary": "Get a term plan",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Plans"],
                "summary": "Update plan metadata and range",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdatePlanRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Plans"],
                "summary": "Delete a term plan",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/plans/{id}/roadmap": {
            "get": {
                "tags": ["Plans"],
                "summary": "Build the roadmap of a stored plan",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plans/{id}/lessons": {
            "put": {
                "tags": ["Plans"],
                "summary": "Replace the ordered lesson list",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReplaceLessonsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plans/{id}/lessons/details": {
            "get": {
                "tags": ["Plans"],
                "summary": "Enriched lesson descriptions",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plans/{id}/lessons/{lessonId}/days": {
            "get": {
                "tags": ["Plans"],
                "summary": "Dates assigned to one lesson",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "lessonId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plans/{id}/exclusions": {
            "put": {
                "tags": ["Plans"],
                "summary": "Replace day and week exclusions",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReplaceExclusionsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plans/{id}/exclusions/export": {
            "get": {
                "tags": ["Plans"],
                "summary": "Download the exclusions configuration",
                "produces": ["application/yaml", "application/json"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["yaml", "json"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "string"}}
                }
            }
        },
        "/plans/{id}/exclusions/import": {
            "post": {
                "tags": ["Plans"],
                "summary": "Replace exclusions from a configuration file",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/yaml", "application/json"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["yaml", "json"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plans/{id}/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Render a roadmap export",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrichment/status": {
            "get": {
                "tags": ["Enrichment"],
                "summary": "Lesson enrichment status",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrichment/cache": {
            "delete": {
                "tags": ["Enrichment"],
                "summary": "Drop cached lesson details",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a rendered export",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Link expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
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
        "DayExclusion": {
            "type": "object",
            "required": ["date"],
            "properties": {
                "date": {"type": "string", "format": "date"},
                "label": {"type": "string"},
                "category": {"type": "string", "enum": ["Exam", "Revision", "Event", "Holiday", "Meeting"]}
            }
        },
        "PreviewDayExclusion": {
            "type": "object",
            "required": ["date"],
            "properties": {
                "date": {"type": "string", "description": "YYYY-MM-DD; other values never match a day"},
                "label": {"type": "string"},
                "category": {"type": "string", "enum": ["Exam", "Revision", "Event", "Holiday", "Meeting"]}
            }
        },
        "WeekExclusion": {
            "type": "object",
            "required": ["weekNumber"],
            "properties": {
                "weekNumber": {"type": "integer", "minimum": 1},
                "label": {"type": "string"},
                "category": {"type": "string", "enum": ["Exam", "Revision", "Event", "Holiday", "Meeting"]},
                "excludeFromCount": {"type": "boolean"}
            }
        },
        "Lesson": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "standard": {"type": "string"},
                "pacing": {"type": "integer"}
            }
        },
        "RoadmapStatsRequest": {
            "type": "object",
            "required": ["startDate", "endDate"],
            "properties": {
                "startDate": {"type": "string", "format": "date"},
                "endDate": {"type": "string", "format": "date"},
                "dayExclusions": {"type": "array", "items": {"$ref": "#/definitions/PreviewDayExclusion"}},
                "weekExclusions": {"type": "array", "items": {"$ref": "#/definitions/WeekExclusion"}}
            }
        },
        "RoadmapPreviewRequest": {
            "type": "object",
            "required": ["startDate", "endDate"],
            "properties": {
                "startDate": {"type": "string", "format": "date"},
                "endDate": {"type": "string", "format": "date"},
                "dayExclusions": {"type": "array", "items": {"$ref": "#/definitions/PreviewDayExclusion"}},
                "weekExclusions": {"type": "array", "items": {"$ref": "#/definitions/WeekExclusion"}},
                "lessons": {"type": "array", "items": {"$ref": "#/definitions/Lesson"}}
            }
        },
        "CreatePlanRequest": {
            "type": "object",
            "required": ["name", "startDate", "endDate"],
            "properties": {
                "name": {"type": "string"},
                "subject": {"type": "string"},
                "gradeLevel": {"type": "string"},
                "startDate": {"type": "string", "format": "date"},
                "endDate": {"type": "string", "format": "date"},
                "dayExclusions": {"type": "array", "items": {"$ref": "#/definitions/DayExclusion"}},
                "weekExclusions": {"type": "array", "items": {"$ref": "#/definitions/WeekExclusion"}},
                "lessons": {"type": "array", "items": {"$ref": "#/definitions/Lesson"}}
            }
        },
        "UpdatePlanRequest": {
            "type": "object",
            "required": ["name", "startDate", "endDate"],
            "properties": {
                "name": {"type": "string"},
                "subject": {"type": "string"},
                "gradeLevel": {"type": "string"},
                "startDate": {"type": "string", "format": "date"},
                "endDate": {"type": "string", "format": "date"}
            }
        },
        "ReplaceLessonsRequest": {
            "type": "object",
            "properties": {
                "lessons": {"type": "array", "items": {"$ref": "#/definitions/Lesson"}}
            }
        },
        "ReplaceExclusionsRequest": {
            "type": "object",
            "properties": {
                "dayExclusions": {"type": "array", "items": {"$ref": "#/definitions/DayExclusion"}},
                "weekExclusions": {"type": "array", "items": {"$ref": "#/definitions/WeekExclusion"}}
            }
        },
        "ExportRequest": {
            "type": "object",
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "view": {"type": "string", "enum": ["roadmap", "distribution"]}
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
