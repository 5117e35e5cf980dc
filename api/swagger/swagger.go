package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "HackTrackr Reminder API",
        "description": "Ops endpoints of the hackathon deadline and quiz reminder scheduler",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Scheduler", "description": "Reminder sweep control"},
        {"name": "Reminders", "description": "Reminder previews"}
    ],
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
                    "200": {"description": "Ready"},
                    "503": {"description": "Store or lease backend unreachable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/scheduler/status": {
            "get": {
                "tags": ["Scheduler"],
                "summary": "Scheduler status",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/scheduler/sweep": {
            "post": {
                "tags": ["Scheduler"],
                "summary": "Run a reminder sweep now",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Sweep report", "schema": {"$ref": "#/definitions/TickReportEnvelope"}},
                    "409": {"description": "A sweep is already running", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Scheduler is shutting down", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/reminders/upcoming": {
            "get": {
                "tags": ["Reminders"],
                "summary": "Preview reminders due now",
                "produces": ["application/json", "text/csv", "application/pdf"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"type": "string", "enum": ["json", "csv", "pdf"], "description": "json (default), csv or pdf", "name": "format", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unknown format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Store unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "KindReport": {
            "type": "object",
            "properties": {
                "candidates": {"type": "integer"},
                "due": {"type": "integer"},
                "sent": {"type": "integer"},
                "failed": {"type": "integer"},
                "stale": {"type": "integer"},
                "storeError": {"type": "string"}
            }
        },
        "TickReport": {
            "type": "object",
            "properties": {
                "now": {"type": "string", "format": "date-time"},
                "startedAt": {"type": "string", "format": "date-time"},
                "finishedAt": {"type": "string", "format": "date-time"},
                "durationMs": {"type": "integer"},
                "skipped": {"type": "boolean"},
                "skipReason": {"type": "string"},
                "quizzes": {"$ref": "#/definitions/KindReport"},
                "deadlines": {"$ref": "#/definitions/KindReport"}
            }
        },
        "Notification": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "enum": ["quiz", "deadline"]},
                "parentId": {"type": "string"},
                "deadlineId": {"type": "string"},
                "recipient": {"type": "string"},
                "subject": {"type": "string"},
                "body": {"type": "string"},
                "dueAt": {"type": "string", "format": "date-time"},
                "daysUntil": {"type": "integer"}
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
                "meta": {"type": "object"}
            }
        },
        "TickReportEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/TickReport"},
                "error": {"$ref": "#/definitions/APIError"}
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
