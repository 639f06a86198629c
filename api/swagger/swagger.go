package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "CEMEP Digital API",
        "description": "School administration core: catalog, timetabling and schedule snapshots",
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
        {"name": "Auth", "description": "Login, token refresh and password flows"},
        {"name": "Users", "description": "Account administration"},
        {"name": "Sections", "description": "Class/cohort catalog"},
        {"name": "Staff", "description": "Staff roster"},
        {"name": "Subjects", "description": "Subject catalog"},
        {"name": "Assignments", "description": "Subject and teacher assignments per section"},
        {"name": "Timetables", "description": "Validity windows and weekly grid slots"},
        {"name": "Schedules", "description": "Denormalized schedule snapshots and exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and issue token pair",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid credentials"}}
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange a refresh token",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/sections": {
            "get": {
                "tags": ["Sections"],
                "summary": "List sections",
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            },
            "post": {
                "tags": ["Sections"],
                "summary": "Create section",
                "responses": {"201": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/sections/{id}/schedule": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Current weekly schedule of a section",
                "responses": {"200": {"$ref": "#/responses/Envelope"}, "404": {"description": "Unknown section"}}
            }
        },
        "/sections/{id}/schedule/export": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Export a section schedule as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/staff/{id}/schedule": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Current weekly schedule of a staff member",
                "responses": {"200": {"$ref": "#/responses/Envelope"}, "403": {"description": "Schedule belongs to another staff member"}}
            }
        },
        "/subject-sections": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Assign a subject to a section",
                "responses": {"201": {"$ref": "#/responses/Envelope"}, "409": {"description": "Already assigned"}}
            }
        },
        "/teacher-sections": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Assign a teacher to a subject-section",
                "responses": {"201": {"$ref": "#/responses/Envelope"}, "409": {"description": "Already assigned"}}
            }
        },
        "/windows": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Open a validity window",
                "responses": {"201": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/slots": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Place a subject on the weekly grid",
                "responses": {"201": {"$ref": "#/responses/Envelope"}, "409": {"description": "Cell occupied"}}
            }
        }
    },
    "responses": {
        "Envelope": {
            "description": "Standard response envelope",
            "schema": {"$ref": "#/definitions/ResponseEnvelope"}
        }
    },
    "definitions": {
        "ScheduleEntry": {
            "type": "object",
            "properties": {
                "weekday": {"type": "integer", "description": "1 = Monday .. 7 = Sunday"},
                "period": {"type": "integer"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "subject_id": {"type": "string"},
                "subject_name": {"type": "string"},
                "counterpart_id": {"type": "string"},
                "counterpart_name": {"type": "string"}
            }
        },
        "CurrentSchedule": {
            "type": "object",
            "properties": {
                "owner": {"type": "object"},
                "entries": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/ScheduleEntry"}
                },
                "rebuilt_at": {"type": "string", "format": "date-time"}
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
