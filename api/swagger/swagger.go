package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Swim School API",
        "description": "Course catalog, schedule availability and enrollment booking",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Auth", "description": "Login, token refresh and account operations"},
        {"name": "Courses", "description": "Course catalog management"},
        {"name": "Availability", "description": "Slot ownership and remaining capacity"},
        {"name": "Enrollments", "description": "Booking submission and cancellation"},
        {"name": "Reports", "description": "Roster exports"},
        {"name": "Metrics", "description": "Runtime metrics"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Login with email and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Revoke the active refresh token",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/auth/change-password": {
            "post": {
                "tags": ["Auth"],
                "summary": "Change the caller's password",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChangePasswordRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Return the authenticated user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "List courses",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Courses"],
                "summary": "Create course",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CourseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{id}": {
            "get": {
                "tags": ["Courses"],
                "summary": "Get course",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Courses"],
                "summary": "Update course",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CourseRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Courses"],
                "summary": "Delete course",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/availability": {
            "get": {
                "tags": ["Availability"],
                "summary": "Availability report",
                "description": "Slot ownership, lesson-count locks and remaining spots per admin course schedule",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List enrollments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "course_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Enrollments"],
                "summary": "Submit enrollment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitEnrollmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "No spots or lesson count mismatch", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{id}": {
            "delete": {
                "tags": ["Enrollments"],
                "summary": "Cancel enrollment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/reports/enrollments": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download enrollment roster",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "course_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "produces": ["text/csv", "application/pdf"],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Runtime metrics snapshot",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
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
            },
            "required": ["email", "password"]
        },
        "RefreshTokenRequest": {
            "type": "object",
            "properties": {
                "refresh_token": {"type": "string"}
            },
            "required": ["refresh_token"]
        },
        "ChangePasswordRequest": {
            "type": "object",
            "properties": {
                "current_password": {"type": "string"},
                "new_password": {"type": "string"}
            },
            "required": ["current_password", "new_password"]
        },
        "CourseRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "type": {"type": "string", "enum": ["client", "professional", "admin_course"]},
                "description": {"type": "string"},
                "schedules": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/ScheduleRequest"}
                },
                "lesson_options": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/LessonOptionRequest"}
                },
                "group_pricing": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/GroupPricingRequest"}
                }
            },
            "required": ["name", "type"]
        },
        "ScheduleRequest": {
            "type": "object",
            "properties": {
                "start_time": {"type": "string", "example": "10:00"},
                "end_time": {"type": "string", "example": "11:00"}
            },
            "required": ["start_time", "end_time"]
        },
        "LessonOptionRequest": {
            "type": "object",
            "properties": {
                "lesson_count": {"type": "integer"}
            },
            "required": ["lesson_count"]
        },
        "GroupPricingRequest": {
            "type": "object",
            "properties": {
                "tier": {"type": "string", "enum": ["1-4", "5-6"]},
                "rate": {"type": "number"}
            },
            "required": ["tier", "rate"]
        },
        "SubmitEnrollmentRequest": {
            "type": "object",
            "properties": {
                "course_id": {"type": "string"},
                "schedule_id": {"type": "string"},
                "lesson_option_id": {"type": "string"},
                "guardian_contact": {"type": "string"},
                "student_count": {"type": "integer"}
            },
            "required": ["course_id"]
        },
        "EnrollmentDetail": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "course_id": {"type": "string"},
                "course_name": {"type": "string"},
                "course_type": {"type": "string"},
                "client_id": {"type": "string"},
                "client_name": {"type": "string"},
                "client_email": {"type": "string"},
                "schedule_start": {"type": "string"},
                "schedule_end": {"type": "string"},
                "student_count": {"type": "integer"},
                "selected_lesson_count": {"type": "integer"},
                "total_price": {"type": "number"},
                "status": {"type": "string"},
                "enrollment_date": {"type": "string"}
            }
        },
        "AvailabilityReport": {
            "type": "object",
            "properties": {
                "ownership": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/SlotOwnership"}
                },
                "conflicts": {"type": "array", "items": {"type": "object"}},
                "courses": {"type": "array", "items": {"type": "object"}}
            }
        },
        "SlotOwnership": {
            "type": "object",
            "properties": {
                "slot": {"$ref": "#/definitions/SlotKey"},
                "course_id": {"type": "string"}
            }
        },
        "SlotKey": {
            "type": "object",
            "properties": {
                "start": {"type": "string", "example": "10:00"},
                "end": {"type": "string", "example": "11:00"}
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
                "status": {"type": "integer"},
                "details": {"type": "object"}
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
