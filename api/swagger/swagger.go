package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Konversi API",
        "description": "Credit conversion service for transfer students",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Curriculum", "description": "Study program and course catalog"},
        {"name": "Conversions", "description": "Conversion requests and approval workflow"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with email and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Return the authenticated user profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/programs": {
            "get": {
                "tags": ["Curriculum"],
                "summary": "List study programs",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/programs/{id}/courses": {
            "get": {
                "tags": ["Curriculum"],
                "summary": "List the active curriculum of a program",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/conversions": {
            "post": {
                "tags": ["Conversions"],
                "summary": "Open a new conversion request draft",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateConversionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/conversions/mine": {
            "get": {
                "tags": ["Conversions"],
                "summary": "List the acting student's own requests",
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/conversions/queue": {
            "get": {
                "tags": ["Conversions"],
                "summary": "List requests waiting on the acting role",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/conversions/archive": {
            "get": {
                "tags": ["Conversions"],
                "summary": "List finalized requests",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/conversions/{id}": {
            "get": {
                "tags": ["Conversions"],
                "summary": "Fetch one conversion request with its course lines",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/conversions/{id}/transcript": {
            "post": {
                "tags": ["Conversions"],
                "summary": "Upload a transcript document and extract its course rows",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Extraction failed"}
                }
            }
        },
        "/conversions/{id}/courses": {
            "put": {
                "tags": ["Conversions"],
                "summary": "Replace the course lines of a draft",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AttachCoursesRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/conversions/{id}/submit": {
            "post": {
                "tags": ["Conversions"],
                "summary": "Submit a draft to the kaprodi",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Illegal transition or concurrent modification"}
                }
            }
        },
        "/conversions/{id}/kaprodi-review": {
            "post": {
                "tags": ["Conversions"],
                "summary": "Record the kaprodi decision with course mappings",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/KaprodiReviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "No convertible courses"}
                }
            }
        },
        "/conversions/{id}/confirm": {
            "post": {
                "tags": ["Conversions"],
                "summary": "Student confirmation of the kaprodi mapping",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/conversions/{id}/dean-review": {
            "post": {
                "tags": ["Conversions"],
                "summary": "Record the dean decision with optional grade overrides",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DeanReviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/conversions/{id}/baa-review": {
            "post": {
                "tags": ["Conversions"],
                "summary": "Record the final BAA decision",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DecisionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/conversions/{id}/history": {
            "get": {
                "tags": ["Conversions"],
                "summary": "List the approval ledger of a request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
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
        "CreateConversionRequest": {
            "type": "object",
            "required": ["studentName", "originUniversity", "originProgram", "targetProgramId"],
            "properties": {
                "studentName": {"type": "string"},
                "originUniversity": {"type": "string"},
                "originProgram": {"type": "string"},
                "targetProgramId": {"type": "string"}
            }
        },
        "AttachCoursesRequest": {
            "type": "object",
            "required": ["courses"],
            "properties": {
                "courses": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/ExtractedCourse"}
                }
            }
        },
        "ExtractedCourse": {
            "type": "object",
            "required": ["courseName", "sks", "gradeLetter"],
            "properties": {
                "courseName": {"type": "string"},
                "sks": {"type": "integer"},
                "gradeLetter": {"type": "string"}
            }
        },
        "KaprodiReviewRequest": {
            "type": "object",
            "properties": {
                "approve": {"type": "boolean"},
                "mappings": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/CourseMapping"}
                },
                "notes": {"type": "string"}
            }
        },
        "CourseMapping": {
            "type": "object",
            "required": ["detailId", "targetCourseId"],
            "properties": {
                "detailId": {"type": "string"},
                "targetCourseId": {"type": "string"}
            }
        },
        "DeanReviewRequest": {
            "type": "object",
            "properties": {
                "approve": {"type": "boolean"},
                "gradeEdits": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/GradeEdit"}
                },
                "notes": {"type": "string"}
            }
        },
        "GradeEdit": {
            "type": "object",
            "required": ["detailId", "gradeLetter"],
            "properties": {
                "detailId": {"type": "string"},
                "gradeLetter": {"type": "string"}
            }
        },
        "DecisionRequest": {
            "type": "object",
            "properties": {
                "approve": {"type": "boolean"},
                "notes": {"type": "string"}
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
