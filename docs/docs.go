// Package docs is generated in the swaggo/swag format and registers the API
// description served under /swagger.
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
        "/categories": {
            "get": {
                "produces": ["application/json"],
                "tags": ["categories"],
                "summary": "List categories",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.Category"}}}
                }
            }
        },
        "/categories/{slug}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["categories"],
                "summary": "Show a category",
                "parameters": [
                    {"type": "string", "description": "category slug", "name": "slug", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Category"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/comments/{id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["comments"],
                "summary": "Edit a comment",
                "parameters": [
                    {"type": "string", "description": "comment id", "name": "id", "in": "path", "required": true},
                    {"description": "comment", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.commentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.CommentDetail"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["comments"],
                "summary": "Delete a comment",
                "parameters": [
                    {"type": "string", "description": "comment id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.messageResponse"}}
                }
            }
        },
        "/programs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["programs"],
                "summary": "List published programs",
                "parameters": [
                    {"type": "string", "description": "category slug", "name": "category", "in": "query"},
                    {"type": "string", "description": "substring of title or description", "name": "search", "in": "query"},
                    {"type": "string", "description": "created_at, title, download_count or view_count", "name": "sort", "in": "query"},
                    {"type": "string", "description": "asc or desc", "name": "direction", "in": "query"},
                    {"type": "integer", "description": "page number", "name": "page", "in": "query"},
                    {"type": "integer", "description": "page size (max 100)", "name": "per_page", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.ProgramPage"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["programs"],
                "summary": "Upload a program",
                "parameters": [
                    {"type": "string", "description": "title", "name": "title", "in": "formData", "required": true},
                    {"type": "string", "description": "description", "name": "description", "in": "formData", "required": true},
                    {"type": "string", "description": "language", "name": "programming_language", "in": "formData", "required": true},
                    {"type": "string", "description": "version", "name": "version", "in": "formData", "required": true},
                    {"type": "string", "description": "published, draft or archived", "name": "status", "in": "formData"},
                    {"type": "string", "description": "comma separated category ids", "name": "categories", "in": "formData"},
                    {"type": "file", "description": "program artifact (max 10 MiB)", "name": "file", "in": "formData", "required": true},
                    {"type": "file", "description": "thumbnail image (max 2 MiB)", "name": "thumbnail", "in": "formData"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.ProgramDetail"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/programs/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["programs"],
                "summary": "Show a program with its comments",
                "parameters": [
                    {"type": "string", "description": "program id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.ProgramDetail"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "description": "Accepts JSON for metadata-only changes or multipart/form-data to replace files.\nOmitted fields are left unchanged; an empty categories value clears the links.",
                "consumes": ["application/json", "multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["programs"],
                "summary": "Update a program",
                "parameters": [
                    {"type": "string", "description": "program id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.ProgramDetail"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["programs"],
                "summary": "Delete a program and its files",
                "parameters": [
                    {"type": "string", "description": "program id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.messageResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/programs/{id}/comments": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["comments"],
                "summary": "Comment on a program",
                "parameters": [
                    {"type": "string", "description": "program id", "name": "id", "in": "path", "required": true},
                    {"description": "comment", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.commentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.CommentDetail"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/programs/{id}/download": {
            "get": {
                "produces": ["application/octet-stream"],
                "tags": ["programs"],
                "summary": "Download the program artifact",
                "parameters": [
                    {"type": "string", "description": "program id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/programs/{id}/thumbnail": {
            "get": {
                "produces": ["image/png", "image/jpeg", "image/gif", "image/webp"],
                "tags": ["programs"],
                "summary": "Show the program thumbnail",
                "parameters": [
                    {"type": "string", "description": "program id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        }
    },
    "definitions": {
        "handler.commentRequest": {
            "type": "object",
            "properties": {
                "content": {"type": "string"}
            }
        },
        "handler.errorEnvelope": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}},
                "message": {"type": "string"}
            }
        },
        "handler.errorPayload": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/handler.errorEnvelope"},
                "request_id": {"type": "string"}
            }
        },
        "handler.messageResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"}
            }
        },
        "model.Category": {
            "type": "object",
            "properties": {
                "description": {"type": "string"},
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "slug": {"type": "string"}
            }
        },
        "model.CommentDetail": {
            "type": "object",
            "properties": {
                "content": {"type": "string"},
                "created_at": {"type": "string"},
                "id": {"type": "string"},
                "program_id": {"type": "string"},
                "updated_at": {"type": "string"},
                "user": {"$ref": "#/definitions/model.UserSummary"},
                "user_id": {"type": "string"}
            }
        },
        "model.ProgramDetail": {
            "type": "object",
            "properties": {
                "categories": {"type": "array", "items": {"$ref": "#/definitions/model.Category"}},
                "comments": {"type": "array", "items": {"$ref": "#/definitions/model.CommentDetail"}},
                "created_at": {"type": "string"},
                "description": {"type": "string"},
                "download_count": {"type": "integer"},
                "file_path": {"type": "string"},
                "id": {"type": "string"},
                "programming_language": {"type": "string"},
                "status": {"type": "string", "enum": ["published", "draft", "archived"]},
                "thumbnail_path": {"type": "string"},
                "title": {"type": "string"},
                "updated_at": {"type": "string"},
                "user": {"$ref": "#/definitions/model.UserSummary"},
                "user_id": {"type": "string"},
                "version": {"type": "string"},
                "view_count": {"type": "integer"}
            }
        },
        "model.UserSummary": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"}
            }
        },
        "service.ProgramPage": {
            "type": "object",
            "properties": {
                "current_page": {"type": "integer"},
                "data": {"type": "array", "items": {"$ref": "#/definitions/model.ProgramDetail"}},
                "last_page": {"type": "integer"},
                "per_page": {"type": "integer"},
                "total": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "ProgramHub API",
	Description:      "Upload, browse, download and discuss user-submitted programs.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
