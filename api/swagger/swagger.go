package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "BookWyrm Admin API",
        "description": "Registration policy, registration gate and instance metadata endpoints",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http",
        "https"
    ],
    "tags": [
        {"name": "Registration", "description": "Sign-up gate driven by the registration policy"},
        {"name": "Instance", "description": "Federation metadata"}
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
                "summary": "Readiness check of database, both Redis roles and media storage",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unavailable"}
                }
            }
        },
        "/api/v1/registration/evaluate": {
            "post": {
                "tags": ["Registration"],
                "summary": "Evaluate a registration attempt against the current policy",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegistrationAttemptRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Invalid attempt", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/registration/confirmation": {
            "post": {
                "tags": ["Registration"],
                "summary": "Queue an email confirmation for a new account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ConfirmationRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Confirmation not required", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Registration not open", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Queue unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/confirm-email/{token}": {
            "get": {
                "tags": ["Registration"],
                "summary": "Verify a mailed confirmation token",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/instance": {
            "get": {
                "tags": ["Instance"],
                "summary": "Mastodon-compatible instance description",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/InstanceInfo"}}
                }
            }
        },
        "/.well-known/nodeinfo": {
            "get": {
                "tags": ["Instance"],
                "summary": "Nodeinfo discovery document",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/nodeinfo/2.0": {
            "get": {
                "tags": ["Instance"],
                "summary": "Nodeinfo 2.0 document",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/NodeInfo"}}
                }
            }
        }
    },
    "definitions": {
        "RegistrationAttemptRequest": {
            "type": "object",
            "required": ["email"],
            "properties": {
                "email": {"type": "string"},
                "invite_code": {"type": "string"},
                "answer": {"type": "string"}
            }
        },
        "RegistrationDecision": {
            "type": "object",
            "properties": {
                "mode": {"type": "string", "enum": ["open", "invite", "invite_request", "closed"]},
                "allowed": {"type": "boolean"},
                "requires_confirmation": {"type": "boolean"},
                "invite_request_text": {"type": "string"},
                "invite_question": {"type": "string"},
                "closed_text": {"type": "string"}
            }
        },
        "ConfirmationRequest": {
            "type": "object",
            "required": ["email", "username"],
            "properties": {
                "email": {"type": "string"},
                "username": {"type": "string"},
                "invite_code": {"type": "string"}
            }
        },
        "ConfirmationQueued": {
            "type": "object",
            "properties": {
                "job_id": {"type": "string"}
            }
        },
        "NodeInfo": {
            "type": "object",
            "properties": {
                "version": {"type": "string"},
                "software": {
                    "type": "object",
                    "properties": {
                        "name": {"type": "string"},
                        "version": {"type": "string"}
                    }
                },
                "protocols": {"type": "array", "items": {"type": "string"}},
                "openRegistrations": {"type": "boolean"},
                "metadata": {
                    "type": "object",
                    "properties": {
                        "nodeName": {"type": "string"},
                        "registrationText": {"type": "string"}
                    }
                }
            }
        },
        "InstanceInfo": {
            "type": "object",
            "properties": {
                "uri": {"type": "string"},
                "title": {"type": "string"},
                "languages": {"type": "array", "items": {"type": "string"}},
                "registrations": {"type": "boolean"},
                "approval_required": {"type": "boolean"},
                "email_confirmation_required": {"type": "boolean"},
                "thumbnail": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
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
