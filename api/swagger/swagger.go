// Package swagger serves a hand-maintained OpenAPI document for the booking
// API until generated docs are wired into CI.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Slotbook API",
        "description": "Availability and booking engine for appointment scheduling",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Availability", "description": "Slot listings, weekly rules and overrides"},
        {"name": "Bookings", "description": "Booking, cancellation and rescheduling"},
        {"name": "Event Types", "description": "Bookable services"},
        {"name": "Settings", "description": "Provider booking policy"}
    ],
    "paths": {
        "/providers/{id}/slots": {
            "get": {
                "tags": ["Availability"],
                "summary": "List bookable slots for a provider and day",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string", "description": "YYYY-MM-DD"},
                    {"name": "eventTypeId", "in": "query", "type": "string"},
                    {"name": "duration", "in": "query", "type": "integer"},
                    {"name": "buffer", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Ordered list of free slots", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid date or duration"}
                }
            }
        },
        "/providers/{id}/bookings": {
            "post": {
                "tags": ["Bookings"],
                "summary": "Book an appointment if the window is still free",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BookAppointmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Appointment created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Monthly plan limit reached"},
                    "409": {"description": "Window no longer available"}
                }
            }
        },
        "/bookings/{token}/cancel": {
            "post": {
                "tags": ["Bookings"],
                "summary": "Cancel an appointment by its cancel token",
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "Appointment canceled"},
                    "404": {"description": "Unknown token"},
                    "409": {"description": "Appointment no longer scheduled"}
                }
            }
        },
        "/bookings/{token}/reschedule": {
            "post": {
                "tags": ["Bookings"],
                "summary": "Move an appointment to a new window",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RescheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Replacement appointment created"},
                    "409": {"description": "New window not available"}
                }
            }
        },
        "/availability/weekly": {
            "get": {
                "tags": ["Availability"],
                "summary": "Get the authenticated provider's weekly availability",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Weekly rules"}}
            },
            "put": {
                "tags": ["Availability"],
                "summary": "Replace the authenticated provider's weekly availability",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "New rule set"}}
            }
        },
        "/availability/overrides/{date}": {
            "get": {
                "tags": ["Availability"],
                "summary": "Get the per-date override, if any",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "date", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "Override for the date"},
                    "404": {"description": "Date has no override"}
                }
            },
            "put": {
                "tags": ["Availability"],
                "summary": "Create or replace a per-date override",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "date", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Override saved"}}
            },
            "delete": {
                "tags": ["Availability"],
                "summary": "Remove a per-date override",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "date", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Override removed"}}
            }
        },
        "/settings": {
            "get": {
                "tags": ["Settings"],
                "summary": "Get the authenticated provider's booking policy",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Settings with defaults applied"}}
            },
            "put": {
                "tags": ["Settings"],
                "summary": "Update the authenticated provider's booking policy",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Updated settings"}}
            }
        },
        "/event-types": {
            "get": {
                "tags": ["Event Types"],
                "summary": "List the authenticated provider's event types",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Event types"}}
            },
            "post": {
                "tags": ["Event Types"],
                "summary": "Create an event type",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Event type created"}}
            }
        },
        "/appointments": {
            "get": {
                "tags": ["Bookings"],
                "summary": "List the authenticated provider's appointments",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Appointments with pagination"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "definitions": {
        "BookAppointmentRequest": {
            "type": "object",
            "required": ["date", "start_time", "client_name", "client_email"],
            "properties": {
                "event_type_id": {"type": "string"},
                "date": {"type": "string"},
                "start_time": {"type": "string"},
                "duration_minutes": {"type": "integer"},
                "buffer_minutes": {"type": "integer"},
                "client_name": {"type": "string"},
                "client_email": {"type": "string"}
            }
        },
        "RescheduleRequest": {
            "type": "object",
            "required": ["date", "start_time"],
            "properties": {
                "date": {"type": "string"},
                "start_time": {"type": "string"}
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
                "pagination": {"type": "object"}
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
