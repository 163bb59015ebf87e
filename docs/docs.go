// Package docs holds the OpenAPI document served at /swagger.json in development
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
        "/countries": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Countries"],
                "summary": "List Countries",
                "parameters": [
                    {"type": "string", "description": "Region (case-insensitive)", "name": "region", "in": "query"},
                    {"type": "string", "description": "Currency code (case-insensitive)", "name": "currency", "in": "query"},
                    {"type": "string", "description": "gdp_asc or gdp_desc", "name": "sort", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.CountryDTO"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Countries"],
                "summary": "Create Country",
                "parameters": [
                    {"description": "Country", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateCountryRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.CountryDTO"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/countries/export": {
            "get": {
                "produces": ["text/csv", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "tags": ["Countries"],
                "summary": "Export Countries",
                "parameters": [
                    {"type": "string", "description": "csv (default) or xlsx", "name": "format", "in": "query"},
                    {"type": "string", "description": "Region (case-insensitive)", "name": "region", "in": "query"},
                    {"type": "string", "description": "Currency code (case-insensitive)", "name": "currency", "in": "query"},
                    {"type": "string", "description": "gdp_asc or gdp_desc", "name": "sort", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Export file", "schema": {"type": "file"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/countries/image": {
            "get": {
                "produces": ["image/png"],
                "tags": ["Countries"],
                "summary": "Summary Image",
                "responses": {
                    "200": {"description": "PNG image", "schema": {"type": "file"}},
                    "404": {"description": "Summary image not found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/countries/refresh": {
            "post": {
                "description": "Fetch countries and exchange rates, recompute estimated GDP and regenerate the summary image",
                "produces": ["application/json"],
                "tags": ["Countries"],
                "summary": "Refresh Countries",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.RefreshCountriesResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "503": {"description": "External data source unavailable", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/countries/{name}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Countries"],
                "summary": "Get Country",
                "parameters": [
                    {"type": "string", "description": "Country name (case-insensitive)", "name": "name", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.CountryDTO"}},
                    "404": {"description": "Country not found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Countries"],
                "summary": "Update Country",
                "parameters": [
                    {"type": "string", "description": "Country name (case-insensitive)", "name": "name", "in": "path", "required": true},
                    {"description": "Fields to replace", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.UpdateCountryRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.CountryDTO"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "404": {"description": "Country not found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["Countries"],
                "summary": "Delete Country",
                "parameters": [
                    {"type": "string", "description": "Country name (case-insensitive)", "name": "name", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Country not found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Countries"],
                "summary": "Status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.StatusResponse"}}
                }
            }
        }
    },
    "definitions": {
        "dto.CountryDTO": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "capital": {"type": "string"},
                "region": {"type": "string"},
                "population": {"type": "integer"},
                "currency_code": {"type": "string"},
                "exchange_rate": {"type": "number"},
                "estimated_gdp": {"type": "number"},
                "flag_url": {"type": "string"},
                "last_refreshed_at": {"type": "string"}
            }
        },
        "dto.CreateCountryRequest": {
            "type": "object",
            "required": ["currency_code", "name", "population"],
            "properties": {
                "name": {"type": "string", "maxLength": 255},
                "capital": {"type": "string", "maxLength": 255},
                "region": {"type": "string", "maxLength": 255},
                "population": {"type": "integer", "minimum": 0},
                "currency_code": {"type": "string", "maxLength": 10},
                "exchange_rate": {"type": "number"},
                "estimated_gdp": {"type": "number", "minimum": 0},
                "flag_url": {"type": "string"}
            }
        },
        "dto.UpdateCountryRequest": {
            "type": "object",
            "required": ["population"],
            "properties": {
                "name": {"type": "string", "maxLength": 255, "minLength": 1},
                "capital": {"type": "string", "maxLength": 255},
                "region": {"type": "string", "maxLength": 255},
                "population": {"type": "integer", "minimum": 0},
                "currency_code": {"type": "string", "maxLength": 10},
                "exchange_rate": {"type": "number"},
                "estimated_gdp": {"type": "number", "minimum": 0},
                "flag_url": {"type": "string"}
            }
        },
        "dto.RefreshCountriesResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "total_countries": {"type": "integer"},
                "last_refreshed_at": {"type": "string"}
            }
        },
        "dto.StatusResponse": {
            "type": "object",
            "properties": {
                "total_countries": {"type": "integer"},
                "last_refreshed_at": {"type": "string"}
            }
        },
        "dto.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "details": {}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Country GDP Service API",
	Description:      "Mirrors country and exchange-rate data, estimates GDP and renders a summary image.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
