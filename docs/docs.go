// Package docs registers the OpenAPI document served at /swagger.
// Regenerate with: swag init -g cmd/server/main.go -o docs --v3.1
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
    "openapi": "3.1.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}",
        "license": {"name": "Apache 2.0", "url": "http://www.apache.org/licenses/LICENSE-2.0.html"}
    },
    "servers": [{"url": "{{.BasePath}}"}],
    "components": {
        "securitySchemes": {
            "BearerAuth": {"type": "http", "scheme": "bearer", "bearerFormat": "JWT"}
        },
        "schemas": {
            "ErrorResponse": {
                "type": "object",
                "properties": {
                    "success": {"type": "boolean", "example": false},
                    "error": {
                        "type": "object",
                        "properties": {
                            "code": {"type": "string", "example": "ERR_VALIDATION"},
                            "message": {"type": "string"},
                            "request_id": {"type": "string"},
                            "details": {
                                "type": "array",
                                "items": {
                                    "type": "object",
                                    "properties": {"field": {"type": "string"}, "message": {"type": "string"}}
                                }
                            }
                        }
                    }
                }
            }
        },
        "responses": {
            "Error": {
                "description": "Error envelope",
                "content": {"application/json": {"schema": {"$ref": "#/components/schemas/ErrorResponse"}}}
            }
        }
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/clients/{clientRef}/fee-calculations/{year}": {
            "put": {"operationId": "createOrUpdateFeeCalculation", "tags": ["fee-calculations"], "summary": "Create or update the fee of a client for a tax year",
                "parameters": [
                    {"name": "clientRef", "in": "path", "required": true, "schema": {"type": "string"}},
                    {"name": "year", "in": "path", "required": true, "schema": {"type": "integer", "minimum": 2000, "maximum": 2100}}
                ],
                "responses": {"200": {"description": "Updated"}, "201": {"description": "Created"}, "400": {"$ref": "#/components/responses/Error"}, "404": {"$ref": "#/components/responses/Error"}, "422": {"$ref": "#/components/responses/Error"}}}
        },
        "/fee-calculations": {
            "get": {"operationId": "listFeeCalculations", "tags": ["fee-calculations"], "summary": "List fee calculations",
                "responses": {"200": {"description": "Page of fee calculations"}, "400": {"$ref": "#/components/responses/Error"}}}
        },
        "/fee-calculations/calculate": {
            "post": {"operationId": "calculateFee", "tags": ["fee-calculations"], "summary": "Preview a fee without saving it",
                "responses": {"200": {"description": "Computed amounts"}, "400": {"$ref": "#/components/responses/Error"}, "422": {"$ref": "#/components/responses/Error"}}}
        },
        "/fee-calculations/{id}": {
            "get": {"operationId": "getFeeCalculation", "tags": ["fee-calculations"], "summary": "Get a fee calculation",
                "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
                "responses": {"200": {"description": "Fee calculation"}, "404": {"$ref": "#/components/responses/Error"}}}
        },
        "/fee-calculations/{id}/mark-paid": {
            "post": {"operationId": "markFeePaid", "tags": ["fee-calculations"], "summary": "Mark a fee as paid without a recorded payment",
                "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
                "responses": {"200": {"description": "Fee calculation"}, "404": {"$ref": "#/components/responses/Error"}, "409": {"$ref": "#/components/responses/Error"}}}
        },
        "/fee-calculations/{id}/partial-payment": {
            "post": {"operationId": "markFeePartialPayment", "tags": ["fee-calculations"], "summary": "Record a partial payment amount",
                "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
                "responses": {"200": {"description": "Fee calculation"}, "400": {"$ref": "#/components/responses/Error"}, "422": {"$ref": "#/components/responses/Error"}}}
        },
        "/fee-calculations/{id}/payments": {
            "post": {"operationId": "recordPayment", "tags": ["payments"], "summary": "Record the actual payment of a fee",
                "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}},
                    {"name": "Idempotency-Key", "in": "header", "required": false, "schema": {"type": "string", "maxLength": 255}}],
                "responses": {"200": {"description": "Replay of an earlier request with the same key"}, "201": {"description": "Payment with deviation"}, "400": {"$ref": "#/components/responses/Error"}, "409": {"$ref": "#/components/responses/Error"}, "422": {"$ref": "#/components/responses/Error"}}}
        },
        "/fee-calculations/{id}/letter": {
            "get": {"operationId": "getLetterTracking", "tags": ["letters"], "summary": "Get letter tracking of a fee",
                "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
                "responses": {"200": {"description": "Letter tracking"}, "404": {"$ref": "#/components/responses/Error"}}}
        },
        "/fee-calculations/{id}/letter/sent": {
            "post": {"operationId": "recordLetterSent", "tags": ["letters"], "summary": "Record that the fee letter was sent",
                "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
                "responses": {"200": {"description": "Letter tracking"}, "404": {"$ref": "#/components/responses/Error"}}}
        },
        "/fee-calculations/{id}/letter/opened": {
            "post": {"operationId": "recordLetterOpened", "tags": ["letters"], "summary": "Record that the client opened the fee letter",
                "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
                "responses": {"200": {"description": "Letter tracking"}, "404": {"$ref": "#/components/responses/Error"}}}
        },
        "/fee-calculations/{id}/letter/method-selected": {
            "post": {"operationId": "recordLetterMethodSelected", "tags": ["letters"], "summary": "Record the payment method the client selected",
                "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
                "responses": {"200": {"description": "Letter tracking"}, "400": {"$ref": "#/components/responses/Error"}, "404": {"$ref": "#/components/responses/Error"}}}
        },
        "/payments/{id}": {
            "get": {"operationId": "getPayment", "tags": ["payments"], "summary": "Get a payment",
                "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
                "responses": {"200": {"description": "Payment"}, "404": {"$ref": "#/components/responses/Error"}}},
            "put": {"operationId": "updatePayment", "tags": ["payments"], "summary": "Update a payment",
                "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
                "responses": {"200": {"description": "Payment"}, "400": {"$ref": "#/components/responses/Error"}, "404": {"$ref": "#/components/responses/Error"}}},
            "delete": {"operationId": "deletePayment", "tags": ["payments"], "summary": "Delete a payment",
                "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
                "responses": {"204": {"description": "Deleted"}, "404": {"$ref": "#/components/responses/Error"}}}
        },
        "/collections/kpis": {
            "get": {"operationId": "getCollectionKPIs", "tags": ["collections"], "summary": "Get collection KPIs",
                "responses": {"200": {"description": "KPIs"}, "400": {"$ref": "#/components/responses/Error"}}}
        },
        "/collections/dashboard": {
            "get": {"operationId": "getCollectionDashboard", "tags": ["collections"], "summary": "List collection dashboard rows",
                "responses": {"200": {"description": "Page of rows"}, "400": {"$ref": "#/components/responses/Error"}}}
        },
        "/collections/dashboard/export": {
            "get": {"operationId": "exportCollectionDashboard", "tags": ["collections"], "summary": "Export dashboard rows as XLSX",
                "responses": {"200": {"description": "Workbook", "content": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {}}}, "400": {"$ref": "#/components/responses/Error"}}}
        },
        "/collections/groups": {
            "get": {"operationId": "getGroupRollup", "tags": ["collections"], "summary": "Roll up fee status by client group",
                "parameters": [{"name": "year", "in": "query", "required": true, "schema": {"type": "integer"}}],
                "responses": {"200": {"description": "Rollup rows"}, "400": {"$ref": "#/components/responses/Error"}}}
        },
        "/disputes": {
            "get": {"operationId": "listDisputes", "tags": ["disputes"], "summary": "List payment disputes",
                "responses": {"200": {"description": "Page of disputes"}, "400": {"$ref": "#/components/responses/Error"}}},
            "post": {"operationId": "openDispute", "tags": ["disputes"], "summary": "Open a payment dispute",
                "responses": {"201": {"description": "Dispute"}, "400": {"$ref": "#/components/responses/Error"}, "404": {"$ref": "#/components/responses/Error"}}}
        },
        "/disputes/{id}": {
            "get": {"operationId": "getDispute", "tags": ["disputes"], "summary": "Get a payment dispute",
                "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
                "responses": {"200": {"description": "Dispute"}, "404": {"$ref": "#/components/responses/Error"}}}
        },
        "/disputes/{id}/resolve": {
            "post": {"operationId": "resolveDispute", "tags": ["disputes"], "summary": "Resolve a payment dispute",
                "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
                "responses": {"200": {"description": "Dispute"}, "400": {"$ref": "#/components/responses/Error"}, "404": {"$ref": "#/components/responses/Error"}, "422": {"$ref": "#/components/responses/Error"}}}
        },
        "/audit/{entityType}/{id}": {
            "get": {"operationId": "getAuditHistory", "tags": ["audit"], "summary": "Get the audit history of an entity",
                "parameters": [
                    {"name": "entityType", "in": "path", "required": true, "schema": {"type": "string", "enum": ["FeeCalculation", "ActualPayment", "PaymentDispute"]}},
                    {"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}
                ],
                "responses": {"200": {"description": "Audit entries, newest first"}, "400": {"$ref": "#/components/responses/Error"}}}
        },
        "/system/info": {
            "get": {"operationId": "getSystemInfo", "tags": ["system"], "summary": "Service name, version and uptime", "security": [],
                "responses": {"200": {"description": "System info"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Fee Ledger API",
	Description:      "Annual client fees, actual payments, letter tracking and the collections dashboard",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
