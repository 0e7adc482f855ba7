// Package docs registra el documento OpenAPI que sirve /swagger/*.
// Se regenera con: swag init -g cmd/api/main.go -o docs
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
        "/me/shares": {
            "get": {"tags": ["shares"], "summary": "Listar mis grants", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "doctor_id", "in": "query"}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "unauthorized"}}},
            "post": {"tags": ["shares"], "summary": "Compartir con un médico", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"200": {"description": "grant existente"}, "201": {"description": "grant creado"}, "400": {"description": "validación"}, "401": {"description": "unauthorized"}, "403": {"description": "forbidden"}}}
        },
        "/me/shares/{grantID}": {
            "delete": {"tags": ["shares"], "summary": "Revocar un grant",
                "parameters": [{"type": "string", "name": "grantID", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "not found"}}}
        },
        "/me/shares/doctors/{doctorID}/categories/{category}": {
            "delete": {"tags": ["shares"], "summary": "Revocar toda una categoría para un médico",
                "parameters": [{"type": "string", "name": "doctorID", "in": "path", "required": true}, {"type": "string", "name": "category", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "unknown category"}}}
        },
        "/me/shares/doctors/{doctorID}/access": {
            "get": {"tags": ["shares"], "summary": "Consultar si un médico tiene acceso",
                "parameters": [{"type": "string", "name": "doctorID", "in": "path", "required": true}, {"type": "string", "name": "category", "in": "query", "required": true}, {"type": "string", "name": "resource_id", "in": "query"}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "unknown category"}}}
        },
        "/doctor/patients": {
            "get": {"tags": ["doctor"], "summary": "Pacientes que compartieron conmigo",
                "responses": {"200": {"description": "OK"}, "403": {"description": "forbidden"}}}
        },
        "/doctor/patients/{patientID}/summary": {
            "get": {"tags": ["doctor"], "summary": "Resumen de acceso por categoría",
                "parameters": [{"type": "string", "name": "patientID", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "forbidden"}}}
        },
        "/doctor/patients/{patientID}/records": {
            "get": {"tags": ["doctor"], "summary": "Registros visibles de varias categorías",
                "parameters": [{"type": "string", "name": "patientID", "in": "path", "required": true}, {"type": "string", "name": "categories", "in": "query"}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "unknown category"}}}
        },
        "/doctor/patients/{patientID}/records/{category}": {
            "get": {"tags": ["doctor"], "summary": "Registros visibles de una categoría",
                "parameters": [{"type": "string", "name": "patientID", "in": "path", "required": true}, {"enum": ["document", "prescription", "medication", "allergy", "vaccine", "antecedent", "report"], "type": "string", "name": "category", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "unknown category"}, "500": {"description": "internal error"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Medical Records Sharing API",
	Description:      "Grants paciente → médico por categoría y resolución de registros visibles.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
