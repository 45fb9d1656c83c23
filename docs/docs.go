// Package docs swag生成的接口文档注册
// 修改handler注释后执行 swag init -g cmd/api/main.go 重新生成
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
        "/orders": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["订单"],
                "summary": "创建订单",
                "responses": {"201": {"description": "下单成功"}}
            }
        },
        "/orders/my": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["订单"],
                "summary": "我的订单列表",
                "parameters": [
                    {"type": "integer", "default": 1, "description": "页码", "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "description": "每页数量(最大100)", "name": "size", "in": "query"},
                    {"type": "string", "description": "订单状态", "name": "status", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/orders/number/{number}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["订单"],
                "summary": "按订单号查询订单",
                "parameters": [{"type": "string", "description": "订单号", "name": "number", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/orders/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["订单"],
                "summary": "订单详情",
                "parameters": [{"type": "integer", "description": "订单ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["订单"],
                "summary": "修改待确认订单",
                "parameters": [{"type": "integer", "description": "订单ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/orders/{id}/cancel": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["订单"],
                "summary": "取消订单",
                "parameters": [
                    {"type": "integer", "description": "订单ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "取消原因", "name": "reason", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/orders/{id}/history": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["订单"],
                "summary": "订单状态变更记录",
                "parameters": [{"type": "integer", "description": "订单ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/orders": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["后台订单"],
                "summary": "全部订单列表",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/orders/statistics": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["后台订单"],
                "summary": "订单统计",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/orders/{id}/status": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["后台订单"],
                "summary": "推进订单状态",
                "parameters": [{"type": "integer", "description": "订单ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/orders/{id}/payment": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["后台订单"],
                "summary": "修改支付状态",
                "parameters": [{"type": "integer", "description": "订单ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
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
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "外卖订单服务 API",
	Description:      "订单创建、计价、状态流转与统计",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
