package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/catherinevee/mdcagent/internal/models"
	"github.com/catherinevee/mdcagent/internal/validation"
)

// openAPI serves a compact schema document for agent clients.
func (s *Server) openAPI(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"openapi": "3.0.3",
		"info": gin.H{
			"title":       "Defender for Cloud Recommendations API",
			"version":     s.version,
			"description": "Normalized Microsoft Defender for Cloud security recommendations for automated clients.",
			"x-llm-optimized": gin.H{
				"field_naming":       "snake_case",
				"max_response_size":  "1MB",
				"max_response_bytes": validation.MaxResponseBytes,
				"error_format":       "structured",
				"retry_support":      "exponential_backoff",
				"designed_for":       "llm_agents",
			},
		},
		"paths": gin.H{
			"/v1/recommendations": gin.H{
				"get": gin.H{
					"operationId": "listRecommendations",
					"summary":     "List security recommendations for a subscription",
					"parameters": []gin.H{
						queryParam("subscription_id", "string", "Subscription to query. Defaults to the configured subscription.", nil),
						arrayParam("severity", models.ValidSeverities),
						queryParam("resource_type", "string", "Case-insensitive substring of the resource type.", nil),
						queryParam("resource_group", "string", "Resource group name.", nil),
						queryParam("assignment_status", "string", "Accepted but not applied.", models.ValidAssignmentStatuses),
						arrayParam("assessment_status", models.ValidAssessmentStatuses),
						intParam("limit", 1, models.MaxLimit, models.DefaultLimit),
						intParam("offset", 0, 0, 0),
					},
					"responses": errorResponses("RecommendationListResponse"),
				},
			},
			"/v1/recommendations/{id}": gin.H{
				"get": gin.H{
					"operationId": "getRecommendation",
					"summary":     "Get one security recommendation by assessment name",
					"parameters": []gin.H{
						{"name": "id", "in": "path", "required": true, "schema": gin.H{"type": "string"}},
						queryParam("subscription_id", "string", "Subscription to query. Defaults to the configured subscription.", nil),
					},
					"responses": errorResponses("Recommendation"),
				},
			},
			"/health": gin.H{
				"get": gin.H{"operationId": "health", "responses": gin.H{"200": gin.H{"description": "Service is healthy"}}},
			},
		},
		"components": gin.H{
			"schemas": gin.H{
				"ErrorResponse": gin.H{
					"type":     "object",
					"required": []string{"error_code", "message", "details"},
					"properties": gin.H{
						"error_code": gin.H{"type": "string"},
						"message":    gin.H{"type": "string"},
						"details":    gin.H{"type": "object"},
					},
				},
			},
		},
	})
}

func queryParam(name, typ, description string, enum []string) gin.H {
	schema := gin.H{"type": typ}
	if enum != nil {
		schema["enum"] = enum
	}
	return gin.H{"name": name, "in": "query", "description": description, "schema": schema}
}

func arrayParam(name string, enum []string) gin.H {
	return gin.H{
		"name":    name,
		"in":      "query",
		"explode": true,
		"schema":  gin.H{"type": "array", "items": gin.H{"type": "string", "enum": enum}},
	}
}

func intParam(name string, minimum, maximum, def int) gin.H {
	schema := gin.H{"type": "integer", "minimum": minimum, "default": def}
	if maximum > 0 {
		schema["maximum"] = maximum
	}
	return gin.H{"name": name, "in": "query", "schema": schema}
}

func errorResponses(success string) gin.H {
	errorRef := gin.H{"application/json": gin.H{"schema": gin.H{"$ref": "#/components/schemas/ErrorResponse"}}}
	return gin.H{
		"200": gin.H{"description": success},
		"400": gin.H{"description": "Invalid enumeration value", "content": errorRef},
		"401": gin.H{"description": "Authentication failed", "content": errorRef},
		"403": gin.H{"description": "Permission denied", "content": errorRef},
		"404": gin.H{"description": "Not found", "content": errorRef},
		"413": gin.H{"description": "Response too large", "content": errorRef},
		"422": gin.H{"description": "Invalid parameter range or format", "content": errorRef},
		"429": gin.H{"description": "Rate limit exceeded", "content": errorRef},
	}
}
