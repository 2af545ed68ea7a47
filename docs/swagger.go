// Package docs provides Swagger documentation for the API.
package docs

// @title WA Drops API
// @version 1.0
// @description Drop dispatch backend for the WhatsApp storefront
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
