package routes

// Routes package cung cấp tất cả routing functions cho Swiss address validator
//
// Cấu trúc:
// - api.go: API routes (/v1/addresses/*, /validate), health, metrics
// - web.go: Web routes (/, /docs)
// - middleware.go: request id, access log, recovery, CORS
//
// Sử dụng:
// routes.SetupAllRoutes(router, controller, registry, logger)
