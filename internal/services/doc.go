// Package services implements the business logic layer between the HTTP
// handlers and the store. Payload validation, input normalization and the
// translation of storage errors into API errors all happen here, so that
// handlers stay thin and the store stays ignorant of HTTP.
//
// # Service Pattern
//
// Services are defined as interfaces and constructed with their
// dependencies injected:
//
//	svc := services.NewUserService(store, logger)
//	user, err := svc.Create(ctx, req)
//
// Every method takes a context.Context and returns an explicit error. Errors
// reaching the caller are always *errors.APIError values carrying the HTTP
// status and machine-readable code for the response.
package services
