package services

// ServiceContainer holds instances of all the application services.
// This is the main entry point for accessing service functionality and
// is used throughout the application, particularly in the handlers and middleware.
type ServiceContainer struct {
	Hasher   PasswordHasherSvc
	Tokens   TokenSvcFacade
	Lockout  LockoutSvc
	Sessions SessionSvcFacade
	User     UserSvcFacade
}
