package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ошибки валидации и бизнес-правил
	ErrValidationFailed      = errors.New("validation failed")
	ErrCompetitionIDRequired = errors.New("competition id is required")
	ErrInvalidMedalType      = errors.New("medal type must be gold, silver or bronze")
	ErrPasswordTooShort      = errors.New("password is too short")
	ErrInvalidRole           = errors.New("invalid role")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrOfficialEmailConflict = errors.New("email address is already in use")
	ErrNoEntries             = errors.New("no athletes to pair")
	ErrExportNotConfigured   = errors.New("medal export storage is not configured")

	// Ошибки ресурсов
	ErrPairingsNotFound = errors.New("pairings not found for competition")
	ErrMatchNotFound    = errors.New("match not found")
	ErrPairingsExist    = errors.New("pairings already generated for competition")

	// Ошибки конкурентного доступа
	ErrConcurrentUpdate = errors.New("match list changed concurrently, please retry")

	// Ошибки авторизации
	ErrRoleNotAllowed = errors.New("operation not allowed for the current role")
)
