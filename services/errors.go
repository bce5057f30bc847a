package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed      = errors.New("validation failed")
	ErrPasswordTooShort      = errors.New("password is too short")
	ErrGymNameRequired       = errors.New("gym name is required")
	ErrBattleTypeRequired    = errors.New("battle type is required")
	ErrRegistrationNotOpen   = errors.New("dispute registration is not open")
	ErrDisputeNotBattling    = errors.New("dispute is not in the battling phase")
	ErrResultNotYours        = errors.New("match result does not involve you")
	ErrResultPairNotInList   = errors.New("both sides of the result must be eligible participants")
	ErrResultPairConfirmed   = errors.New("this pair already has a confirmed result")
	ErrSelfResultForbidden   = errors.New("cannot report a result against yourself")
	ErrConfirmOwnReport      = errors.New("the reporting side cannot confirm its own result")
	ErrGymHasNoLeader        = errors.New("gym has no leader to challenge")
	ErrChallengeOwnGym       = errors.New("cannot challenge your own gym")
	ErrJobInvalidAction      = errors.New("invalid scheduled job action")
	ErrJobFireTimeInPast     = errors.New("scheduled fire time must be in the future")
	ErrNotDisputeParticipant = errors.New("user is not a participant of this dispute")

	// Ошибки конфликтов
	ErrDisputeAlreadyActive           = errors.New("gym already has an active dispute")
	ErrAlreadyRegistered              = errors.New("user is already registered in this dispute")
	ErrGymNameConflict                = errors.New("gym name is already in use in this league")
	ErrDisputeInvalidStatusTransition = errors.New("invalid dispute status transition")

	// Ошибки аутентификации и авторизации
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")
	ErrAuthNicknameTaken      = errors.New("nickname is already taken")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")

	// Ошибки, специфичные для сущностей
	ErrUserNotFound    = errors.New("user not found")
	ErrGymNotFound     = errors.New("gym not found")
	ErrDisputeNotFound = errors.New("dispute not found")
	ErrResultNotFound  = errors.New("match result not found")
	ErrJobNotFound     = errors.New("scheduled job not found")
)
