package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind классифицирует ошибку бизнес-слоя.
type Kind string

const (
	// KindConfiguration — не хватает обязательной инфраструктуры (тип перемещения, корень склада).
	KindConfiguration Kind = "configuration_error"
	// KindValidation — пользователь может исправить ввод.
	KindValidation Kind = "validation_error"
	// KindStockReservation — резерв не удался, операцию можно повторить.
	KindStockReservation Kind = "stock_reservation_error"
	// KindPolicy — попытка изменить списанный актив.
	KindPolicy Kind = "policy_error"
	KindNotFound Kind = "not_found"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Configuration(code, format string, args ...any) *Error {
	return newf(KindConfiguration, code, format, args...)
}

func Validation(code, format string, args ...any) *Error {
	return newf(KindValidation, code, format, args...)
}

func StockReservation(code, format string, args ...any) *Error {
	return newf(KindStockReservation, code, format, args...)
}

func Policy(code, format string, args ...any) *Error {
	return newf(KindPolicy, code, format, args...)
}

func NotFound(code, format string, args ...any) *Error {
	return newf(KindNotFound, code, format, args...)
}

// Wrap прикрепляет причину к ошибке.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// KindOf возвращает вид ошибки или "" для посторонних ошибок.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool { return KindOf(err) == kind }

// Retryable: повторять имеет смысл только неудачный резерв.
func Retryable(err error) bool { return Is(err, KindStockReservation) }

// HTTPStatus отображает вид ошибки на код ответа API.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindStockReservation:
		return http.StatusConflict
	case KindPolicy:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
