// Package apierr はゲートウェイ共通のエラーモデルと HTTP への変換
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"lendit-admin/internal/platform/apiclient"
)

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeUpstream        Code = "UPSTREAM"   // バックエンドが返したエラー
	CodeConnection      Code = "CONNECTION" // バックエンドに届かない
	CodeTimeout         Code = "TIMEOUT"
	CodeCancelled       Code = "CANCELLED"
	CodeInternal        Code = "INTERNAL"
)

const (
	LoginPath          = "/login"
	statusClientClosed = 499
)

type APIError struct {
	Code    Code
	Message string
	Status  int // 0 なら Code から決める
	Details any
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrConflict(msg string) *APIError { return &APIError{Code: CodeConflict, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var ae *APIError
	if errors.As(err, &ae) {
		if ae.Status != 0 {
			return ae.Status
		}
		switch ae.Code {
		case CodeInvalidArgument:
			return http.StatusBadRequest
		case CodeNotFound:
			return http.StatusNotFound
		case CodeConflict:
			return http.StatusConflict
		case CodeUnauthenticated:
			return http.StatusUnauthorized
		case CodeUpstream, CodeConnection:
			return http.StatusBadGateway
		case CodeTimeout:
			return http.StatusGatewayTimeout
		case CodeCancelled:
			return statusClientClosed
		default:
			return http.StatusInternalServerError
		}
	}
	if st, _ := apiclient.Status(err); st != 0 {
		return st
	}
	switch {
	case errors.Is(err, context.Canceled):
		return statusClientClosed
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

type ErrorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
		Details any    `json:"details,omitempty"`
	} `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

func Body(code Code, msg string) ErrorDTO {
	var e ErrorDTO
	e.Error.Code = code
	e.Error.Message = msg
	if code == CodeUnauthenticated {
		e.Redirect = LoginPath
	}
	return e
}

func From(err error) ErrorDTO {
	var ae *APIError
	if errors.As(err, &ae) {
		b := Body(ae.Code, ae.Message)
		b.Error.Details = ae.Details
		return b
	}
	if _, code := apiclient.Status(err); code != "" {
		msg := err.Error()
		if errors.Is(err, apiclient.ErrConnection) {
			msg = apiclient.ErrConnection.Error()
		}
		return Body(Code(code), msg)
	}
	switch {
	case errors.Is(err, context.Canceled):
		return Body(CodeCancelled, "operación cancelada")
	case errors.Is(err, context.DeadlineExceeded):
		return Body(CodeTimeout, "tiempo de espera agotado")
	}
	return Body(CodeInternal, err.Error())
}

// Respond: ハンドラ共通のエラー応答
func Respond(c *gin.Context, err error) {
	c.JSON(ToHTTPStatus(err), From(err))
}
