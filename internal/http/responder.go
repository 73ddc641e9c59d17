package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/calendar-service/internal/application"
)

var (
	errBadRequestBody      = errors.New("요청 형식이 올바르지 않습니다.")
	errInvalidEventID      = errors.New("유효하지 않은 일정 ID입니다.")
	errInvalidUserID       = errors.New("유효하지 않은 사용자 ID입니다.")
	errMissingSessionToken = errors.New("인증 토큰을 지정해 주세요.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "이 작업을 수행할 권한이 없습니다.",
		})
	case errors.Is(err, application.ErrSessionExpired), errors.Is(err, application.ErrSessionRevoked):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_SESSION_EXPIRED",
			Message:   "세션이 만료되었습니다. 다시 로그인해 주세요.",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "요청한 리소스를 찾을 수 없습니다."})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "이미 존재하는 리소스입니다."})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "입력 내용에 오류가 있습니다.",
				Errors:  localizeValidationErrors(vErr),
			})
			return
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "서버 내부 오류가 발생했습니다."})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "요청 내용이 올바르지 않습니다."
	case http.StatusUnauthorized:
		return "인증이 필요합니다."
	case http.StatusForbidden:
		return "이 작업을 수행할 권한이 없습니다."
	case http.StatusNotFound:
		return "요청한 리소스를 찾을 수 없습니다."
	case http.StatusConflict:
		return "요청이 리소스의 현재 상태와 충돌합니다."
	case http.StatusUnprocessableEntity:
		return "입력 내용에 오류가 있습니다."
	default:
		return "서버 내부 오류가 발생했습니다."
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "title is required":
		return "제목은 필수입니다."
	case "a valid date is required":
		return "유효한 날짜를 입력해 주세요."
	case "start time must be HH:MM":
		return "시작 시간은 HH:MM 형식으로 입력해 주세요."
	case "end time must be HH:MM":
		return "종료 시간은 HH:MM 형식으로 입력해 주세요."
	case "start time must be before end time":
		return "종료 시간은 시작 시간보다 늦어야 합니다."
	case "notification offset cannot be negative":
		return "알림 시간은 음수일 수 없습니다."
	case "unsupported frequency":
		return "지원하지 않는 반복 주기입니다."
	case "interval must be at least 1":
		return "반복 간격은 1 이상이어야 합니다."
	case "occurrence count must be at least 1":
		return "반복 횟수는 1 이상이어야 합니다."
	case "end date and count are mutually exclusive":
		return "종료 날짜와 반복 횟수는 동시에 지정할 수 없습니다."
	case "a valid end date is required":
		return "유효한 종료 날짜를 입력해 주세요."
	case "open-ended series requires an end date, a count, or a configured horizon":
		return "무기한 반복 일정에는 종료 날짜 또는 반복 횟수가 필요합니다."
	case "recurrence cannot be changed for a single instance":
		return "단일 일정에서는 반복 규칙을 변경할 수 없습니다."
	case "scope must be one or all":
		return "scope는 one 또는 all이어야 합니다."
	case "from and to dates are required":
		return "조회 기간의 시작일과 종료일을 지정해 주세요."
	case "query is required":
		return "검색어를 입력해 주세요."
	case "email is required":
		return "이메일은 필수입니다."
	case "email is not valid":
		return "이메일 형식이 올바르지 않습니다."
	case "display name is required":
		return "표시 이름은 필수입니다."
	case "related records are missing or invalid":
		return "연관된 데이터가 없거나 올바르지 않습니다."
	default:
		if strings.HasPrefix(message, "password must be at least") {
			return "비밀번호는 8자 이상이어야 합니다."
		}
		return message
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
