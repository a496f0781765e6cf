package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go-blog-api/internal/model"
	"go-blog-api/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// writeError maps domain errors onto the response envelope. Anything it does
// not recognise is logged in full and reported as a generic 500.
func writeError(w http.ResponseWriter, err error) {
	apiErr := toAPIError(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		},
	})
}

func toAPIError(err error) *apierror.APIError {
	var apiErr *apierror.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, model.ErrUserNotFound):
		return apierror.NotFound("User not found", "")
	case errors.Is(err, model.ErrPostNotFound):
		return apierror.NotFound("Post not found", "")
	case errors.Is(err, model.ErrCommentNotFound):
		return apierror.NotFound("Comment not found", "")
	case errors.Is(err, model.ErrEmailTaken):
		return apierror.Conflict("Email already registered", "")
	case errors.Is(err, model.ErrUnauthorized):
		return apierror.Unauthorized("Authentication required")
	case errors.Is(err, model.ErrForbidden):
		return apierror.Forbidden("Access denied")
	case errors.Is(err, model.ErrInvalidInput):
		return apierror.BadRequest("Invalid input", "")
	default:
		slog.Error("unhandled error in writeError", "error", err)
		return apierror.Internal()
	}
}
