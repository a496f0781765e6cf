package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"go-blog-api/internal/model"
	"go-blog-api/pkg/apierror"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	defer r.Body.Close()

	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &tooLarge):
		return apierror.BadRequest("request body too large", "")
	case errors.Is(err, io.EOF):
		return apierror.BadRequest("request body is required", "")
	default:
		return apierror.BadRequest("invalid JSON body", "")
	}
}

// pathID reads a uuid route parameter. Malformed ids are InvalidInput rather
// than NotFound.
func pathID(r *http.Request, name string) (string, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apierror.BadRequest("invalid id", name)
	}
	return id.String(), nil
}

// bypassCache reports whether the client asked for ?refresh=true.
func bypassCache(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("refresh"))
	return err == nil && v
}

func pageFromQuery(r *http.Request) model.Page {
	query := r.URL.Query()
	return model.Page{
		Page:  parseIntOrDefault(query.Get("page"), 1),
		Limit: parseIntOrDefault(query.Get("limit"), 50),
	}.Normalize()
}

func parseIntOrDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}
