package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rpupo63/inkwell-backend/database"
	"github.com/rpupo63/inkwell-backend/errs"
	"github.com/rpupo63/inkwell-backend/services"
	"github.com/rs/zerolog"
)

const (
	maxJSONBodyBytes = 1 << 20
	// multipart overhead on top of the largest accepted image
	maxUploadBytes = services.MaxCoverImageBytes + 1<<20
)

type Responder struct {
	logger zerolog.Logger
}

func NewResponder(logger zerolog.Logger) Responder {
	return Responder{logger}
}

func (r Responder) WriteJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	jsonData, err := json.Marshal(data)
	if err != nil {
		r.logger.Error().Err(err).Msg("error marshaling response data")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if _, err := w.Write(jsonData); err != nil {
		r.logger.Error().Err(err).Msg("error writing response")
	}
}

// WriteError writes err as an ErrorResponse. The cause of an ApiErr is logged but
// never sent to the client.
func (r Responder) WriteError(w http.ResponseWriter, err error) {
	var apiErr *errs.ApiErr
	if !errors.As(err, &apiErr) {
		apiErr = errs.NewInternalErrorWithCause("Internal Server Error", err)
	}

	if apiErr.Cause != nil {
		event := r.logger.Warn()
		if apiErr.StatusCode >= http.StatusInternalServerError {
			event = r.logger.Error()
		}
		event.Int("status", apiErr.StatusCode).Msg(apiErr.GetFullError())
	}

	r.writeStatus(w, apiErr.StatusCode, ErrorResponse{
		Error:   apiErr.Message(),
		Status:  apiErr.StatusCode,
		Field:   apiErr.Field,
		Details: apiErr.Details,
	})
}

// WriteCreated writes data with a 201.
func (r Responder) WriteCreated(w http.ResponseWriter, data any) {
	r.writeStatus(w, http.StatusCreated, data)
}

func (r Responder) writeStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	r.WriteJSON(w, data)
}

// decodeJSON reads a JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			return errs.NewUnsupportedMediaTypeError(ct, "application/json")
		}
	}

	body := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errs.NewMaxBodySizeExceededError("", maxJSONBodyBytes)
		}
		if errors.Is(err, io.EOF) {
			return errs.NewBadRequestError("request body is empty")
		}
		return errs.NewInvalidJSONError(err)
	}
	return nil
}

// readImage reads the multipart "file" field.
func readImage(w http.ResponseWriter, r *http.Request) (*services.Image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errs.NewMaxBodySizeExceededError("file", maxUploadBytes)
		}
		return nil, errs.NewMissingRequiredFieldError("file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errs.NewBadRequestErrorWithField("failed to read file", "file")
	}
	return &services.Image{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return uuid.Nil, errs.NewBadRequestError("missing " + name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errs.NewBadRequestError("invalid " + name)
	}
	return id, nil
}

// optionalUUIDQuery parses an optional uuid query parameter.
func optionalUUIDQuery(r *http.Request, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, errs.NewBadRequestErrorWithField("invalid "+name, name)
	}
	return &id, nil
}

func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.NewInvalidFieldError(name, name+" must be an integer")
	}
	return n, nil
}

// pageQuery reads skip and limit.
func pageQuery(r *http.Request) (database.Page, error) {
	skip, err := intQuery(r, "skip", 0)
	if err != nil {
		return database.Page{}, err
	}
	limit, err := intQuery(r, "limit", database.DefaultLimit)
	if err != nil {
		return database.Page{}, err
	}
	return database.NewPage(skip, limit)
}

// csvQuery splits a comma separated parameter, dropping blanks.
func csvQuery(r *http.Request, name string) []string {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
