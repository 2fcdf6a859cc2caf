package listing

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bricabrac/listings-api/internal/auth"
	"github.com/bricabrac/listings-api/internal/httputil"
	"github.com/bricabrac/listings-api/internal/logging"
)

// maxUploadSize caps the request body for listing writes.
const maxUploadSize = 10 << 20 // 10 MiB

var (
	errTitleRequired  = errors.New("title is required")
	errInvalidPrice   = errors.New("price must be a non-negative integer")
	errUploadTooLarge = errors.New("request body exceeds the upload limit")
)

// Handler contains HTTP handlers for listing endpoints
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// List returns all listings
// @Summary      List listings
// @Tags         listings
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} Listing
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /listings [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	listings, err := h.service.List(r.Context())
	if err != nil {
		logger.Error("failed to list listings", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list listings", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, listings, http.StatusOK)
}

// Get returns one listing by id
// @Summary      Get a listing
// @Tags         listings
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Listing ID"
// @Success      200 {object} Listing
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      404 {object} httputil.ErrorResponse "Not found"
// @Router       /listings/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	l, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "listing not found", httputil.CodeListingNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to get listing", "listing_id", id, "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to get listing", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, l, http.StatusOK)
}

// Create creates a listing owned by the authenticated user
// @Summary      Create a listing
// @Description  Create a listing from multipart form fields (title, description, price) with an optional image part
// @Tags         listings
// @Accept       mpfd
// @Produce      json
// @Security     BearerAuth
// @Success      201 {object} Listing
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /listings [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	input, upload, cleanup, err := parseListingBody(w, r)
	if err != nil {
		respondInputError(w, err)
		return
	}
	defer cleanup()

	l, err := h.service.Create(r.Context(), userID, input, upload, requestOrigin(r))
	if err != nil {
		logger.Error("failed to create listing", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to create listing", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("listing created", "listing_id", l.ID, "owner_id", userID)

	httputil.RespondJSON(w, l, http.StatusCreated)
}

// Update modifies a listing owned by the authenticated user
// @Summary      Update a listing
// @Description  Update a listing from JSON or multipart form data with an optional replacement image
// @Tags         listings
// @Accept       json
// @Accept       mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Listing ID"
// @Success      200 {object} Listing
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      403 {object} httputil.ErrorResponse "Not the owner"
// @Failure      404 {object} httputil.ErrorResponse "Not found"
// @Router       /listings/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	input, upload, cleanup, err := parseListingBody(w, r)
	if err != nil {
		respondInputError(w, err)
		return
	}
	defer cleanup()

	l, err := h.service.Update(r.Context(), userID, id, input, upload, requestOrigin(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httputil.RespondErrorWithCode(w, "listing not found", httputil.CodeListingNotFound, http.StatusNotFound)
		case errors.Is(err, ErrForbidden):
			logger.Warn("update rejected: not the owner", "listing_id", id, "user_id", userID)
			httputil.RespondErrorWithCode(w, "not the listing owner", httputil.CodeForbidden, http.StatusForbidden)
		default:
			logger.Error("failed to update listing", "listing_id", id, "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to update listing", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("listing updated", "listing_id", id)

	httputil.RespondJSON(w, l, http.StatusOK)
}

// Delete removes a listing owned by the authenticated user
// @Summary      Delete a listing
// @Description  Delete a listing and its image artifact
// @Tags         listings
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Listing ID"
// @Success      200 {object} map[string]string
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      403 {object} httputil.ErrorResponse "Not the owner"
// @Failure      404 {object} httputil.ErrorResponse "Not found"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /listings/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httputil.RespondErrorWithCode(w, "listing not found", httputil.CodeListingNotFound, http.StatusNotFound)
		case errors.Is(err, ErrForbidden):
			logger.Warn("delete rejected: not the owner", "listing_id", id, "user_id", userID)
			httputil.RespondErrorWithCode(w, "not the listing owner", httputil.CodeForbidden, http.StatusForbidden)
		default:
			logger.Error("failed to delete listing", "listing_id", id, "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to delete listing", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("listing deleted", "listing_id", id)

	httputil.RespondJSON(w, map[string]string{"message": "listing deleted"}, http.StatusOK)
}

// parseID reads and validates the id URL parameter, responding on failure.
func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid listing id", httputil.CodeInvalidListingID, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// parseListingBody decodes the client-writable fields and the optional
// image from either a multipart form or a JSON body. The returned cleanup
// closes the upload, if any.
func parseListingBody(w http.ResponseWriter, r *http.Request) (Input, *Upload, func(), error) {
	noop := func() {}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			if isBodyTooLarge(err) {
				return Input{}, nil, noop, errUploadTooLarge
			}
			return Input{}, nil, noop, errInvalidBody(err)
		}

		price := int64(0)
		if raw := r.FormValue("price"); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || parsed < 0 {
				return Input{}, nil, noop, errInvalidPrice
			}
			price = parsed
		}

		input := Input{
			Title:       r.FormValue("title"),
			Description: r.FormValue("description"),
			Price:       price,
		}
		if input.Title == "" {
			return Input{}, nil, noop, errTitleRequired
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				return input, nil, noop, nil
			}
			return Input{}, nil, noop, errInvalidBody(err)
		}

		upload := &Upload{Content: file, Filename: header.Filename}
		return input, upload, func() { file.Close() }, nil
	}

	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		if isBodyTooLarge(err) {
			return Input{}, nil, noop, errUploadTooLarge
		}
		return Input{}, nil, noop, errInvalidBody(err)
	}
	if input.Title == "" {
		return Input{}, nil, noop, errTitleRequired
	}
	if input.Price < 0 {
		return Input{}, nil, noop, errInvalidPrice
	}

	return input, nil, noop, nil
}

type bodyError struct{ err error }

func (e bodyError) Error() string { return "invalid request body: " + e.err.Error() }

func errInvalidBody(err error) error { return bodyError{err: err} }

// isBodyTooLarge reports whether err came from the MaxBytesReader cap.
func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func respondInputError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errTitleRequired):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeTitleRequired, http.StatusBadRequest)
	case errors.Is(err, errInvalidPrice):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidPrice, http.StatusBadRequest)
	case errors.Is(err, errUploadTooLarge):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeUploadTooLarge, http.StatusRequestEntityTooLarge)
	default:
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
	}
}

// requestOrigin rebuilds the serving origin (scheme + host) used for
// artifact URLs.
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
