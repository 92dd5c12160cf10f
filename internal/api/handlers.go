package api

import (
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"innostart.pro/innostart/internal/apierr"
	"innostart.pro/innostart/internal/core"
	"innostart.pro/innostart/internal/logger"
)

const (
	minPasswordLength = 8
	// bcrypt rejects longer input
	maxPasswordBytes = 72
)

type APIHandler struct {
	accounts   *core.AccountService
	ideas      *core.IdeaService
	generation *core.GenerationService
	chat       *core.ChatService
	log        *logger.Logger
}

func NewAPIHandler(accounts *core.AccountService, ideas *core.IdeaService, generation *core.GenerationService,
	chat *core.ChatService, log *logger.Logger) *APIHandler {
	return &APIHandler{
		accounts:   accounts,
		ideas:      ideas,
		generation: generation,
		chat:       chat,
		log:        log,
	}
}

// pathID reads a positive numeric id from the route.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apierr.ValidationErrors{{Field: name, Message: "must be a positive integer"}}
	}
	return id, nil
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (req SignupRequest) validate() error {
	var errs apierr.ValidationErrors
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
		errs.Add("email", "A valid email address is required")
	}
	if len(req.Password) < minPasswordLength {
		errs.Add("password", "Password must be at least 8 characters")
	} else if len(req.Password) > maxPasswordBytes {
		errs.Add("password", "Password must be at most 72 bytes")
	}
	if strings.TrimSpace(req.Name) == "" {
		errs.Add("name", "Name is required")
	}
	return errs.Err()
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}
	if err := req.validate(); err != nil {
		h.fail(w, r, err, "")
		return
	}

	user, err := h.accounts.Signup(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		h.fail(w, r, err, "Failed to create user")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}
	var errs apierr.ValidationErrors
	if strings.TrimSpace(req.Email) == "" {
		errs.Add("email", "Email is required")
	}
	if req.Password == "" {
		errs.Add("password", "Password is required")
	}
	if err := errs.Err(); err != nil {
		h.fail(w, r, err, "")
		return
	}

	token, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err, "Failed to log in")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
