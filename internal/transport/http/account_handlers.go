package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-channels/internal/auth"
	"github.com/vovakirdan/wirechat-channels/internal/core"
)

// Account error codes returned next to the message.
const (
	errCodeUserExists         = "user_exists"
	errCodeInvalidCredentials = "invalid_credentials"
)

// AccountHandlers serves registration and login.
type AccountHandlers struct {
	auth *auth.Service
	log  *zerolog.Logger
}

func NewAccountHandlers(authService *auth.Service, logger *zerolog.Logger) *AccountHandlers {
	return &AccountHandlers{auth: authService, log: logger}
}

// Credentials is the body of both account endpoints. Username rules beyond
// the length are checked by auth.ValidUsername.
type Credentials struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required"`
}

// Account identifies the user a session belongs to.
type Account struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// SessionResponse carries a bearer token and who it was issued to.
// ExpiresAt is unix milliseconds.
type SessionResponse struct {
	Token     string  `json:"token"`
	User      Account `json:"user"`
	ExpiresAt int64   `json:"expires_at"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Register creates an account and signs the new user in.
// POST /api/register
func (h *AccountHandlers) Register(c *gin.Context) {
	creds, ok := h.bind(c)
	if !ok {
		return
	}

	token, err := h.auth.Register(c.Request.Context(), creds.Username, creds.Password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrUserExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "user already exists", Code: errCodeUserExists})
		return
	case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrInvalidPassword):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: core.ErrCodeBadRequest})
		return
	default:
		h.internal(c, err, creds.Username, "register failed")
		return
	}

	h.log.Info().Str("user", creds.Username).Msg("account registered")
	h.session(c, http.StatusCreated, token)
}

// Login exchanges credentials for a token.
// POST /api/login
func (h *AccountHandlers) Login(c *gin.Context) {
	creds, ok := h.bind(c)
	if !ok {
		return
	}

	token, err := h.auth.Login(c.Request.Context(), creds.Username, creds.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.log.Debug().Str("user", creds.Username).Msg("login rejected")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials", Code: errCodeInvalidCredentials})
		return
	}
	if err != nil {
		h.internal(c, err, creds.Username, "login failed")
		return
	}

	h.session(c, http.StatusOK, token)
}

func (h *AccountHandlers) bind(c *gin.Context) (Credentials, bool) {
	var creds Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		h.log.Debug().Err(err).Str("path", c.FullPath()).Msg("invalid account request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return Credentials{}, false
	}
	return creds, true
}

// session answers with the token and the identity encoded in it.
func (h *AccountHandlers) session(c *gin.Context, status int, token string) {
	claims, err := h.auth.ValidateToken(token)
	if err != nil {
		h.internal(c, err, "", "issued token does not validate")
		return
	}

	resp := SessionResponse{
		Token: token,
		User:  Account{ID: claims.UserID, Username: claims.Username},
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.UnixMilli()
	}
	c.JSON(status, resp)
}

func (h *AccountHandlers) internal(c *gin.Context, err error, user, msg string) {
	h.log.Error().Err(err).Str("user", user).Msg(msg)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: core.ErrCodeInternal})
}
