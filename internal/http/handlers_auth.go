package http

import (
	"errors"
	"net/http"

	"expensetracker/internal/auth"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

type authPage struct {
	layout
	Username string
	Email    string
	Next     string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserFromContext(r.Context()); ok {
		http.Redirect(w, r, safeNext(r.URL.Query().Get("next")), http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", authPage{
		layout: s.layoutFor(r, "Login"),
		Next:   r.URL.Query().Get("next"),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if errResp := ParseFormOrFail(r); errResp != nil {
		errResp.Write(w)
		return
	}
	username := sanitizeInput(r.Form.Get("username"))
	next := r.Form.Get("next")

	fail := func(status int, msg string) {
		l := s.layoutFor(r, "Login")
		l.Errors = []string{msg}
		s.render(w, r, status, "login.html", authPage{layout: l, Username: username, Next: next})
	}

	if username == "" || r.Form.Get("password") == "" {
		fail(http.StatusUnprocessableEntity, "Please fill all fields")
		return
	}

	u, err := s.auth.Authenticate(r.Context(), username, r.Form.Get("password"))
	if errors.Is(err, core.ErrInvalidCredentials) {
		fail(http.StatusUnauthorized, "Invalid credentials, try again")
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Login failed", log.FieldError, err, log.FieldOperation, log.OpLogin)
		fail(http.StatusInternalServerError, "Something went wrong, try again")
		return
	}

	s.authn.StartSession(w, u)
	log.FromContext(r.Context()).InfoContext(r.Context(), "User logged in",
		log.FieldUserID, u.ID, log.FieldOperation, log.OpLogin)
	redirectAfterPost(w, r, safeNext(next), NewHTMXResponse())
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register.html", authPage{layout: s.layoutFor(r, "Register")})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if errResp := ParseFormOrFail(r); errResp != nil {
		errResp.Write(w)
		return
	}
	in := auth.RegisterInput{
		Username: sanitizeInput(r.Form.Get("username")),
		Email:    sanitizeInput(r.Form.Get("email")),
		Password: r.Form.Get("password"),
		Confirm:  r.Form.Get("confirm_password"),
	}

	fail := func(status int, msgs []string) {
		l := s.layoutFor(r, "Register")
		l.Errors = msgs
		s.render(w, r, status, "register.html", authPage{layout: l, Username: in.Username, Email: in.Email})
	}

	u, err := s.auth.Register(r.Context(), in)
	var verr *auth.ValidationError
	switch {
	case errors.As(err, &verr):
		fail(http.StatusUnprocessableEntity, verr.Messages)
		return
	case errors.Is(err, core.ErrUsernameTaken):
		fail(http.StatusConflict, []string{"Username is already taken. Choose another one."})
		return
	case err != nil:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Registration failed", log.FieldError, err, log.FieldOperation, log.OpRegister)
		fail(http.StatusInternalServerError, []string{"Something went wrong, try again"})
		return
	}

	s.authn.StartSession(w, u)
	redirectAfterPost(w, r, "/expenses", NewHTMXResponse().TriggerSuccessNotification("Account created"))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.authn.EndSession(w, r)
	redirectAfterPost(w, r, "/login", NewHTMXResponse())
}

// handleValidateUsername backs the live check on the sign-up form.
func (s *Server) handleValidateUsername(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"username_error": "Invalid request body."})
		return
	}

	err := s.auth.ValidateUsername(r.Context(), p.Get("username"))
	var uerr *auth.UsernameError
	switch {
	case errors.As(err, &uerr):
		writeJSON(w, uerr.Status, map[string]string{"username_error": uerr.Message})
	case err != nil:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Username validation failed",
			log.FieldError, err, log.FieldOperation, log.OpValidate)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"username_valid": true})
	}
}
