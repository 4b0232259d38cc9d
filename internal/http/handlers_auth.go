package http

import (
	"net/http"

	"fintrack/internal/log"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.render(w, r, http.StatusOK, "login.html", pageData{Title: "Log in"})
	case http.MethodPost:
		s.login(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(w, r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	username := sanitizeInput(r.PostForm.Get("username"))

	user, err := s.auth.Login(ctx, username, r.PostForm.Get("password"))
	if err != nil {
		status, msg, ok := userError(err)
		if !ok {
			s.serverError(w, r, "Login failed", err, log.OpLogin)
			return
		}
		log.FromContext(ctx).InfoContext(ctx, "Login rejected", log.FieldUsername, username)
		s.render(w, r, status, "login.html", pageData{
			Title: "Log in",
			Flash: &Flash{Kind: FlashError, Message: msg},
			Form:  r.PostForm,
		})
		return
	}

	token, err := s.sessions.Issue(user.ID, user.Username)
	if err != nil {
		s.serverError(w, r, "Session issue failed", err, log.OpLogin)
		return
	}
	s.setSession(w, token)
	log.FromContext(ctx).InfoContext(ctx, "User logged in", log.FieldUserID, user.ID)
	NewResponse().Redirect("/").Write(w)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.render(w, r, http.StatusOK, "register.html", pageData{Title: "Register"})
	case http.MethodPost:
		s.register(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(w, r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()

	_, err := s.auth.Register(ctx, r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		status, msg, ok := userError(err)
		if !ok {
			s.serverError(w, r, "Registration failed", err, log.OpRegister)
			return
		}
		s.render(w, r, status, "register.html", pageData{
			Title: "Register",
			Flash: &Flash{Kind: FlashError, Message: msg},
			Form:  r.PostForm,
		})
		return
	}

	NewResponse().
		Flash(FlashSuccess, "Registration successful. Please log in.").
		Redirect("/login").
		Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearSession(w)
	NewResponse().Flash(FlashInfo, "You have been logged out.").Redirect("/login").Write(w)
}
