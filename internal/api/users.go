// ABOUTME: Account handlers for Google sign-in, local signup and login, and profile edits.
// ABOUTME: Sign-in responses carry a signed access token and the public user summary.
package api

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/harperreed/wellness/internal/auth"
	"github.com/harperreed/wellness/internal/models"
	"github.com/harperreed/wellness/internal/storage"
	"github.com/sirupsen/logrus"
)

type userSummary struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	Nickname *string `json:"nickname"`
}

type signInResponse struct {
	Token string      `json:"token"`
	User  userSummary `json:"user"`
}

type googleLoginRequest struct {
	Credential string `json:"credential"`
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileRequest struct {
	Nickname    *string  `json:"nickname"`
	Major       *string  `json:"major"`
	Emotion     *string  `json:"emotion"`
	SleepScore  *float64 `json:"sleepScore"`
	StressLevel *float64 `json:"stressLevel"`
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Credential) == "" {
		badRequest(w, "Google credential is missing", "credential", "Google credential is required")
		return
	}
	if s.google == nil {
		writeError(w, http.StatusNotImplemented, "Google sign-in is not configured", nil)
		return
	}

	identity, err := s.google.Verify(r.Context(), req.Credential)
	if err != nil {
		entryFor(r, s.log).WithError(err).Debug("google credential rejected")
		badRequest(w, "Invalid Google credential", "credential", "Invalid Google credential")
		return
	}

	user, err := s.repo.FindOrCreateUser(r.Context(), identity.Email, models.ProviderGoogle, identity.Name)
	if err != nil {
		writeInternalError(w, r, s.log, "Google sign-in failed", err)
		return
	}
	s.respondSignedIn(w, r, http.StatusOK, "Google login completed", user)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		badRequest(w, "Missing required fields", "email, password", "email and password are required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		badRequest(w, "Invalid email address", "email", "email must be a valid address")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		badRequest(w, "Invalid password", "password", err.Error())
		return
	}

	user := models.NewUser(email, models.ProviderLocal).
		WithNickname(strings.TrimSpace(req.Nickname)).
		WithPasswordHash(hash)
	if err := s.repo.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			badRequest(w, "Email is already in use", "email", "This email is already registered")
			return
		}
		writeInternalError(w, r, s.log, "Signup failed", err)
		return
	}

	entryFor(r, s.log).WithField("user_id", user.ID.String()).Info("user signed up")
	s.respondSignedIn(w, r, http.StatusCreated, "Signup completed", user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.repo.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeInvalidCredentials(w)
			return
		}
		writeInternalError(w, r, s.log, "Login failed", err)
		return
	}
	if user.PasswordHash == nil || auth.CheckPassword(*user.PasswordHash, req.Password) != nil {
		writeInvalidCredentials(w)
		return
	}
	s.respondSignedIn(w, r, http.StatusOK, "Login completed", user)
}

func writeInvalidCredentials(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "Email or password is incorrect",
		fieldError{Field: "credentials", Message: "Invalid email or password"})
}

func (s *Server) respondSignedIn(w http.ResponseWriter, r *http.Request, status int, message string, user *models.User) {
	token, err := s.issuer.Issue(user.ID.String(), user.Email)
	if err != nil {
		writeInternalError(w, r, s.log, "Could not issue token", err)
		return
	}
	writeSuccess(w, status, message, signInResponse{
		Token: token,
		User: userSummary{
			ID:       user.ID.String(),
			Email:    user.Email,
			Nickname: user.Nickname,
		},
	})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.repo.GetUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		s.writeUserError(w, r, "Could not load user", err)
		return
	}
	writeSuccess(w, http.StatusOK, "User details retrieved", user)
}

// handleUpdateMe edits the nickname, major and emotion.
func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.updateProfile(w, r, models.ProfileUpdate{
		Nickname: req.Nickname,
		Major:    req.Major,
		Emotion:  req.Emotion,
	}, "User details updated")
}

// handleUpdateProfile is the onboarding write; it also records scores and
// marks the tutorial completed.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.updateProfile(w, r, models.ProfileUpdate{
		Nickname:         req.Nickname,
		Major:            req.Major,
		Emotion:          req.Emotion,
		SleepScore:       req.SleepScore,
		StressLevel:      req.StressLevel,
		CompleteTutorial: true,
	}, "Profile updated")
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request, update models.ProfileUpdate, message string) {
	userID := auth.UserID(r.Context())
	user, err := s.repo.UpdateProfile(r.Context(), userID, update)
	if err != nil {
		s.writeUserError(w, r, "Profile update failed", err)
		return
	}
	entryFor(r, s.log).WithFields(logrus.Fields{
		"tutorial_completed": user.TutorialCompleted,
	}).Info("profile updated")
	writeSuccess(w, http.StatusOK, message, user.Profile())
}

func (s *Server) writeUserError(w http.ResponseWriter, r *http.Request, message string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "User not found",
			fieldError{Field: "userId", Message: "User not found"})
		return
	}
	writeInternalError(w, r, s.log, message, err)
}
