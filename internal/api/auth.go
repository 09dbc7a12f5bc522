package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/IlyasAtabaev731/barter-market/internal/domain/models"
	"github.com/IlyasAtabaev731/barter-market/internal/market"
)

type authForm struct {
	Username string
}

type feedPage struct {
	Items []models.Item
	Sort  models.SortOrder
	Sorts []models.SortOrder
}

func (s *APIServer) feedHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		r = s.optionalSession(r)
		sort := models.ParseSortOrder(r.URL.Query().Get("sort"))

		items, err := s.catalog.ListPublic(r.Context(), sort)
		if err != nil {
			s.fail(w, r, err)
			return
		}

		s.render(w, r, http.StatusOK, "feed", view{
			Title: "Marketplace",
			Data: feedPage{
				Items: items,
				Sort:  sort,
				Sorts: []models.SortOrder{models.SortNewest, models.SortOldest, models.SortLowest, models.SortHighest},
			},
		})
	}
}

func (s *APIServer) signupPageHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, "signup", view{Title: "Sign up", Data: authForm{}})
	}
}

func (s *APIServer) signupHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.renderError(w, r, http.StatusBadRequest, "Malformed form")
			return
		}
		form := authForm{Username: r.PostForm.Get("username")}

		_, err := s.community.SignUp(r.Context(), form.Username, r.PostForm.Get("password"))
		switch {
		case err == nil:
			redirect(w, r, "/login")
		case market.IsValidation(err):
			s.render(w, r, http.StatusBadRequest, "signup", view{Title: "Sign up", Error: err.Error(), Data: form})
		case errors.Is(err, market.ErrUsernameTaken):
			s.render(w, r, http.StatusConflict, "signup", view{Title: "Sign up", Error: "That username is already taken", Data: form})
		default:
			s.fail(w, r, err)
		}
	}
}

func (s *APIServer) loginPageHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, "login", view{Title: "Log in", Data: authForm{}})
	}
}

func (s *APIServer) loginHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.renderError(w, r, http.StatusBadRequest, "Malformed form")
			return
		}
		form := authForm{Username: r.PostForm.Get("username")}

		user, err := s.community.LogIn(r.Context(), form.Username, r.PostForm.Get("password"))
		if market.IsNotFound(err) {
			s.render(w, r, http.StatusUnauthorized, "login", view{Title: "Log in", Error: "User not found", Data: form})
			return
		}
		if errors.Is(err, market.ErrInvalidCredentials) {
			s.render(w, r, http.StatusUnauthorized, "login", view{Title: "Log in", Error: "Invalid password", Data: form})
			return
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}

		if err := s.startSession(w, user); err != nil {
			s.fail(w, r, err)
			return
		}

		s.logger.Info("User logged in", slog.String("username", user.Username))
		redirect(w, r, "/")
	}
}

func (s *APIServer) logoutHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		s.clearSession(w)
		redirect(w, r, "/login")
	}
}
