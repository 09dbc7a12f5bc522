package api

import (
	"net/http"
	"net/url"

	"github.com/IlyasAtabaev731/barter-market/internal/market"
	"github.com/gorilla/mux"
)

type profileForm struct {
	Bio string
	Pic string
}

func (s *APIServer) profileHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := s.community.Profile(r.Context(), userID(r))
		if err != nil {
			s.fail(w, r, err)
			return
		}

		s.render(w, r, http.StatusOK, "profile", view{Title: profile.User.Username, Data: profile})
	}
}

func (s *APIServer) editProfilePageHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.community.User(r.Context(), userID(r))
		if err != nil {
			s.fail(w, r, err)
			return
		}

		s.render(w, r, http.StatusOK, "editprofile", view{
			Title: "Edit profile",
			Data:  profileForm{Bio: user.Bio, Pic: user.Pic},
		})
	}
}

func (s *APIServer) editProfileHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.renderError(w, r, http.StatusBadRequest, "Malformed form")
			return
		}
		form := profileForm{Bio: r.PostForm.Get("bio"), Pic: r.PostForm.Get("pic")}

		err := s.community.UpdateProfile(r.Context(), userID(r), form.Bio, form.Pic)
		if market.IsValidation(err) {
			s.render(w, r, http.StatusBadRequest, "editprofile", view{Title: "Edit profile", Error: err.Error(), Data: form})
			return
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}

		redirect(w, r, "/profile")
	}
}

func (s *APIServer) viewUserHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := s.community.ViewUser(r.Context(), userID(r), mux.Vars(r)["username"])
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if profile.IsSelf {
			redirect(w, r, "/profile")
			return
		}

		s.render(w, r, http.StatusOK, "profile", view{Title: profile.User.Username, Data: profile})
	}
}

func (s *APIServer) addFriendHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		username := mux.Vars(r)["username"]

		err := s.community.AddFriend(r.Context(), userID(r), username)
		if market.IsValidation(err) {
			redirect(w, r, "/profile")
			return
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}

		redirect(w, r, "/viewUser/"+url.PathEscape(username))
	}
}

func (s *APIServer) friendsHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		friends, err := s.community.Friends(r.Context(), userID(r))
		if err != nil {
			s.fail(w, r, err)
			return
		}

		s.render(w, r, http.StatusOK, "friends", view{Title: "Friends", Data: friends})
	}
}
