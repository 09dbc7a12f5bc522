package api

import (
	"net/http"

	"github.com/IlyasAtabaev731/barter-market/internal/domain/models"
	"github.com/IlyasAtabaev731/barter-market/internal/market"
	"github.com/gorilla/mux"
)

type itemForm struct {
	Action string
	Submit string
	Item   market.ItemInput
}

type itemPage struct {
	Item    *models.Item
	IsOwner bool
}

func formItem(r *http.Request) market.ItemInput {
	return market.ItemInput{
		Name:        r.PostForm.Get("name"),
		Description: r.PostForm.Get("description"),
		Price:       r.PostForm.Get("price"),
		ImageURL:    r.PostForm.Get("image_url"),
	}
}

func (s *APIServer) itemHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := userID(r)

		item, err := s.catalog.View(r.Context(), uid, mux.Vars(r)["id"])
		if err != nil {
			s.fail(w, r, err)
			return
		}

		s.render(w, r, http.StatusOK, "item", view{
			Title: item.Name,
			Data:  itemPage{Item: item, IsOwner: item.OwnerID == uid},
		})
	}
}

func (s *APIServer) addItemPageHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, "itemform", view{
			Title: "List an item",
			Data:  itemForm{Action: "/add", Submit: "List item"},
		})
	}
}

func (s *APIServer) addItemHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.renderError(w, r, http.StatusBadRequest, "Malformed form")
			return
		}
		in := formItem(r)

		_, err := s.catalog.Create(r.Context(), userID(r), in)
		if market.IsValidation(err) {
			s.render(w, r, http.StatusBadRequest, "itemform", view{
				Title: "List an item",
				Error: err.Error(),
				Data:  itemForm{Action: "/add", Submit: "List item", Item: in},
			})
			return
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}

		redirect(w, r, "/viewListings")
	}
}

func (s *APIServer) editItemPageHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		item, err := s.catalog.ForEdit(r.Context(), userID(r), id)
		if err != nil {
			s.fail(w, r, err)
			return
		}

		s.render(w, r, http.StatusOK, "itemform", view{
			Title: "Edit " + item.Name,
			Data: itemForm{
				Action: "/update/" + id,
				Submit: "Save",
				Item: market.ItemInput{
					Name:        item.Name,
					Description: item.Description,
					Price:       item.Price.StringFixed(2),
					ImageURL:    item.ImageURL,
				},
			},
		})
	}
}

func (s *APIServer) updateItemHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.renderError(w, r, http.StatusBadRequest, "Malformed form")
			return
		}
		id := mux.Vars(r)["id"]
		in := formItem(r)

		err := s.catalog.Edit(r.Context(), userID(r), id, in)
		if market.IsValidation(err) {
			s.render(w, r, http.StatusBadRequest, "itemform", view{
				Title: "Edit item",
				Error: err.Error(),
				Data:  itemForm{Action: "/update/" + id, Submit: "Save", Item: in},
			})
			return
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}

		redirect(w, r, "/viewListings")
	}
}

func (s *APIServer) deleteItemHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.catalog.Delete(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
			s.fail(w, r, err)
			return
		}

		redirect(w, r, "/viewListings")
	}
}

func (s *APIServer) visibilityHandler(public bool) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		err := s.catalog.SetVisibility(r.Context(), userID(r), mux.Vars(r)["id"], public)
		if err != nil && !market.IsNotFound(err) {
			s.fail(w, r, err)
			return
		}

		redirect(w, r, "/viewListings")
	}
}

func (s *APIServer) listingsHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := s.catalog.ListByOwner(r.Context(), userID(r))
		if err != nil {
			s.fail(w, r, err)
			return
		}

		s.render(w, r, http.StatusOK, "listings", view{Title: "My listings", Data: items})
	}
}
