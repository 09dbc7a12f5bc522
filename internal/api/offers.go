package api

import (
	"context"
	"net/http"

	"github.com/IlyasAtabaev731/barter-market/internal/domain/models"
	"github.com/IlyasAtabaev731/barter-market/internal/market"
	"github.com/gorilla/mux"
)

type offersPage struct {
	Offers   []models.HydratedOffer
	Received bool
}

func (s *APIServer) offerPageHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := s.ledger.OfferForm(r.Context(), mux.Vars(r)["id"], userID(r))
		if err != nil {
			s.fail(w, r, err)
			return
		}

		s.render(w, r, http.StatusOK, "offerform", view{Title: "Make an offer", Data: form})
	}
}

func (s *APIServer) newOfferHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.renderError(w, r, http.StatusBadRequest, "Malformed form")
			return
		}

		_, err := s.ledger.Create(r.Context(), mux.Vars(r)["id"], r.PostForm["offered"], userID(r))
		if err != nil {
			s.fail(w, r, err)
			return
		}

		redirect(w, r, "/sentoffers")
	}
}

func (s *APIServer) offersHandler(received bool) func(http.ResponseWriter, *http.Request) {
	title := "Sent offers"
	list := s.ledger.ListSent
	if received {
		title = "Received offers"
		list = s.ledger.ListReceived
	}

	return func(w http.ResponseWriter, r *http.Request) {
		offers, err := list(r.Context(), userID(r))
		if err != nil {
			s.fail(w, r, err)
			return
		}

		s.render(w, r, http.StatusOK, "offers", view{
			Title: title,
			Data:  offersPage{Offers: offers, Received: received},
		})
	}
}

func (s *APIServer) sentOffersHandler() func(http.ResponseWriter, *http.Request) {
	return s.offersHandler(false)
}

func (s *APIServer) receivedOffersHandler() func(http.ResponseWriter, *http.Request) {
	return s.offersHandler(true)
}

type transitionFunc func(ctx context.Context, actorID, offerID string) (*models.Offer, error)

// transitionHandler runs an accept or reject. A missing offer sends the
// user back to their inbox.
func (s *APIServer) transitionHandler(apply transitionFunc) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		_, err := apply(r.Context(), userID(r), mux.Vars(r)["id"])
		if err != nil && !market.IsNotFound(err) {
			s.fail(w, r, err)
			return
		}

		redirect(w, r, "/receivedoffers")
	}
}

func (s *APIServer) acceptOfferHandler() func(http.ResponseWriter, *http.Request) {
	return s.transitionHandler(s.ledger.Accept)
}

func (s *APIServer) rejectOfferHandler() func(http.ResponseWriter, *http.Request) {
	return s.transitionHandler(s.ledger.Reject)
}

func (s *APIServer) deleteOfferHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.ledger.Delete(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
			s.fail(w, r, err)
			return
		}

		redirect(w, r, "/sentoffers")
	}
}
