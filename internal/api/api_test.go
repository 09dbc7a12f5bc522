package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/IlyasAtabaev731/barter-market/internal/config"
	"github.com/IlyasAtabaev731/barter-market/internal/domain/models"
	"github.com/IlyasAtabaev731/barter-market/internal/lib/jwt"
	"github.com/IlyasAtabaev731/barter-market/internal/market"
	"github.com/IlyasAtabaev731/barter-market/internal/storage/memory"
	"github.com/gorilla/mux"
)

// ========================================================
// Helpers
// ========================================================

const testSecret = "secret"

func testConfig() *config.Config {
	return &config.Config{
		ApiHost: "localhost",
		ApiPort: 8080,
		Session: config.Session{
			Secret:     testSecret,
			TTL:        time.Hour,
			CookieName: "session",
		},
		RateLimit: config.RateLimit{RPS: 100, Burst: 100},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*APIServer, *memory.Storage) {
	t.Helper()

	store := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	apiServer := New(cfg, logger, store)
	apiServer.configureRouter()

	return apiServer, store
}

func signUp(t *testing.T, s *APIServer, username string) *models.User {
	t.Helper()

	user, err := s.community.SignUp(context.Background(), username, "password")
	if err != nil {
		t.Fatalf("failed to sign up %s: %v", username, err)
	}
	return user
}

func listItem(t *testing.T, s *APIServer, owner *models.User, name, price string) *models.Item {
	t.Helper()

	item, err := s.catalog.Create(context.Background(), owner.ID, market.ItemInput{
		Name:        name,
		Description: name + " for trade",
		Price:       price,
	})
	if err != nil {
		t.Fatalf("failed to list %s: %v", name, err)
	}
	return item
}

func sessionCookie(t *testing.T, user *models.User) *http.Cookie {
	t.Helper()

	token, err := jwt.NewToken(user, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return &http.Cookie{Name: "session", Value: token}
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func serve(s *APIServer, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rr, req)
	return rr
}

func expectRedirect(t *testing.T, rr *httptest.ResponseRecorder, location string) {
	t.Helper()

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Location"); got != location {
		t.Fatalf("expected redirect to %s, got %s", location, got)
	}
}

// ========================================================
// Tests for Auth Handlers (Sign up & Log in)
// ========================================================

func TestSignupRedirectsToLogin(t *testing.T) {
	apiServer, store := newTestServer(t, testConfig())

	req := postForm("/signup", url.Values{"username": {"marc1"}, "password": {"password"}})
	rr := httptest.NewRecorder()

	handler := http.HandlerFunc(apiServer.signupHandler())
	handler.ServeHTTP(rr, req)

	expectRedirect(t, rr, "/login")

	user, err := store.UserByName(context.Background(), "marc1")
	if err != nil {
		t.Fatalf("expected user to be stored: %v", err)
	}
	if user.Pic != models.DefaultPic {
		t.Errorf("expected default pic, got %s", user.Pic)
	}
}

func TestSignupRejectsTakenAndInvalidNames(t *testing.T) {
	apiServer, _ := newTestServer(t, testConfig())
	signUp(t, apiServer, "marc1")

	rr := serve(apiServer, postForm("/signup", url.Values{"username": {"marc1"}, "password": {"password"}}))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409 for a taken name, got %d", rr.Code)
	}

	rr = serve(apiServer, postForm("/signup", url.Values{"username": {"a/b"}, "password": {"password"}}))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for an invalid name, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `value="a/b"`) {
		t.Errorf("expected the form to keep the submitted username")
	}
}

func TestLogin(t *testing.T) {
	apiServer, _ := newTestServer(t, testConfig())
	user := signUp(t, apiServer, "existing")

	rr := serve(apiServer, postForm("/login", url.Values{"username": {"existing"}, "password": {"password"}}))
	expectRedirect(t, rr, "/")

	var token string
	for _, c := range rr.Result().Cookies() {
		if c.Name == "session" {
			token = c.Value
			if !c.HttpOnly {
				t.Error("expected session cookie to be HttpOnly")
			}
		}
	}
	if token == "" {
		t.Fatal("expected a session cookie")
	}

	sess, err := jwt.ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("failed to parse token: %v", err)
	}
	if sess.UserID != user.ID || sess.Username != "existing" {
		t.Errorf("unexpected session %+v", sess)
	}

	rr = serve(apiServer, postForm("/login", url.Values{"username": {"existing"}, "password": {"wrongpassword"}}))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for invalid login, got %d", rr.Code)
	}

	rr = serve(apiServer, postForm("/login", url.Values{"username": {"nobody"}, "password": {"password"}}))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for unknown user, got %d", rr.Code)
	}
}

func TestLoginIsRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimit{RPS: 0.001, Burst: 1}
	apiServer, _ := newTestServer(t, cfg)

	form := url.Values{"username": {"nobody"}, "password": {"password"}}

	if rr := serve(apiServer, postForm("/login", form)); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for the first attempt, got %d", rr.Code)
	}
	if rr := serve(apiServer, postForm("/login", form)); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429 for the second attempt, got %d", rr.Code)
	}
}

func TestAuthenticate(t *testing.T) {
	apiServer, _ := newTestServer(t, testConfig())
	user := signUp(t, apiServer, "marc1")
	handler := http.HandlerFunc(apiServer.authenticate(apiServer.profileHandler()))

	req := httptest.NewRequest("GET", "/profile", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	expectRedirect(t, rr, "/login")

	req = httptest.NewRequest("GET", "/profile", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "garbage"})
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	expectRedirect(t, rr, "/login")

	token, err := jwt.NewToken(user, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	req = httptest.NewRequest("GET", "/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 with a bearer token, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "marc1") {
		t.Errorf("expected profile page to show the username")
	}
}

// ========================================================
// Tests for Item Handlers
// ========================================================

func TestFeedSortsAndHidesPrivateItems(t *testing.T) {
	apiServer, _ := newTestServer(t, testConfig())
	owner := signUp(t, apiServer, "marc1")
	listItem(t, apiServer, owner, "Piano", "900")
	listItem(t, apiServer, owner, "Pencil", "0.50")
	hidden := listItem(t, apiServer, owner, "Diary", "5")
	if err := apiServer.catalog.SetVisibility(context.Background(), owner.ID, hidden.ID, false); err != nil {
		t.Fatalf("failed to hide item: %v", err)
	}

	rr := serve(apiServer, httptest.NewRequest("GET", "/?sort=lowest", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	body := rr.Body.String()
	if strings.Contains(body, "Diary") {
		t.Error("expected private item to be hidden from the feed")
	}
	pencil, piano := strings.Index(body, "Pencil"), strings.Index(body, "Piano")
	if pencil < 0 || piano < 0 || pencil > piano {
		t.Errorf("expected Pencil before Piano when sorted by lowest price")
	}
	if !strings.Contains(body, "$0.50") {
		t.Errorf("expected prices rendered with two decimals")
	}
}

func TestAddItem(t *testing.T) {
	apiServer, store := newTestServer(t, testConfig())
	user := signUp(t, apiServer, "marc1")

	req := postForm("/add", url.Values{"name": {"Lamp"}, "description": {"Desk lamp"}, "price": {"abc"}})
	req.AddCookie(sessionCookie(t, user))
	rr := serve(apiServer, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for a bad price, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Desk lamp") {
		t.Errorf("expected the form to keep the submitted description")
	}

	req = postForm("/add", url.Values{"name": {"Lamp"}, "description": {"Desk lamp"}, "price": {"19.99"}})
	req.AddCookie(sessionCookie(t, user))
	expectRedirect(t, serve(apiServer, req), "/viewListings")

	items, err := store.ItemsByOwner(context.Background(), user.ID)
	if err != nil || len(items) != 1 {
		t.Fatalf("expected one stored item, got %d (%v)", len(items), err)
	}
	if items[0].Price.String() != "19.99" {
		t.Errorf("expected price 19.99, got %s", items[0].Price)
	}
}

func TestItemHandlerNotFound(t *testing.T) {
	apiServer, _ := newTestServer(t, testConfig())
	user := signUp(t, apiServer, "marc1")

	req := httptest.NewRequest("GET", "/item/missing", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "missing"})
	req = req.WithContext(withSession(req.Context(), &jwt.Session{UserID: user.ID, Username: user.Username}))
	rr := httptest.NewRecorder()

	handler := http.HandlerFunc(apiServer.itemHandler())
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestEditOthersItemForbidden(t *testing.T) {
	apiServer, _ := newTestServer(t, testConfig())
	owner := signUp(t, apiServer, "marc1")
	other := signUp(t, apiServer, "marc2")
	item := listItem(t, apiServer, owner, "Bike", "50")

	req := postForm("/update/"+item.ID, url.Values{"name": {"Mine"}, "description": {"now"}, "price": {"1"}})
	req.AddCookie(sessionCookie(t, other))
	if rr := serve(apiServer, req); rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}

	req = httptest.NewRequest("GET", "/edit/"+item.ID, nil)
	req.AddCookie(sessionCookie(t, owner))
	rr := serve(apiServer, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 for the owner, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `value="50.00"`) {
		t.Errorf("expected the edit form to be prefilled with the price")
	}
}

// ========================================================
// Tests for Offer Handlers
// ========================================================

func TestOfferLifecycle(t *testing.T) {
	apiServer, store := newTestServer(t, testConfig())
	ctx := context.Background()
	alice := signUp(t, apiServer, "alice")
	bob := signUp(t, apiServer, "bob")
	bike := listItem(t, apiServer, alice, "Bike", "120")
	lamp := listItem(t, apiServer, bob, "Lamp", "20")

	req := postForm("/newoffer/"+bike.ID, url.Values{"offered": {lamp.ID}})
	req.AddCookie(sessionCookie(t, bob))
	expectRedirect(t, serve(apiServer, req), "/sentoffers")

	sent, err := store.OffersBySender(ctx, bob.ID)
	if err != nil || len(sent) != 1 {
		t.Fatalf("expected one sent offer, got %d (%v)", len(sent), err)
	}
	offer := sent[0]
	if offer.RecipientID != alice.ID || offer.Status != models.OfferSent {
		t.Fatalf("unexpected offer %+v", offer)
	}

	req = httptest.NewRequest("GET", "/receivedoffers", nil)
	req.AddCookie(sessionCookie(t, alice))
	rr := serve(apiServer, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Lamp") || !strings.Contains(rr.Body.String(), "/acceptoffer/"+offer.ID) {
		t.Errorf("expected received offers to show the offered item and an accept button")
	}

	req = postForm("/acceptoffer/"+offer.ID, nil)
	req.AddCookie(sessionCookie(t, bob))
	if rr := serve(apiServer, req); rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 when the sender accepts, got %d", rr.Code)
	}

	req = postForm("/acceptoffer/"+offer.ID, nil)
	req.AddCookie(sessionCookie(t, alice))
	expectRedirect(t, serve(apiServer, req), "/receivedoffers")

	req = postForm("/rejectoffer/"+offer.ID, nil)
	req.AddCookie(sessionCookie(t, alice))
	expectRedirect(t, serve(apiServer, req), "/receivedoffers")

	got, err := store.OfferByID(ctx, offer.ID)
	if err != nil {
		t.Fatalf("failed to load offer: %v", err)
	}
	if got.Status != models.OfferAccepted {
		t.Errorf("expected accepted offer to stay accepted, got %s", got.Status)
	}

	req = postForm("/delete/"+bike.ID, nil)
	req.AddCookie(sessionCookie(t, alice))
	expectRedirect(t, serve(apiServer, req), "/viewListings")

	if _, err := store.OfferByID(ctx, offer.ID); err == nil {
		t.Error("expected offer to be purged with the requested item")
	}
}

func TestAcceptMissingOfferRedirects(t *testing.T) {
	apiServer, _ := newTestServer(t, testConfig())
	user := signUp(t, apiServer, "alice")

	req := postForm("/acceptoffer/nope", nil)
	req.AddCookie(sessionCookie(t, user))
	expectRedirect(t, serve(apiServer, req), "/receivedoffers")
}

func TestSentOffersShowsDeletedItems(t *testing.T) {
	apiServer, store := newTestServer(t, testConfig())
	ctx := context.Background()
	alice := signUp(t, apiServer, "alice")
	bob := signUp(t, apiServer, "bob")
	bike := listItem(t, apiServer, alice, "Bike", "120")

	if _, err := store.SaveOffer(ctx, &models.Offer{
		RequestedItemID: bike.ID,
		OfferedItemIDs:  []string{"gone"},
		SenderID:        bob.ID,
		RecipientID:     alice.ID,
		Status:          models.OfferSent,
		CreatedAt:       time.Now(),
	}); err != nil {
		t.Fatalf("failed to save offer: %v", err)
	}

	req := httptest.NewRequest("GET", "/sentoffers", nil)
	req.AddCookie(sessionCookie(t, bob))
	rr := serve(apiServer, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Item no longer available") {
		t.Errorf("expected a placeholder for the missing item")
	}
}

// ========================================================
// Tests for Profile and Friend Handlers
// ========================================================

func TestViewUser(t *testing.T) {
	apiServer, _ := newTestServer(t, testConfig())
	alice := signUp(t, apiServer, "alice")
	signUp(t, apiServer, "bob")

	req := httptest.NewRequest("GET", "/viewUser/alice", nil)
	req.AddCookie(sessionCookie(t, alice))
	expectRedirect(t, serve(apiServer, req), "/profile")

	req = httptest.NewRequest("GET", "/viewUser/bob", nil)
	req.AddCookie(sessionCookie(t, alice))
	rr := serve(apiServer, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "/addFriend/bob") {
		t.Errorf("expected an add friend button")
	}

	req = httptest.NewRequest("GET", "/viewUser/nobody", nil)
	req.AddCookie(sessionCookie(t, alice))
	if rr := serve(apiServer, req); rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestAddFriend(t *testing.T) {
	apiServer, _ := newTestServer(t, testConfig())
	alice := signUp(t, apiServer, "alice")
	signUp(t, apiServer, "bob")

	req := postForm("/addFriend/bob", nil)
	req.AddCookie(sessionCookie(t, alice))
	expectRedirect(t, serve(apiServer, req), "/viewUser/bob")

	req = postForm("/addFriend/alice", nil)
	req.AddCookie(sessionCookie(t, alice))
	expectRedirect(t, serve(apiServer, req), "/profile")

	req = httptest.NewRequest("GET", "/friends", nil)
	req.AddCookie(sessionCookie(t, alice))
	rr := serve(apiServer, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "/viewUser/bob") {
		t.Errorf("expected bob in the friend list")
	}
}

func TestEditProfile(t *testing.T) {
	apiServer, store := newTestServer(t, testConfig())
	user := signUp(t, apiServer, "alice")

	req := postForm("/editProfile", url.Values{"bio": {"hi"}, "pic": {"javascript:alert(1)"}})
	req.AddCookie(sessionCookie(t, user))
	if rr := serve(apiServer, req); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for a bad picture url, got %d", rr.Code)
	}

	req = postForm("/editProfile", url.Values{"bio": {"<b>hi</b> there"}, "pic": {""}})
	req.AddCookie(sessionCookie(t, user))
	expectRedirect(t, serve(apiServer, req), "/profile")

	got, err := store.UserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("failed to load user: %v", err)
	}
	if got.Bio != "hi there" || got.Pic != models.DefaultPic {
		t.Errorf("unexpected profile bio=%q pic=%q", got.Bio, got.Pic)
	}
}

// ========================================================
// Tests for Operational Endpoints
// ========================================================

func TestHealthz(t *testing.T) {
	apiServer, _ := newTestServer(t, testConfig())

	rr := serve(apiServer, httptest.NewRequest("GET", "/healthz", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("expected 200 ok, got %d %q", rr.Code, rr.Body.String())
	}
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	apiServer, _ := newTestServer(t, testConfig())

	rr := serve(apiServer, httptest.NewRequest("GET", "/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}
