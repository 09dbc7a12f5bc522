package market

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/IlyasAtabaev731/barter-market/internal/domain/models"
	"github.com/IlyasAtabaev731/barter-market/internal/lib/sanitize"
	"github.com/IlyasAtabaev731/barter-market/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxUsernameLen = 32
	// bcrypt refuses longer input.
	maxPasswordBytes = 72
)

// Community covers accounts, profiles and the friend graph.
type Community struct {
	log     *slog.Logger
	users   UserStore
	catalog *Catalog
	cost    int
}

func NewCommunity(log *slog.Logger, users UserStore, catalog *Catalog) *Community {
	return &Community{
		log:     log,
		users:   users,
		catalog: catalog,
		cost:    bcrypt.DefaultCost,
	}
}

func (c *Community) SignUp(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, invalid("username", "username is required")
	}
	if len(username) > maxUsernameLen || strings.ContainsAny(username, "/?#<>\"' \t") {
		return nil, invalid("username", "username must be at most 32 characters with no spaces, slashes or quotes")
	}
	if password == "" {
		return nil, invalid("password", "password is required")
	}
	if len(password) > maxPasswordBytes {
		return nil, invalid("password", "password must be at most 72 bytes")
	}

	_, err := c.users.UserByName(ctx, username)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if err != nil {
		c.log.Error("Failed to hash password", "error", err)
		return nil, err
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(passHash),
		Pic:          models.DefaultPic,
		Friends:      []string{},
		Items:        []string{},
		CreatedAt:    time.Now().UTC(),
	}

	id, err := c.users.SaveUser(ctx, user)
	if errors.Is(err, storage.ErrUserExists) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, err
	}
	user.ID = id

	c.log.Info("Register new user", slog.String("username", username))

	return user, nil
}

func (c *Community) LogIn(ctx context.Context, username, password string) (*models.User, error) {
	user, err := c.users.UserByName(ctx, strings.TrimSpace(username))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFound("user", username)
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (c *Community) User(ctx context.Context, id string) (*models.User, error) {
	user, err := c.users.UserByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFound("user", id)
	}
	return user, err
}

type Profile struct {
	User     *models.User
	Items    []models.Item
	IsSelf   bool
	IsFriend bool
}

// Profile returns the user's own profile with every item they own.
func (c *Community) Profile(ctx context.Context, id string) (*Profile, error) {
	user, err := c.User(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := c.catalog.ListByOwner(ctx, id)
	if err != nil {
		return nil, err
	}

	return &Profile{User: user, Items: items, IsSelf: true}, nil
}

// ViewUser returns another user's profile as seen by viewerID: only public
// items, plus whether the viewer follows them. IsSelf is set when the
// viewer looks at their own name.
func (c *Community) ViewUser(ctx context.Context, viewerID, username string) (*Profile, error) {
	user, err := c.users.UserByName(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFound("user", username)
	}
	if err != nil {
		return nil, err
	}
	if user.ID == viewerID {
		return &Profile{User: user, IsSelf: true}, nil
	}

	items, err := c.catalog.ListPublicByOwner(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	friend, err := c.IsFriend(ctx, viewerID, user.ID)
	if err != nil {
		return nil, err
	}

	return &Profile{User: user, Items: items, IsFriend: friend}, nil
}

func (c *Community) UpdateProfile(ctx context.Context, id, bio, pic string) error {
	pic = strings.TrimSpace(pic)
	if pic == "" {
		pic = models.DefaultPic
	}
	if !sanitize.URL(pic) {
		return invalid("pic", "picture must be an http:// or https:// URL")
	}

	err := c.users.UpdateProfile(ctx, id, sanitize.Text(bio), pic)
	if errors.Is(err, storage.ErrNotFound) {
		return notFound("user", id)
	}
	return err
}

// AddFriend adds the user named otherUsername to selfID's friend set. The
// edge is one-way.
func (c *Community) AddFriend(ctx context.Context, selfID, otherUsername string) error {
	other, err := c.users.UserByName(ctx, otherUsername)
	if errors.Is(err, storage.ErrNotFound) {
		return notFound("user", otherUsername)
	}
	if err != nil {
		return err
	}
	if other.ID == selfID {
		return invalid("friend", "you cannot add yourself as a friend")
	}

	err = c.users.AddFriend(ctx, selfID, other.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return notFound("user", selfID)
	}
	if err != nil {
		return err
	}

	c.log.Info("Friend added", slog.String("user", selfID), slog.String("friend", other.ID))
	return nil
}

func (c *Community) IsFriend(ctx context.Context, selfID, otherID string) (bool, error) {
	self, err := c.User(ctx, selfID)
	if err != nil {
		return false, err
	}
	return self.HasFriend(otherID), nil
}

// Friends lists the users selfID has added. Friend ids that no longer
// resolve are skipped.
func (c *Community) Friends(ctx context.Context, selfID string) ([]models.User, error) {
	self, err := c.User(ctx, selfID)
	if err != nil {
		return nil, err
	}
	if len(self.Friends) == 0 {
		return []models.User{}, nil
	}

	return c.users.UsersByIDs(ctx, self.Friends)
}
