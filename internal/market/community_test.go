package market

import (
	"context"
	"strings"
	"testing"

	"github.com/IlyasAtabaev731/barter-market/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignUpAndLogIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.community.SignUp(ctx, "marc1", "password")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, models.DefaultPic, u.Pic)
	assert.Empty(t, u.Bio)
	assert.Empty(t, u.Friends)
	assert.NotEqual(t, "password", u.PasswordHash)

	logged, err := f.community.LogIn(ctx, "marc1", "password")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)

	_, err = f.community.LogIn(ctx, "marc1", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.community.LogIn(ctx, "nobody", "password")
	assert.True(t, IsNotFound(err))
}

func TestSignUpRejectsTakenAndMalformedNames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "marc1")

	_, err := f.community.SignUp(ctx, "marc1", "other")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	for _, name := range []string{"", "   ", "has space", "a/b", "<script>"} {
		_, err := f.community.SignUp(ctx, name, "password")
		assert.True(t, IsValidation(err), "username %q", name)
	}

	_, err = f.community.SignUp(ctx, "fresh", "")
	assert.True(t, IsValidation(err))
}

func TestSignUpPasswordLength(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.community.SignUp(ctx, "long", strings.Repeat("x", 73))
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	_, err = f.community.SignUp(ctx, "multibyte", strings.Repeat("é", 37))
	assert.True(t, IsValidation(err))

	_, err = f.community.LogIn(ctx, "long", strings.Repeat("x", 73))
	assert.True(t, IsNotFound(err))

	u, err := f.community.SignUp(ctx, "exact", strings.Repeat("x", 72))
	require.NoError(t, err)

	_, err = f.community.LogIn(ctx, "exact", strings.Repeat("x", 72))
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
}

func TestAddFriend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice")
	b := f.user(t, "bob")

	require.NoError(t, f.community.AddFriend(ctx, a.ID, "bob"))
	require.NoError(t, f.community.AddFriend(ctx, a.ID, "bob"))

	me, err := f.community.User(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, me.Friends)

	yes, err := f.community.IsFriend(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, yes)

	back, err := f.community.IsFriend(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, back, "friendship must not be reciprocal")

	assert.True(t, IsNotFound(f.community.AddFriend(ctx, a.ID, "ghost")))
	assert.True(t, IsValidation(f.community.AddFriend(ctx, a.ID, "alice")))
}

func TestFriendsList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice")
	f.user(t, "bob")
	f.user(t, "carol")

	empty, err := f.community.Friends(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, f.community.AddFriend(ctx, a.ID, "bob"))
	require.NoError(t, f.community.AddFriend(ctx, a.ID, "carol"))

	friends, err := f.community.Friends(ctx, a.ID)
	require.NoError(t, err)
	var got []string
	for _, u := range friends {
		got = append(got, u.Username)
	}
	assert.ElementsMatch(t, []string{"bob", "carol"}, got)
}

func TestViewUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice")
	b := f.user(t, "bob")
	f.item(t, b, "pub", "1")
	priv := f.item(t, b, "priv", "1")
	require.NoError(t, f.catalog.SetVisibility(ctx, b.ID, priv.ID, false))

	p, err := f.community.ViewUser(ctx, a.ID, "bob")
	require.NoError(t, err)
	assert.False(t, p.IsSelf)
	assert.False(t, p.IsFriend)
	assert.Equal(t, []string{"pub"}, names(p.Items))

	require.NoError(t, f.community.AddFriend(ctx, a.ID, "bob"))
	p, err = f.community.ViewUser(ctx, a.ID, "bob")
	require.NoError(t, err)
	assert.True(t, p.IsFriend)

	self, err := f.community.ViewUser(ctx, a.ID, "alice")
	require.NoError(t, err)
	assert.True(t, self.IsSelf)

	_, err = f.community.ViewUser(ctx, a.ID, "ghost")
	assert.True(t, IsNotFound(err))
}

func TestProfileShowsAllOwnItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice")
	f.item(t, a, "pub", "1")
	priv := f.item(t, a, "priv", "1")
	require.NoError(t, f.catalog.SetVisibility(ctx, a.ID, priv.ID, false))

	p, err := f.community.Profile(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, p.IsSelf)
	assert.ElementsMatch(t, []string{"pub", "priv"}, names(p.Items))
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice")

	require.NoError(t, f.community.UpdateProfile(ctx, a.ID, "<em>hi</em> there", "https://example.com/me.png"))
	u, err := f.community.User(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi there", u.Bio)
	assert.Equal(t, "https://example.com/me.png", u.Pic)

	require.NoError(t, f.community.UpdateProfile(ctx, a.ID, "", ""))
	u, err = f.community.User(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPic, u.Pic)

	assert.True(t, IsValidation(f.community.UpdateProfile(ctx, a.ID, "", "ftp://x/y.png")))
	assert.True(t, IsNotFound(f.community.UpdateProfile(ctx, "missing", "", "")))
}
