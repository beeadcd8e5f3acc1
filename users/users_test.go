package users_test

import (
	"testing"

	"github.com/jrsteele09/go-match-client/users"
	"github.com/stretchr/testify/require"
)

func TestDisplayName(t *testing.T) {
	require.Equal(t, "Ada Lovelace", (&users.User{FirstName: "Ada", LastName: "Lovelace", Username: "ada"}).DisplayName())
	require.Equal(t, "Ada", (&users.User{FirstName: "Ada"}).DisplayName())
	require.Equal(t, "ada", (&users.User{Username: "ada", Email: "ada@example.com"}).DisplayName())
	require.Equal(t, "ada@example.com", (&users.User{Email: "ada@example.com"}).DisplayName())
}

func TestPlaysSport(t *testing.T) {
	u := &users.User{Sports: []string{"Football", "padel"}}
	require.True(t, u.PlaysSport("football"))
	require.True(t, u.PlaysSport("PADEL"))
	require.False(t, u.PlaysSport("tennis"))
}
