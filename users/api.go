package users

import (
	"context"
	"fmt"
)

const RouteMe = "/users/me"

// JSONGetter is the part of apiclient.Client the users API needs.
type JSONGetter interface {
	GetJSON(ctx context.Context, path string, out any) error
}

// API wraps the user endpoints. It must be given the authenticated client.
type API struct {
	client JSONGetter
}

func NewAPI(client JSONGetter) *API {
	return &API{client: client}
}

// Me fetches the signed-in user's profile.
func (a *API) Me(ctx context.Context) (*User, error) {
	var u User
	if err := a.client.GetJSON(ctx, RouteMe, &u); err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}
	if u.ID == "" {
		return nil, fmt.Errorf("get current user: response has no user id")
	}
	return &u, nil
}
