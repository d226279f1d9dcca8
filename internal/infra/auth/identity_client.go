package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// IdentityClient talks to the hosted identity provider. Role lookups are
// made with the caller's own bearer token, never an elevated service
// credential, so row-level policies on the roles relation stay in force.
type IdentityClient struct {
	http    *resty.Client
	baseURL string
	apiKey  string
}

type identityUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type roleRow struct {
	Role string `json:"role"`
}

func NewIdentityClient(baseURL, apiKey string) *IdentityClient {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetHeader("apikey", apiKey)

	return &IdentityClient{
		http:    client,
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

func (c *IdentityClient) ResolveUser(ctx context.Context, token string) (string, error) {
	var user identityUser

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token).
		SetResult(&user).
		Get(c.baseURL + "/auth/v1/user")
	if err != nil {
		return "", fmt.Errorf("identity provider unreachable: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("identity provider rejected token: status %d", resp.StatusCode())
	}
	if user.ID == "" {
		return "", fmt.Errorf("identity provider returned no user id")
	}

	return user.ID, nil
}

func (c *IdentityClient) FetchRoles(ctx context.Context, token, userID string) ([]string, error) {
	var rows []roleRow

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token).
		SetQueryParam("user_id", "eq."+userID).
		SetQueryParam("select", "role").
		SetResult(&rows).
		Get(c.baseURL + "/rest/v1/user_roles")
	if err != nil {
		return nil, fmt.Errorf("role lookup failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("role lookup rejected: status %d", resp.StatusCode())
	}

	roles := make([]string, 0, len(rows))
	for _, row := range rows {
		roles = append(roles, row.Role)
	}

	return roles, nil
}
