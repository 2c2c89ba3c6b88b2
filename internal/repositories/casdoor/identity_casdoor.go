package casdoor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/google/uuid"

	"github.com/campusconnect/event-service/internal/repositories"
)

// CasdoorConfig holds the configuration for Casdoor connection
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

// casdoorAPI is the subset of the SDK client used here
type casdoorAPI interface {
	AddUser(user *casdoorsdk.User) (bool, error)
	DeleteUser(user *casdoorsdk.User) (bool, error)
	GetOAuthToken(code string, state string) (*oauth2Token, error)
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

type IdentityCasdoor struct {
	client casdoorAPI
	config CasdoorConfig
	now    func() time.Time
}

func NewIdentityCasdoor(config CasdoorConfig) repositories.IdentityProvider {
	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.OrganizationName,
		config.ApplicationName,
	)

	return &IdentityCasdoor{
		client: sdkClient{client},
		config: config,
		now:    time.Now,
	}
}

// CreateAccount registers the user in Casdoor. The Casdoor name doubles as the user id.
func (p *IdentityCasdoor) CreateAccount(ctx context.Context, account repositories.NewAccount) (*repositories.IdentityUser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	user := &casdoorsdk.User{
		Owner:       p.config.OrganizationName,
		Name:        id,
		Id:          id,
		Email:       strings.ToLower(strings.TrimSpace(account.Email)),
		DisplayName: account.FullName,
		Password:    account.Password,
		Type:        "normal-user",
		Tag:         string(account.Role),
		CreatedTime: p.now().UTC().Format(time.RFC3339),
		Properties: map[string]string{
			"must_rotate_password": strconv.FormatBool(account.MustRotatePassword),
		},
	}

	ok, err := p.client.AddUser(user)
	if err != nil {
		if isDuplicateUser(err) {
			return nil, fmt.Errorf("casdoor add user: %w", repositories.ErrAccountExists)
		}
		return nil, fmt.Errorf("casdoor add user: %w: %v", repositories.ErrIdentity, err)
	}
	if !ok {
		return nil, fmt.Errorf("casdoor add user rejected: %w", repositories.ErrIdentity)
	}

	return &repositories.IdentityUser{ID: id, Email: user.Email, FullName: user.DisplayName}, nil
}

func (p *IdentityCasdoor) DeleteAccount(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := p.client.DeleteUser(&casdoorsdk.User{Owner: p.config.OrganizationName, Name: userID}); err != nil {
		return fmt.Errorf("casdoor delete user: %w: %v", repositories.ErrIdentity, err)
	}
	return nil
}

func (p *IdentityCasdoor) ExchangeCode(ctx context.Context, code, state string) (*repositories.SessionToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	token, err := p.client.GetOAuthToken(code, state)
	if err != nil {
		return nil, fmt.Errorf("casdoor code exchange: %w: %v", repositories.ErrInvalidToken, err)
	}

	return p.ParseToken(ctx, token.AccessToken)
}

func (p *IdentityCasdoor) ParseToken(ctx context.Context, token string) (*repositories.SessionToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, repositories.ErrInvalidToken
	}

	claims, err := p.client.ParseJwtToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repositories.ErrInvalidToken, err)
	}
	if claims.Id == "" {
		return nil, fmt.Errorf("%w: token has no user id", repositories.ErrInvalidToken)
	}

	session := &repositories.SessionToken{
		AccessToken: token,
		User: repositories.IdentityUser{
			ID:       claims.Id,
			Email:    claims.Email,
			FullName: claims.DisplayName,
		},
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
		if !session.ExpiresAt.After(p.now()) {
			return nil, fmt.Errorf("%w: token expired", repositories.ErrInvalidToken)
		}
	}

	return session, nil
}

func isDuplicateUser(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate")
}

var errNoToken = errors.New("empty token response")
