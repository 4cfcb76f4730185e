// Package oauthsvc bridges external OAuth identities to local accounts.
package oauthsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/tshilobo/soko/core"
	"github.com/tshilobo/soko/core/user"
)

var ErrInvalidToken = errors.New("invalid access token")

// Service authenticates a provider access token and returns the external
// identity it belongs to.
type Service interface {
	Authenticate(ctx context.Context, accessToken string) (user.ExternalUser, error)
}

type lineService struct {
	verifyURL  string
	profileURL string
	channelID  string
	client     *http.Client
}

var _ Service = (*lineService)(nil)

func NewLineService(conf *core.Config) Service {
	return &lineService{
		verifyURL:  conf.Line.VerifyURL,
		profileURL: conf.Line.ProfileURL,
		channelID:  conf.Line.ChannelID,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Authenticate verifies the token against LINE's verify endpoint, checks it
// was issued for our channel, then fetches the owner's profile.
func (svc *lineService) Authenticate(ctx context.Context, accessToken string) (user.ExternalUser, error) {
	if err := svc.verifyToken(ctx, accessToken); err != nil {
		return user.ExternalUser{}, err
	}
	return svc.getProfile(ctx, accessToken)
}

func (svc *lineService) verifyToken(ctx context.Context, accessToken string) error {
	q := url.Values{"access_token": {accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, svc.verifyURL+"?"+q.Encode(), nil)
	if err != nil {
		return errors.Wrap(err, "building verify request")
	}

	res, err := svc.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "verifying access token")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return ErrInvalidToken
	}

	var body struct {
		ClientID  string `json:"client_id"`
		ExpiresIn int64  `json:"expires_in"`
	}
	if err = json.NewDecoder(res.Body).Decode(&body); err != nil {
		return errors.Wrap(err, "decoding verify response")
	}
	if body.ClientID != svc.channelID || body.ExpiresIn <= 0 {
		return ErrInvalidToken
	}
	return nil
}

func (svc *lineService) getProfile(ctx context.Context, accessToken string) (user.ExternalUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, svc.profileURL, nil)
	if err != nil {
		return user.ExternalUser{}, errors.Wrap(err, "building profile request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	res, err := svc.client.Do(req)
	if err != nil {
		return user.ExternalUser{}, errors.Wrap(err, "fetching profile")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return user.ExternalUser{}, ErrInvalidToken
	}

	var body struct {
		UserID      string `json:"userId"`
		DisplayName string `json:"displayName"`
		Email       string `json:"email"`
	}
	if err = json.NewDecoder(res.Body).Decode(&body); err != nil {
		return user.ExternalUser{}, errors.Wrap(err, "decoding profile response")
	}
	if body.UserID == "" {
		return user.ExternalUser{}, ErrInvalidToken
	}

	return user.ExternalUser{
		Provider:    user.ProviderLine,
		ProviderUID: body.UserID,
		Name:        strings.TrimSpace(body.DisplayName),
		Email:       strings.TrimSpace(strings.ToLower(body.Email)),
	}, nil
}
