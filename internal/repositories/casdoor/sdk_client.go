package casdoor

import "github.com/casdoor/casdoor-go-sdk/casdoorsdk"

type oauth2Token struct {
	AccessToken string
}

// sdkClient adapts *casdoorsdk.Client to casdoorAPI
type sdkClient struct {
	*casdoorsdk.Client
}

func (c sdkClient) GetOAuthToken(code string, state string) (*oauth2Token, error) {
	token, err := c.Client.GetOAuthToken(code, state)
	if err != nil {
		return nil, err
	}
	if token == nil || token.AccessToken == "" {
		return nil, errNoToken
	}
	return &oauth2Token{AccessToken: token.AccessToken}, nil
}
