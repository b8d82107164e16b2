package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// RedeemInvite redeems an invite token to create a new user account.
// This is a public endpoint (no authentication required).
func (c *SDKClient) RedeemInvite(ctx context.Context, req RedeemInviteRequest) (*RedeemInviteResponse, error) {
	data := url.Values{}
	data.Set("invite_token", req.InviteToken)
	data.Set("username", req.Username)
	data.Set("password", req.Password)
	data.Set("client_id", req.ClientID)

	resp, err := c.postForm(ctx, "/v1/invites/redeem", data)
	if err != nil {
		return nil, err
	}

	var redeemResp RedeemInviteResponse
	if err := decodeJSON(resp, &redeemResp, http.StatusOK); err != nil {
		return nil, err
	}
	return &redeemResp, nil
}
