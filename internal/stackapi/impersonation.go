package stackapi

import (
	"context"
	"net/http"
	"strings"
)

const (
	impersonationTokensPathConstant         = "/impersonation/tokens"
	impersonationTokenOperationNameConstant = OperationName("RequestImpersonationToken")
	emptyImpersonationTokenMessageConstant  = "impersonation token missing from response"
	impersonationTokenFieldNameConstant     = "token"
)

type impersonationTokenRequest struct {
	AccountID int `json:"accountId"`
}

type impersonationTokenResponse struct {
	Token string `json:"token"`
}

// RequestImpersonationToken obtains a credential for accountID. The identifier is sent unchanged,
// including non-positive sentinels; the knowledge base decides whether it is valid.
func (client *Client) RequestImpersonationToken(executionContext context.Context, accountID int) (ImpersonationToken, error) {
	var response impersonationTokenResponse
	requestError := client.execute(executionContext, apiRequest{
		operation: impersonationTokenOperationNameConstant,
		method:    http.MethodPost,
		path:      impersonationTokensPathConstant,
		payload:   impersonationTokenRequest{AccountID: accountID},
	}, &response)
	if requestError != nil {
		return ImpersonationToken{}, requestError
	}

	tokenValue := strings.TrimSpace(response.Token)
	if len(tokenValue) == 0 {
		return ImpersonationToken{}, OperationError{
			Operation: impersonationTokenOperationNameConstant,
			Cause:     InvalidInputError{FieldName: impersonationTokenFieldNameConstant, Message: emptyImpersonationTokenMessageConstant},
		}
	}

	return ImpersonationToken{AccountID: accountID, Value: tokenValue}, nil
}
