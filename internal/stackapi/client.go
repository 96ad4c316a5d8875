package stackapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	apiVersionPathConstant            = "/api/v3"
	teamPathTemplateConstant          = "/teams/%s"
	apiKeyHeaderNameConstant          = "X-API-Key"
	impersonationHeaderNameConstant   = "X-Impersonation-Token"
	contentTypeHeaderNameConstant     = "Content-Type"
	acceptHeaderNameConstant          = "Accept"
	jsonContentTypeConstant           = "application/json"
	userAgentHeaderNameConstant       = "User-Agent"
	userAgentValueConstant            = "stackmigrate/1.0"
	pageQueryParameterConstant        = "page"
	pageSizeQueryParameterConstant    = "pageSize"
	defaultPageSizeConstant           = 100
	maximumErrorBodyBytesConstant     = 2048
	baseURLFieldNameConstant          = "base_url"
	accessTokenFieldNameConstant      = "access_token"
	proxyURLFieldNameConstant         = "proxy_url"
	requiredValueMessageConstant      = "value required"
	invalidURLMessageTemplateConstant = "invalid URL: %v"
	unsupportedSchemeMessageConstant  = "URL must use http or https"
	requestCreationErrorTemplate      = "unable to create request: %w"
	bearerTokenTypeConstant           = "Bearer"
	httpSchemeConstant                = "http"
	httpsSchemeConstant               = "https"
	pathSeparatorConstant             = "/"
)

// ClientConfiguration describes how to reach one knowledge-base instance.
type ClientConfiguration struct {
	BaseURL     string
	AccessToken string
	APIKey      string
	Team        string
	ProxyURL    string
	VerifyTLS   bool
	Timeout     time.Duration
	PageSize    int
	// BaseTransport replaces the default transport beneath the bearer-token layer. Proxy and TLS
	// settings are ignored when it is set.
	BaseTransport http.RoundTripper
}

// Client talks to the knowledge-base REST API on behalf of one instance.
type Client struct {
	httpClient *http.Client
	apiPrefix  string
	apiKey     string
	pageSize   int
}

// NewClient validates the configuration and builds an authenticated client.
func NewClient(configuration ClientConfiguration) (*Client, error) {
	baseURL, baseURLError := parseServiceURL(baseURLFieldNameConstant, configuration.BaseURL)
	if baseURLError != nil {
		return nil, baseURLError
	}

	accessToken := strings.TrimSpace(configuration.AccessToken)
	if len(accessToken) == 0 {
		return nil, InvalidInputError{FieldName: accessTokenFieldNameConstant, Message: requiredValueMessageConstant}
	}

	baseTransport := configuration.BaseTransport
	if baseTransport == nil {
		builtTransport, transportError := buildTransport(configuration)
		if transportError != nil {
			return nil, transportError
		}
		baseTransport = builtTransport
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   bearerTokenTypeConstant,
	})

	httpClient := &http.Client{
		Transport: &oauth2.Transport{Source: tokenSource, Base: baseTransport},
		Timeout:   configuration.Timeout,
	}

	apiPrefix := strings.TrimSuffix(baseURL.String(), pathSeparatorConstant) + apiVersionPathConstant
	if team := strings.TrimSpace(configuration.Team); len(team) > 0 {
		apiPrefix += fmt.Sprintf(teamPathTemplateConstant, url.PathEscape(team))
	}

	pageSize := configuration.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSizeConstant
	}

	return &Client{
		httpClient: httpClient,
		apiPrefix:  apiPrefix,
		apiKey:     strings.TrimSpace(configuration.APIKey),
		pageSize:   pageSize,
	}, nil
}

func buildTransport(configuration ClientConfiguration) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyValue := strings.TrimSpace(configuration.ProxyURL); len(proxyValue) > 0 {
		proxyURL, proxyError := parseServiceURL(proxyURLFieldNameConstant, proxyValue)
		if proxyError != nil {
			return nil, proxyError
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	if !configuration.VerifyTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	return transport, nil
}

func parseServiceURL(fieldName string, rawValue string) (*url.URL, error) {
	trimmedValue := strings.TrimSpace(rawValue)
	if len(trimmedValue) == 0 {
		return nil, InvalidInputError{FieldName: fieldName, Message: requiredValueMessageConstant}
	}

	parsedURL, parseError := url.Parse(trimmedValue)
	if parseError != nil {
		return nil, InvalidInputError{FieldName: fieldName, Message: fmt.Sprintf(invalidURLMessageTemplateConstant, parseError)}
	}
	if parsedURL.Scheme != httpSchemeConstant && parsedURL.Scheme != httpsSchemeConstant {
		return nil, InvalidInputError{FieldName: fieldName, Message: unsupportedSchemeMessageConstant}
	}

	return parsedURL, nil
}

type apiRequest struct {
	operation     OperationName
	method        string
	path          string
	query         url.Values
	payload       any
	impersonation *ImpersonationToken
}

func (client *Client) execute(executionContext context.Context, request apiRequest, target any) error {
	var requestBody io.Reader
	if request.payload != nil {
		encodedPayload, encodingError := json.Marshal(request.payload)
		if encodingError != nil {
			return PayloadEncodingError{Operation: request.operation, Cause: encodingError}
		}
		requestBody = bytes.NewReader(encodedPayload)
	}

	requestURL := client.apiPrefix + request.path
	if len(request.query) > 0 {
		requestURL += "?" + request.query.Encode()
	}

	httpRequest, requestError := http.NewRequestWithContext(executionContext, request.method, requestURL, requestBody)
	if requestError != nil {
		return OperationError{Operation: request.operation, Cause: fmt.Errorf(requestCreationErrorTemplate, requestError)}
	}

	httpRequest.Header.Set(acceptHeaderNameConstant, jsonContentTypeConstant)
	httpRequest.Header.Set(userAgentHeaderNameConstant, userAgentValueConstant)
	if request.payload != nil {
		httpRequest.Header.Set(contentTypeHeaderNameConstant, jsonContentTypeConstant)
	}
	if len(client.apiKey) > 0 {
		httpRequest.Header.Set(apiKeyHeaderNameConstant, client.apiKey)
	}
	if request.impersonation != nil {
		httpRequest.Header.Set(impersonationHeaderNameConstant, request.impersonation.Value)
	}

	response, responseError := client.httpClient.Do(httpRequest)
	if responseError != nil {
		return OperationError{Operation: request.operation, Cause: responseError}
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		errorBody, _ := io.ReadAll(io.LimitReader(response.Body, maximumErrorBodyBytesConstant))
		return OperationError{
			Operation: request.operation,
			Cause:     StatusError{StatusCode: response.StatusCode, Body: strings.TrimSpace(string(errorBody))},
		}
	}

	if target == nil {
		return nil
	}

	if decodingError := json.NewDecoder(response.Body).Decode(target); decodingError != nil {
		if errors.Is(decodingError, io.EOF) {
			decodingError = io.ErrUnexpectedEOF
		}
		return ResponseDecodingError{Operation: request.operation, Cause: decodingError}
	}

	return nil
}

// listAll walks every page of a paged collection in server order.
func listAll[Item any](executionContext context.Context, client *Client, operation OperationName, path string) ([]Item, error) {
	collected := make([]Item, 0)
	for pageNumber := 1; ; pageNumber++ {
		query := url.Values{}
		query.Set(pageQueryParameterConstant, strconv.Itoa(pageNumber))
		query.Set(pageSizeQueryParameterConstant, strconv.Itoa(client.pageSize))

		var page pagedResponse[Item]
		requestError := client.execute(executionContext, apiRequest{
			operation: operation,
			method:    http.MethodGet,
			path:      path,
			query:     query,
		}, &page)
		if requestError != nil {
			return nil, requestError
		}

		collected = append(collected, page.Items...)

		if len(page.Items) == 0 || pageNumber >= page.TotalPages {
			return collected, nil
		}
	}
}
