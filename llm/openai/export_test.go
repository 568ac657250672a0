package openai

type APIClient = apiClient

// NewWithAPIClient creates a client with a custom API client for testing
func NewWithAPIClient(client apiClient, options ...Option) *Client {
	c := newClient(options...)
	c.apiClient = client
	return c
}

var APIErrorOptions = apiErrorOptions

const ZeroTemperature float32 = zeroTemperature
