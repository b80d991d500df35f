// Package mojang resolves Minecraft usernames against the Mojang profile API.
package mojang

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"socialcredit-api/internal/model"
	"socialcredit-api/internal/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultBaseURL is the public Mojang API.
const DefaultBaseURL = "https://api.mojang.com"

// Client looks up Minecraft profiles by username.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client with the given base URL and request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type profileResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Lookup fetches the profile for username. A missing profile is reported as
// Exists=false with a nil error; transport failures and unexpected statuses
// return an error together with a profile describing it.
func (c *Client) Lookup(ctx context.Context, username string) (profile *model.Profile, err error) {
	ctx, span := tracing.StartSpan(ctx, "mojang.lookup", attribute.String("minecraft.username", username))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "lookup failed")
		} else if profile != nil {
			span.SetAttributes(attribute.Bool("minecraft.exists", profile.Exists))
		}
		span.End()
	}()

	endpoint := c.baseURL + "/users/profiles/minecraft/" + url.PathEscape(username)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &model.Profile{Error: err.Error()}, fmt.Errorf("mojang request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body profileResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return &model.Profile{Error: err.Error()}, fmt.Errorf("decode profile: %w", err)
		}
		return &model.Profile{Exists: true, UUID: body.ID, Username: body.Name}, nil
	case http.StatusNoContent, http.StatusNotFound:
		return &model.Profile{Exists: false}, nil
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
		return &model.Profile{Error: msg}, fmt.Errorf("mojang: %s", msg)
	}
}
