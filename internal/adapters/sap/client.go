// Package sap is the HTTP client for the upstream SAP project API.
package sap

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/schrico/PM-SAP-sub001/internal/domain"
	"github.com/schrico/PM-SAP-sub001/internal/ports"
)

type Config struct {
	BaseURL  string
	APIKey   string
	Username string
	Password string
	Timeout  time.Duration
}

type Client struct {
	baseURL string
	http    *resty.Client
	log     *zerolog.Logger
}

var _ ports.SAPClient = (*Client)(nil)

// New builds a client. An API key takes precedence over basic credentials.
func New(cfg Config, log *zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	c := resty.New().SetTimeout(timeout).SetHeader("Accept", "application/json")
	switch {
	case cfg.APIKey != "":
		c.SetAuthToken(cfg.APIKey)
	case cfg.Username != "":
		c.SetBasicAuth(cfg.Username, cfg.Password)
	}
	return &Client{baseURL: strings.TrimRight(cfg.BaseURL, "/"), http: c, log: log}
}

// StatusError is a non-2xx upstream answer. Client methods return it marked
// with ports.Upstream.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sap %s: %d %s; body: %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

func (c *Client) ListProjects(ctx context.Context) ([]domain.UpstreamProject, error) {
	var resp projectsResponse
	if err := c.get(ctx, "list projects", c.baseURL+"/projects", &resp); err != nil {
		return nil, err
	}
	return resp.validate(c.log), nil
}

func (c *Client) GetSubProjectDetails(ctx context.Context, projectID int64, subProjectID string) (domain.SubProjectDetail, error) {
	var resp detailDTO
	if err := c.get(ctx, "get subproject", c.subProjectURL(projectID, subProjectID), &resp); err != nil {
		return domain.SubProjectDetail{}, err
	}
	return resp.validate(c.log, subProjectID), nil
}

func (c *Client) GetInstructions(ctx context.Context, projectID int64, subProjectID string) ([]domain.Instruction, error) {
	var resp instructionsResponse
	if err := c.get(ctx, "get instructions", c.subProjectURL(projectID, subProjectID)+"/instructions", &resp); err != nil {
		return nil, err
	}
	return resp.validate(), nil
}

func (c *Client) subProjectURL(projectID int64, subProjectID string) string {
	return c.baseURL + "/projects/" + strconv.FormatInt(projectID, 10) + "/subprojects/" + url.PathEscape(subProjectID)
}

func (c *Client) get(ctx context.Context, op, u string, result any) error {
	start := time.Now()
	r, err := c.http.R().SetContext(ctx).SetResult(result).Get(u)
	if err != nil {
		return ports.Upstream(errors.Wrapf(err, "sap %s", op))
	}
	c.log.Debug().Str("op", op).Int("status", r.StatusCode()).Dur("took", time.Since(start)).Msg("sap request")
	if r.StatusCode() == http.StatusNotFound && op != "list projects" {
		return errors.Wrapf(ports.ErrNotFound, "sap %s", op)
	}
	if r.IsError() || r.StatusCode() >= 300 {
		return ports.Upstream(&StatusError{Op: op, StatusCode: r.StatusCode(), Body: abbreviate(r.String(), 512)})
	}
	return nil
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
