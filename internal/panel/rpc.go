package panel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/webship/webship/internal/errors"
	"github.com/webship/webship/internal/logger"
)

// RPCClient is the Client implementation that talks to the provider's
// JSON-RPC endpoint. Login must succeed before any other call; every
// subsequent request carries the session id as its first parameter.
type RPCClient struct {
	url     string
	http    *http.Client
	session string
	log     logger.Logger
}

// NewRPCClient creates a client for the given endpoint URL.
func NewRPCClient(url string) *RPCClient {
	return &RPCClient{
		url:  url,
		http: &http.Client{Timeout: 30 * time.Second},
		log:  logger.NewEnvLogger("[panel]"),
	}
}

type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// call performs one round trip. out, when non-nil, receives the decoded
// result. Params are sent verbatim; the session id is prepended for every
// method except login.
func (c *RPCClient) call(method string, out any, params ...any) error {
	if method != "login" {
		if c.session == "" {
			return errors.New(errors.ErrPanel,
				"Control-panel call '"+method+"' before login", "")
		}
		params = append([]any{c.session}, params...)
	}

	body, err := json.Marshal(rpcRequest{Method: method, Params: params})
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrPanel,
			"Failed to encode control-panel request", "")
	}
	c.log.Debug("call %s", method)

	resp, err := c.http.Post(c.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrPanel,
			"Control-panel request failed: "+method,
			"Check panel_url and network connectivity")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return errors.New(errors.ErrPanel,
			fmt.Sprintf("Control-panel returned HTTP %d for %s", resp.StatusCode, method), "")
	}

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return errors.WrapWithCode(err, errors.ErrPanel,
			"Failed to decode control-panel response for "+method, "")
	}
	if decoded.Error != "" {
		return errors.New(errors.ErrPanel,
			"Control-panel error from "+method+": "+decoded.Error, "")
	}
	if out != nil {
		if err := json.Unmarshal(decoded.Result, out); err != nil {
			return errors.WrapWithCode(err, errors.ErrPanel,
				"Unexpected control-panel result shape for "+method, "")
		}
	}
	return nil
}

// rawRecord covers the union of the fields the provider returns across
// resource kinds. Each list method picks the fields its kind uses.
type rawRecord struct {
	Name       string   `json:"name"`
	Username   string   `json:"username"`
	Domain     string   `json:"domain"`
	Port       int      `json:"port"`
	Machine    string   `json:"machine"`
	Subdomains []string `json:"subdomains"`
}

func (r rawRecord) resource(name string) Resource {
	return Resource{
		Name:       name,
		Port:       r.Port,
		Machine:    r.Machine,
		Subdomains: r.Subdomains,
	}
}

func (c *RPCClient) Login(user, password string) error {
	var result struct {
		SessionID string `json:"session_id"`
	}
	if err := c.call("login", &result, user, password); err != nil {
		return err
	}
	if result.SessionID == "" {
		return errors.New(errors.ErrPanel,
			"Control-panel login returned no session",
			"Check the account name and password")
	}
	c.session = result.SessionID
	return nil
}

func (c *RPCClient) ListApps() ([]Resource, error) {
	var raw []rawRecord
	if err := c.call("list_apps", &raw); err != nil {
		return nil, err
	}
	out := make([]Resource, len(raw))
	for i, r := range raw {
		out[i] = r.resource(r.Name)
	}
	return out, nil
}

func (c *RPCClient) CreateApp(name, appType string, autostart bool, extraInfo string) (Resource, error) {
	var raw rawRecord
	if err := c.call("create_app", &raw, name, appType, autostart, extraInfo); err != nil {
		return Resource{}, err
	}
	return raw.resource(raw.Name), nil
}

func (c *RPCClient) DeleteApp(name string) error {
	return c.call("delete_app", nil, name)
}

func (c *RPCClient) ListDatabases() ([]Resource, error) {
	var raw []rawRecord
	if err := c.call("list_dbs", &raw); err != nil {
		return nil, err
	}
	out := make([]Resource, len(raw))
	for i, r := range raw {
		out[i] = r.resource(r.Name)
	}
	return out, nil
}

func (c *RPCClient) CreateDatabase(name, engine, password string) (Resource, error) {
	var raw rawRecord
	if err := c.call("create_db", &raw, name, engine, password); err != nil {
		return Resource{}, err
	}
	return raw.resource(raw.Name), nil
}

func (c *RPCClient) DeleteDatabase(name, engine string) error {
	return c.call("delete_db", nil, name, engine)
}

func (c *RPCClient) ListDatabaseUsers() ([]Resource, error) {
	var raw []rawRecord
	if err := c.call("list_db_users", &raw); err != nil {
		return nil, err
	}
	out := make([]Resource, len(raw))
	for i, r := range raw {
		out[i] = r.resource(r.Username)
	}
	return out, nil
}

func (c *RPCClient) DeleteDatabaseUser(name, engine string) error {
	return c.call("delete_db_user", nil, name, engine)
}

func (c *RPCClient) ListDomains() ([]Resource, error) {
	var raw []rawRecord
	if err := c.call("list_domains", &raw); err != nil {
		return nil, err
	}
	out := make([]Resource, len(raw))
	for i, r := range raw {
		out[i] = r.resource(r.Domain)
	}
	return out, nil
}

func (c *RPCClient) CreateDomain(domain string, subdomains ...string) (Resource, error) {
	params := make([]any, 0, 1+len(subdomains))
	params = append(params, domain)
	for _, s := range subdomains {
		params = append(params, s)
	}
	var raw rawRecord
	if err := c.call("create_domain", &raw, params...); err != nil {
		return Resource{}, err
	}
	return raw.resource(raw.Domain), nil
}

func (c *RPCClient) DeleteDomain(domain string, subdomains ...string) error {
	params := make([]any, 0, 1+len(subdomains))
	params = append(params, domain)
	for _, s := range subdomains {
		params = append(params, s)
	}
	return c.call("delete_domain", nil, params...)
}

func (c *RPCClient) ListWebsites() ([]Resource, error) {
	var raw []rawRecord
	if err := c.call("list_websites", &raw); err != nil {
		return nil, err
	}
	out := make([]Resource, len(raw))
	for i, r := range raw {
		out[i] = r.resource(r.Name)
	}
	return out, nil
}

func (c *RPCClient) CreateWebsite(name, ip string, https bool, domains []string, mounts ...Mount) (Resource, error) {
	params := []any{name, ip, https, domains}
	for _, m := range mounts {
		params = append(params, []string{m.App, m.Path})
	}
	var raw rawRecord
	if err := c.call("create_website", &raw, params...); err != nil {
		return Resource{}, err
	}
	return raw.resource(raw.Name), nil
}

func (c *RPCClient) DeleteWebsite(name, ip string) error {
	return c.call("delete_website", nil, name, ip)
}

func (c *RPCClient) CreateCronJob(line string) error {
	return c.call("create_cronjob", nil, line)
}

func (c *RPCClient) DeleteCronJob(line string) error {
	return c.call("delete_cronjob", nil, line)
}
