// Package srt talks to the SRT mobile API.
package srt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/example/rail-scheduler/internal/rail"
)

const (
	defaultBaseURL      = "https://app.srail.or.kr:443"
	defaultNetFunnelURL = "https://nf.letskorail.com/ts.wseq"
	defaultUA           = "Mozilla/5.0 (Linux; Android 15; SM-S912N Build/AP3A.240905.015.A2; wv) AppleWebKit/537.36 (KHTML, like Gecko) Version/4.0 Chrome/136.0.7103.125 Mobile Safari/537.36SRT-APP-Android V.2.0.38"
)

const (
	pathLogin     = "/apb/selectListApb01080_n.do"
	pathSearch    = "/ara/selectListAra10007_n.do"
	pathReserve   = "/arc/selectListArc05013_n.do"
	pathTickets   = "/atc/selectListAtc14016_n.do"
	pathTicketInf = "/ard/selectListArd02019_n.do"
	pathCancel    = "/ard/selectListArd02045_n.do"
	pathRefund    = "/atc/selectListAtc02063_n.do"
	pathPayment   = "/ata/selectListAta09036_n.do"
)

// Config points the client at an SRT deployment. Zero values use the
// public endpoints.
type Config struct {
	BaseURL      string
	NetFunnelURL string
	Timeout      time.Duration
}

// Authenticator logs in to SRT.
type Authenticator struct {
	cfg Config
}

func New(cfg Config) *Authenticator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.NetFunnelURL == "" {
		cfg.NetFunnelURL = defaultNetFunnelURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Authenticator{cfg: cfg}
}

func (a *Authenticator) Provider() rail.Provider { return rail.ProviderSRT }

// Authenticate returns a fresh session; every call starts from an empty
// cookie jar.
func (a *Authenticator) Authenticate(ctx context.Context, creds rail.Credentials) (rail.Session, error) {
	c := &Client{cfg: a.cfg}
	c.resetHTTP()
	if err := c.login(ctx, creds); err != nil {
		return nil, err
	}
	return c, nil
}

// Client is one logged-in SRT session.
type Client struct {
	cfg Config
	hc  *http.Client

	loggedIn     bool
	membershipNo string
	name         string
	phone        string
	nfKey        string
}

func (c *Client) Provider() rail.Provider { return rail.ProviderSRT }
func (c *Client) LoggedIn() bool          { return c.loggedIn }

// Clear drops the cached NetFunnel key so the next search queues again.
func (c *Client) Clear() {
	c.nfKey = ""
}

func (c *Client) resetHTTP() {
	jar, _ := cookiejar.New(nil)
	c.hc = &http.Client{Timeout: c.cfg.Timeout, Jar: jar}
}

var (
	emailRe = regexp.MustCompile(`[^@]+@[^@]+\.[^@]+`)
	phoneRe = regexp.MustCompile(`^(\d{3})-(\d{3,4})-(\d{4})$`)
)

func loginType(id string) (string, string) {
	switch {
	case emailRe.MatchString(id):
		return "2", id
	case phoneRe.MatchString(id):
		return "3", strings.ReplaceAll(id, "-", "")
	}
	return "1", id
}

func (c *Client) login(ctx context.Context, creds rail.Credentials) error {
	kind, id := loginType(creds.ID)
	form := url.Values{
		"auth":          {"Y"},
		"page":          {"menu"},
		"deviceKey":     {"-"},
		"customerYn":    {""},
		"login_referer": {c.cfg.BaseURL + "/main/main.do"},
		"srchDvCd":      {kind},
		"srchDvNm":      {id},
		"hmpgPwdCphd":   {creds.Password},
	}
	body, err := c.post(ctx, pathLogin, form)
	if err != nil {
		return err
	}
	text := string(body)
	for _, reject := range []string{"존재하지않는 회원입니다", "비밀번호 오류", "Your IP Address Blocked"} {
		if strings.Contains(text, reject) {
			return rail.AuthError(rail.ProviderSRT, "", reject)
		}
	}
	var res struct {
		UserMap struct {
			MembershipNo string `json:"MB_CRD_NO"`
			Name         string `json:"CUST_NM"`
			Phone        string `json:"MBL_PHONE"`
		} `json:"userMap"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return rail.DecodeError(rail.ProviderSRT, fmt.Errorf("parse login: %w", err))
	}
	if res.UserMap.MembershipNo == "" {
		return rail.AuthError(rail.ProviderSRT, "", "login rejected")
	}
	c.loggedIn = true
	c.membershipNo = res.UserMap.MembershipNo
	c.name = res.UserMap.Name
	c.phone = res.UserMap.Phone
	return nil
}

type resultMap struct {
	Result  string `json:"strResult"`
	Code    string `json:"msgCd"`
	Message string `json:"msgTxt"`
}

// decode parses an SRT envelope into out and reports backend failures.
func decode(body []byte, out any) error {
	var env struct {
		ResultMap []resultMap `json:"resultMap"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return rail.DecodeError(rail.ProviderSRT, err)
	}
	if len(env.ResultMap) > 0 && env.ResultMap[0].Result == "FAIL" {
		r := env.ResultMap[0]
		return rail.BackendError(rail.ProviderSRT, r.Code, r.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return rail.DecodeError(rail.ProviderSRT, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("user-agent", defaultUA)
	req.Header.Set("accept", "application/json")
	req.Header.Set("content-type", "application/x-www-form-urlencoded; charset=UTF-8")
	return c.send(req)
}

func (c *Client) send(req *http.Request) ([]byte, error) {
	res, err := c.hc.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}
		return nil, rail.TransportError(rail.ProviderSRT, err)
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, rail.TransportError(rail.ProviderSRT, err)
	}
	if res.StatusCode >= 500 {
		return nil, rail.TransportError(rail.ProviderSRT, fmt.Errorf("srt http %d", res.StatusCode))
	}
	return b, nil
}
