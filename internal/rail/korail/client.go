// Package korail talks to the Korail (KTX) mobile API.
package korail

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
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
	defaultBaseURL = "https://smart.letskorail.com:443/classes/com.korail.mobile"
	defaultUA      = "Dalvik/2.1.0 (Linux; U; Android 5.1.1; Nexus 4 Build/LMY48T)"

	device  = "AD"
	version = "231231001"
	apiKey  = "korail1234567890"
)

const (
	pathCode        = ".common.code.do"
	pathLogin       = ".login.Login"
	pathSearch      = ".seatMovie.ScheduleView"
	pathReserve     = ".certification.TicketReservation"
	pathReservation = ".reservation.ReservationView"
	pathTickets     = ".myTicket.MyTicketList"
	pathCancel      = ".reservationCancel.ReservationCancelChk"
	pathRefund      = ".refunds.RefundsRequest"
	pathPayment     = ".payment.ReservationPayment"
)

// Messages substituted for well-known result codes. The scheduler matches
// on these.
const (
	msgNeedLogin = "Need to Login"
	msgSoldOut   = "Sold out"
	msgNoResults = "No Results"
)

var codeMessages = map[string]string{
	"P058":      msgNeedLogin,
	"ERR211161": msgSoldOut,
	"P100":      msgNoResults,
	"WRG000000": msgNoResults,
	"WRD000061": msgNoResults,
	"WRT300005": msgNoResults,
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Authenticator logs in to Korail.
type Authenticator struct {
	cfg Config
}

func New(cfg Config) *Authenticator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Authenticator{cfg: cfg}
}

func (a *Authenticator) Provider() rail.Provider { return rail.ProviderKorail }

func (a *Authenticator) Authenticate(ctx context.Context, creds rail.Credentials) (rail.Session, error) {
	c := &Client{cfg: a.cfg}
	c.resetHTTP()
	if err := c.login(ctx, creds); err != nil {
		return nil, err
	}
	return c, nil
}

// Client is one logged-in Korail session.
type Client struct {
	cfg Config
	hc  *http.Client

	loggedIn     bool
	membershipNo string
	name         string
	email        string
	phone        string
}

func (c *Client) Provider() rail.Provider { return rail.ProviderKorail }
func (c *Client) LoggedIn() bool          { return c.loggedIn }

// Clear is a no-op: Korail keeps no queue state on the client.
func (c *Client) Clear() {}

func (c *Client) resetHTTP() {
	jar, _ := cookiejar.New(nil)
	c.hc = &http.Client{Timeout: c.cfg.Timeout, Jar: jar}
}

var (
	emailRe = regexp.MustCompile(`[^@]+@[^@]+\.[^@]+`)
	phoneRe = regexp.MustCompile(`^(\d{3})-(\d{3,4})-(\d{4})$`)
)

func inputFlag(id string) string {
	switch {
	case emailRe.MatchString(id):
		return "5"
	case phoneRe.MatchString(id):
		return "4"
	}
	return "2"
}

func (c *Client) login(ctx context.Context, creds rail.Credentials) error {
	idx, key, err := c.loginKey(ctx)
	if err != nil {
		return err
	}
	pwd, err := encryptPassword(creds.Password, key)
	if err != nil {
		return fmt.Errorf("encrypt password: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, pathLogin, url.Values{
		"Device":      {device},
		"Version":     {version},
		"txtInputFlg": {inputFlag(creds.ID)},
		"txtMemberNo": {creds.ID},
		"txtPwd":      {pwd},
		"idx":         {idx},
	})
	if err != nil {
		return err
	}
	var res struct {
		MembershipNo string `json:"strMbCrdNo"`
		Name         string `json:"strCustNm"`
		Email        string `json:"strEmailAdr"`
		Phone        string `json:"strCpNo"`
	}
	if err := decode(body, &res); err != nil {
		if re, ok := rail.AsError(err); ok && re.Kind == rail.KindBackend {
			re.Kind = rail.KindAuth
		}
		return err
	}
	if res.MembershipNo == "" {
		return rail.AuthError(rail.ProviderKorail, "", "login rejected")
	}
	c.loggedIn = true
	c.membershipNo = res.MembershipNo
	c.name = res.Name
	c.email = res.Email
	c.phone = res.Phone
	return nil
}

func (c *Client) loginKey(ctx context.Context) (string, string, error) {
	body, err := c.do(ctx, http.MethodPost, pathCode, url.Values{"code": {"app.login.cphd"}})
	if err != nil {
		return "", "", err
	}
	var res struct {
		Cphd struct {
			Idx string `json:"idx"`
			Key string `json:"key"`
		} `json:"app.login.cphd"`
	}
	if err := decode(body, &res); err != nil {
		return "", "", err
	}
	if res.Cphd.Key == "" {
		return "", "", rail.DecodeError(rail.ProviderKorail, fmt.Errorf("login key missing"))
	}
	return res.Cphd.Idx, res.Cphd.Key, nil
}

// encryptPassword applies AES-CBC with the first 16 key bytes as IV,
// then base64 twice.
func encryptPassword(password, key string) (string, error) {
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return "", err
	}
	pad := aes.BlockSize - len(password)%aes.BlockSize
	plain := append([]byte(password), bytes.Repeat([]byte{byte(pad)}, pad)...)
	out := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, []byte(key)[:aes.BlockSize]).CryptBlocks(out, plain)
	once := base64.StdEncoding.EncodeToString(out)
	return base64.StdEncoding.EncodeToString([]byte(once)), nil
}

type envelope struct {
	Result  string `json:"strResult"`
	Code    string `json:"h_msg_cd"`
	Message string `json:"h_msg_txt"`
}

// decode checks the Korail envelope and unmarshals body into out.
func decode(body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return rail.DecodeError(rail.ProviderKorail, err)
	}
	if env.Result == "FAIL" {
		msg := env.Message
		if known, ok := codeMessages[env.Code]; ok {
			msg = known + ": " + env.Message
		}
		return rail.BackendError(rail.ProviderKorail, env.Code, msg)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return rail.DecodeError(rail.ProviderKorail, err)
	}
	return nil
}

func isNoResults(err error) bool {
	re, ok := rail.AsError(err)
	return ok && codeMessages[re.Code] == msgNoResults
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	target := c.cfg.BaseURL + path
	var body io.Reader
	if method == http.MethodGet {
		target += "?" + params.Encode()
	} else {
		body = strings.NewReader(params.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", defaultUA)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	}
	res, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, rail.TransportError(rail.ProviderKorail, err)
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, rail.TransportError(rail.ProviderKorail, err)
	}
	if res.StatusCode >= 500 {
		return nil, rail.TransportError(rail.ProviderKorail, fmt.Errorf("korail http %d", res.StatusCode))
	}
	return b, nil
}

// common returns the parameters every authenticated call carries.
func common() url.Values {
	return url.Values{"Device": {device}, "Version": {version}, "Key": {apiKey}}
}
