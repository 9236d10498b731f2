package srt

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/example/rail-scheduler/internal/rail"
)

const (
	nfOpGetKey = "5101"
	nfOpChkKey = "5002"

	nfPass = "200"
	nfWait = "201"

	nfMaxWaits = 30
)

var nfResultRe = regexp.MustCompile(`result='(\d+):(\d+):([^']*)'`)

// netFunnelKey returns the cached queue key, queueing for a new one when
// none is held. A refused passage is reported as KindAntiBot.
func (c *Client) netFunnelKey(ctx context.Context) (string, error) {
	if c.nfKey != "" {
		return c.nfKey, nil
	}
	status, params, err := c.netFunnel(ctx, nfOpGetKey, "")
	if err != nil {
		return "", err
	}
	for waits := 0; status == nfWait; waits++ {
		if waits >= nfMaxWaits {
			return "", &rail.Error{Kind: rail.KindAntiBot, Provider: rail.ProviderSRT, Code: status, Message: "NetFunnel queue did not clear"}
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Second):
		}
		status, params, err = c.netFunnel(ctx, nfOpChkKey, params.Get("key"))
		if err != nil {
			return "", err
		}
	}
	if status != nfPass || params.Get("key") == "" {
		return "", &rail.Error{Kind: rail.KindAntiBot, Provider: rail.ProviderSRT, Code: status, Message: "NetFunnel rejected the request"}
	}
	c.nfKey = params.Get("key")
	return c.nfKey, nil
}

func (c *Client) netFunnel(ctx context.Context, opcode, key string) (string, url.Values, error) {
	q := url.Values{
		"opcode": {opcode},
		"nfid":   {"0"},
		"prefix": {"NetFunnel.gRtype=" + opcode},
		"js":     {"true"},
		strconv.FormatInt(time.Now().UnixMilli(), 10): {""},
	}
	if opcode == nfOpGetKey {
		q.Set("sid", "service_1")
		q.Set("aid", "act_10")
	} else {
		q.Set("key", key)
		q.Set("ttl", "1")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.NetFunnelURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("user-agent", defaultUA)
	body, err := c.send(req)
	if err != nil {
		return "", nil, err
	}
	return parseNetFunnel(string(body))
}

func parseNetFunnel(text string) (string, url.Values, error) {
	m := nfResultRe.FindStringSubmatch(text)
	if m == nil {
		return "", nil, rail.DecodeError(rail.ProviderSRT, fmt.Errorf("netfunnel response: %q", truncate(text, 120)))
	}
	params, err := url.ParseQuery(strings.TrimSpace(m[3]))
	if err != nil {
		return "", nil, rail.DecodeError(rail.ProviderSRT, err)
	}
	return m[2], params, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
