package scheduler

import (
	"strings"

	"github.com/example/rail-scheduler/internal/rail"
)

// Category is the failure class of an error seen by the loop.
type Category int

const (
	Unclassified Category = iota
	BotDetected
	SessionExpired
	SoldOutTransient
	MalformedResponse
	ConnectivityError
	AuthFailed
)

func (c Category) String() string {
	switch c {
	case BotDetected:
		return "bot_detected"
	case SessionExpired:
		return "session_expired"
	case SoldOutTransient:
		return "sold_out"
	case MalformedResponse:
		return "malformed_response"
	case ConnectivityError:
		return "connectivity"
	case AuthFailed:
		return "auth_failed"
	}
	return "unclassified"
}

// Recovery is what the loop does about a failure, in this order: notify,
// reset the client, ask the operator, back off, then re-authenticate
// before the next search.
type Recovery struct {
	Category    Category
	Notify      bool
	ResetClient bool
	AskOperator bool
	Backoff     bool
	Reauth      bool
}

// Backend messages, matched verbatim.
var (
	srtBotDetected = []string{"정상적인 경로로 접근 부탁드립니다"}
	srtSessionGone = []string{"로그인 후 사용하십시오"}
	srtSoldOut     = []string{
		"잔여석없음",
		"사용자가 많아 접속이 원활하지 않습니다",
		"예약대기 접수가 마감되었습니다",
		"예약대기자한도수초과",
	}

	korailSessionGone = []string{"Need to Login"}
	korailSoldOut     = []string{"Sold out", "잔여석없음", "예약대기자한도수초과"}
)

// Classify maps err to its recovery. Errors that are not *rail.Error are
// Unclassified and re-authenticate once the operator lets the run go on.
func Classify(err error) Recovery {
	re, ok := rail.AsError(err)
	if !ok {
		return recoveryFor(Unclassified, true)
	}
	switch re.Kind {
	case rail.KindAntiBot:
		return recoveryFor(BotDetected, false)
	case rail.KindDecode:
		return recoveryFor(MalformedResponse, false)
	case rail.KindTransport:
		return recoveryFor(ConnectivityError, false)
	case rail.KindAuth:
		return recoveryFor(AuthFailed, false)
	}

	msg := re.Message
	switch re.Provider {
	case rail.ProviderSRT:
		switch {
		case containsAny(msg, srtBotDetected):
			return recoveryFor(BotDetected, false)
		case containsAny(msg, srtSessionGone):
			return recoveryFor(SessionExpired, false)
		case containsAny(msg, srtSoldOut):
			return recoveryFor(SoldOutTransient, false)
		}
	case rail.ProviderKorail:
		switch {
		case containsAny(msg, korailSessionGone):
			return recoveryFor(SessionExpired, false)
		case containsAny(msg, korailSoldOut):
			return recoveryFor(SoldOutTransient, false)
		}
	}
	return recoveryFor(Unclassified, false)
}

func recoveryFor(c Category, foreign bool) Recovery {
	r := Recovery{Category: c, Backoff: true}
	switch c {
	case BotDetected:
		r.ResetClient = true
	case SessionExpired, MalformedResponse:
		r.Notify = true
		r.Reauth = true
	case ConnectivityError, AuthFailed:
		r.Notify = true
		r.AskOperator = true
		r.Reauth = true
	case Unclassified:
		r.Notify = true
		r.AskOperator = true
		r.Reauth = foreign
	}
	return r
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
