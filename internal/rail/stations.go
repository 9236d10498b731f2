package rail

import "time"

// Stations lists the stations each provider serves, in menu order.
var Stations = map[Provider][]string{
	ProviderSRT: {
		"수서", "동탄", "평택지제", "경주", "곡성", "공주", "광주송정", "구례구",
		"김천(구미)", "나주", "남원", "대전", "동대구", "마산", "목포", "밀양",
		"부산", "서대구", "순천", "여수EXPO", "여천", "오송", "울산(통도사)", "익산",
		"전주", "정읍", "진영", "진주", "창원", "창원중앙", "천안아산", "포항",
	},
	ProviderKorail: {
		"서울", "용산", "영등포", "광명", "수원", "천안아산", "오송", "대전",
		"서대전", "김천구미", "동대구", "경주", "포항", "밀양", "구포", "부산",
		"울산(통도사)", "마산", "창원중앙", "경산", "논산", "익산", "정읍", "광주송정",
		"목포", "전주", "순천", "여수EXPO", "청량리", "강릉", "행신", "정동진",
	},
}

var DefaultStations = map[Provider][]string{
	ProviderSRT:    {"수서", "대전", "동대구", "부산"},
	ProviderKorail: {"서울", "대전", "동대구", "부산"},
}

// DefaultDeparture is the origin used when none has been chosen yet.
var DefaultDeparture = map[Provider]string{
	ProviderSRT:    "수서",
	ProviderKorail: "서울",
}

// SRTStationCodes maps SRT station names to the codes its API expects.
var SRTStationCodes = map[string]string{
	"수서": "0551", "동탄": "0552", "평택지제": "0553", "경주": "0508",
	"곡성": "0049", "공주": "0514", "광주송정": "0036", "구례구": "0050",
	"김천(구미)": "0507", "나주": "0037", "남원": "0048", "대전": "0010",
	"동대구": "0015", "마산": "0059", "목포": "0041", "밀양": "0017",
	"부산": "0020", "서대구": "0506", "순천": "0051", "여수EXPO": "0053",
	"여천": "0139", "오송": "0297", "울산(통도사)": "0509", "익산": "0030",
	"전주": "0045", "정읍": "0033", "진영": "0056", "진주": "0063",
	"창원": "0057", "창원중앙": "0512", "천안아산": "0502", "포항": "0515",
}

// IsStation reports whether name is served by p.
func IsStation(p Provider, name string) bool {
	for _, s := range Stations[p] {
		if s == name {
			return true
		}
	}
	return false
}

// MaxBookingDays is how many days ahead of now p accepts reservations.
// SRT opens D-30 and Korail D-31 at 07:00; before that the window is one
// day shorter.
func MaxBookingDays(p Provider, now time.Time) int {
	days := 30
	if p == ProviderKorail {
		days = 31
	}
	if now.Hour() < 7 {
		days--
	}
	return days
}
