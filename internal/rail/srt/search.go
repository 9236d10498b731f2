package srt

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/example/rail-scheduler/internal/rail"
)

const trainCodeSRT = "17"

type train struct {
	TrainCode    string `json:"stlbTrnClsfCd"`
	TrainNo      string `json:"trnNo"`
	DepDate      string `json:"dptDt"`
	DepTime      string `json:"dptTm"`
	DepStation   string `json:"dptRsStnCd"`
	ArrDate      string `json:"arvDt"`
	ArrTime      string `json:"arvTm"`
	ArrStation   string `json:"arvRsStnCd"`
	GeneralState string `json:"gnrmRsvPsbStr"`
	SpecialState string `json:"sprmRsvPsbStr"`
	WaitCode     string `json:"rsvWaitPsbCd"`
	RunDate      string `json:"runDt"`
}

type searchResponse struct {
	OutDataSets struct {
		Trains []train `json:"dsOutput1"`
	} `json:"outDataSets"`
}

var stationNames = func() map[string]string {
	m := make(map[string]string, len(rail.SRTStationCodes))
	for name, code := range rail.SRTStationCodes {
		m[code] = name
	}
	return m
}()

func stationCode(name string) (string, error) {
	code, ok := rail.SRTStationCodes[name]
	if !ok {
		return "", fmt.Errorf("unknown SRT station %q", name)
	}
	return code, nil
}

func (c *Client) Search(ctx context.Context, p rail.SearchParams) ([]rail.Candidate, error) {
	dep, err := stationCode(p.Departure)
	if err != nil {
		return nil, err
	}
	arr, err := stationCode(p.Arrival)
	if err != nil {
		return nil, err
	}
	key, err := c.netFunnelKey(ctx)
	if err != nil {
		return nil, err
	}
	form := url.Values{
		"chtnDvCd":       {"1"},
		"arriveTime":     {"N"},
		"seatAttCd":      {"015"},
		"psgNum":         {strconv.Itoa(p.Passengers.Total())},
		"trnGpCd":        {"109"},
		"stlbTrnClsfCd":  {"05"},
		"dptDt":          {p.Date},
		"dptTm":          {p.Time},
		"arvRsStnCd":     {arr},
		"dptRsStnCd":     {dep},
		"arvRsStnCdNm":   {p.Arrival},
		"dptRsStnCdNm":   {p.Departure},
		"isRequest":      {"Y"},
		"dlayTnumAplFlg": {"Y"},
		"netfunnelKey":   {key},
	}
	body, err := c.post(ctx, pathSearch, form)
	if err != nil {
		c.nfKey = ""
		return nil, err
	}
	var res searchResponse
	if err := decode(body, &res); err != nil {
		c.nfKey = ""
		return nil, err
	}

	out := make([]rail.Candidate, 0, len(res.OutDataSets.Trains))
	for _, t := range res.OutDataSets.Trains {
		if t.TrainCode != trainCodeSRT {
			continue
		}
		cand := t.candidate()
		if !p.Filters.IncludeSoldOut && !cand.HasSeat() {
			continue
		}
		cand.Index = len(out)
		out = append(out, cand)
	}
	return out, nil
}

func (t train) candidate() rail.Candidate {
	runDate := t.RunDate
	if runDate == "" {
		runDate = t.DepDate
	}
	return rail.Candidate{
		Provider:    rail.ProviderSRT,
		TrainName:   "SRT",
		TrainNo:     t.TrainNo,
		Departure:   stationNames[t.DepStation],
		Arrival:     stationNames[t.ArrStation],
		DepDate:     t.DepDate,
		DepTime:     t.DepTime,
		ArrTime:     t.ArrTime,
		GeneralSeat: strings.Contains(t.GeneralState, "예약가능"),
		SpecialSeat: strings.Contains(t.SpecialState, "예약가능"),
		WaitingList: strings.Contains(t.WaitCode, "9"),
		Meta: map[string]string{
			"trainCode":  t.TrainCode,
			"depStation": t.DepStation,
			"arrStation": t.ArrStation,
			"runDate":    runDate,
		},
	}
}

var passengerCodes = map[rail.PassengerType]string{
	rail.Adult:          "1",
	rail.Disability1To3: "2",
	rail.Disability4To6: "3",
	rail.Senior:         "4",
	rail.Child:          "5",
}

const (
	jobPersonal = "1101"
	jobStandby  = "1102"
)

// Reserve books cand. The seat class follows policy; a candidate with no
// seats but an open waiting list is booked as a standby request.
func (c *Client) Reserve(ctx context.Context, cand rail.Candidate, passengers rail.Passengers, policy rail.SeatPolicy) (rail.Reservation, error) {
	if err := passengers.Validate(); err != nil {
		return rail.Reservation{}, err
	}
	special, waiting := rail.SeatClass(cand, policy)
	job := jobPersonal
	if waiting {
		job = jobStandby
	}
	roomClass := "1"
	if special {
		roomClass = "2"
	}

	form := url.Values{
		"jobId":          {job},
		"jrnyCnt":        {"1"},
		"jrnyTpCd":       {"11"},
		"jrnySqno1":      {"001"},
		"stndFlg":        {"N"},
		"trnGpCd1":       {"300"},
		"stlbTrnClsfCd1": {cand.Meta["trainCode"]},
		"dptDt1":         {cand.DepDate},
		"dptTm1":         {cand.DepTime},
		"runDt1":         {cand.Meta["runDate"]},
		"trnNo1":         {padTrainNo(cand.TrainNo)},
		"dptRsStnCd1":    {cand.Meta["depStation"]},
		"dptRsStnCdNm1":  {cand.Departure},
		"arvRsStnCd1":    {cand.Meta["arrStation"]},
		"arvRsStnCdNm1":  {cand.Arrival},
		"totPrnb":        {strconv.Itoa(passengers.Total())},
		"psrmClCd1":      {roomClass},
		"locSeatAttCd1":  {"000"},
		"rqSeatAttCd1":   {"015"},
		"dirSeatAttCd1":  {"009"},
		"smkSeatAttCd1":  {"000"},
		"etcSeatAttCd1":  {"000"},
		"reqTime":        {cand.DepTime},
	}
	grid := 0
	for _, ps := range passengers {
		if ps.Count <= 0 {
			continue
		}
		grid++
		n := strconv.Itoa(grid)
		form.Set("psgTpCd"+n, passengerCodes[ps.Type])
		form.Set("psgInfoPerPrnb"+n, strconv.Itoa(ps.Count))
	}
	form.Set("psgGridcnt", strconv.Itoa(grid))

	body, err := c.post(ctx, pathReserve, form)
	if err != nil {
		return rail.Reservation{}, err
	}
	var res struct {
		ReservList []struct {
			PNR string `json:"pnrNo"`
		} `json:"reservListMap"`
	}
	if err := decode(body, &res); err != nil {
		return rail.Reservation{}, err
	}
	if len(res.ReservList) == 0 || res.ReservList[0].PNR == "" {
		return rail.Reservation{}, rail.DecodeError(rail.ProviderSRT, fmt.Errorf("reserve response without reservation number"))
	}
	pnr := res.ReservList[0].PNR

	// The reserve response carries only the number; the listing has the rest.
	if all, err := c.Reservations(ctx); err == nil {
		for _, r := range all {
			if r.Number == pnr {
				return r, nil
			}
		}
	}
	return rail.Reservation{
		Provider:  rail.ProviderSRT,
		Number:    pnr,
		TrainName: cand.TrainName,
		TrainNo:   cand.TrainNo,
		Departure: cand.Departure,
		Arrival:   cand.Arrival,
		DepDate:   cand.DepDate,
		DepTime:   cand.DepTime,
		ArrTime:   cand.ArrTime,
		Waiting:   waiting,
	}, nil
}

func padTrainNo(no string) string {
	if len(no) >= 5 {
		return no
	}
	return strings.Repeat("0", 5-len(no)) + no
}
