package korail

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/example/rail-scheduler/internal/rail"
)

const (
	trainGroupKTX = "100"
	trainGroupAll = "109"

	seatAvailable = "11"
	waitOpen      = "9"
)

type train struct {
	TrainName   string `json:"h_trn_clsf_nm"`
	TrainClass  string `json:"h_trn_clsf_cd"`
	TrainGroup  string `json:"h_trn_gp_cd"`
	TrainNo     string `json:"h_trn_no"`
	DepName     string `json:"h_dpt_rs_stn_nm"`
	DepCode     string `json:"h_dpt_rs_stn_cd"`
	ArrName     string `json:"h_arv_rs_stn_nm"`
	ArrCode     string `json:"h_arv_rs_stn_cd"`
	DepDate     string `json:"h_dpt_dt"`
	DepTime     string `json:"h_dpt_tm"`
	ArrTime     string `json:"h_arv_tm"`
	RunDate     string `json:"h_run_dt"`
	GeneralCode string `json:"h_gen_rsv_cd"`
	SpecialCode string `json:"h_spe_rsv_cd"`
	WaitFlag    string `json:"h_wait_rsv_flg"`
}

func (t train) candidate() rail.Candidate {
	return rail.Candidate{
		Provider:    rail.ProviderKorail,
		TrainName:   t.TrainName,
		TrainNo:     t.TrainNo,
		Departure:   t.DepName,
		Arrival:     t.ArrName,
		DepDate:     t.DepDate,
		DepTime:     t.DepTime,
		ArrTime:     t.ArrTime,
		GeneralSeat: t.GeneralCode == seatAvailable,
		SpecialSeat: t.SpecialCode == seatAvailable,
		WaitingList: t.WaitFlag == waitOpen,
		Meta: map[string]string{
			"trainClass": t.TrainClass,
			"trainGroup": t.TrainGroup,
			"depCode":    t.DepCode,
			"arrCode":    t.ArrCode,
			"runDate":    t.RunDate,
		},
	}
}

func trainGroup(tt rail.TrainType) string {
	if tt == rail.TrainTypeKTX {
		return trainGroupKTX
	}
	return trainGroupAll
}

// Search lists the services leaving after p.Time. A "no results" reply is
// an empty list, not an error.
func (c *Client) Search(ctx context.Context, p rail.SearchParams) ([]rail.Candidate, error) {
	group := trainGroup(p.Filters.TrainType)
	q := common()
	for k, v := range map[string]string{
		"radJobId":       "1",
		"selGoTrain":     group,
		"txtTrnGpCd":     group,
		"txtCardPsgCnt":  "0",
		"txtGdNo":        "",
		"txtGoAbrdDt":    p.Date,
		"txtGoHour":      p.Time,
		"txtGoStart":     p.Departure,
		"txtGoEnd":       p.Arrival,
		"txtJobDv":       "",
		"txtMenuId":      "11",
		"txtPsgFlg_1":    strconv.Itoa(p.Passengers.Count(rail.Adult)),
		"txtPsgFlg_2":    strconv.Itoa(p.Passengers.Count(rail.Child)),
		"txtPsgFlg_3":    strconv.Itoa(p.Passengers.Count(rail.Senior)),
		"txtPsgFlg_4":    strconv.Itoa(p.Passengers.Count(rail.Disability1To3)),
		"txtPsgFlg_5":    strconv.Itoa(p.Passengers.Count(rail.Disability4To6)),
		"txtSeatAttCd_2": "000",
		"txtSeatAttCd_3": "000",
		"txtSeatAttCd_4": "015",
	} {
		q.Set(k, v)
	}
	body, err := c.do(ctx, http.MethodGet, pathSearch, q)
	if err != nil {
		return nil, err
	}
	var res struct {
		Trains struct {
			List []train `json:"trn_info"`
		} `json:"trn_infos"`
	}
	if err := decode(body, &res); err != nil {
		if isNoResults(err) {
			return []rail.Candidate{}, nil
		}
		return nil, err
	}

	out := make([]rail.Candidate, 0, len(res.Trains.List))
	for _, t := range res.Trains.List {
		if p.Filters.TrainType == rail.TrainTypeKTX && t.TrainGroup != trainGroupKTX {
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

type passengerCode struct {
	kind     string
	discount string
}

var passengerCodes = map[rail.PassengerType]passengerCode{
	rail.Adult:          {"1", "000"},
	rail.Child:          {"3", "000"},
	rail.Senior:         {"1", "131"},
	rail.Disability1To3: {"1", "111"},
	rail.Disability4To6: {"1", "112"},
}

const (
	jobReserve = "1101"
	jobStandby = "1102"
)

// Reserve books cand for passengers. With no seat left it joins the
// waiting list.
func (c *Client) Reserve(ctx context.Context, cand rail.Candidate, passengers rail.Passengers, policy rail.SeatPolicy) (rail.Reservation, error) {
	if err := passengers.Validate(); err != nil {
		return rail.Reservation{}, err
	}
	special, waiting := rail.SeatClass(cand, policy)
	job := jobReserve
	if waiting {
		job = jobStandby
	}
	roomClass := "1"
	if special {
		roomClass = "2"
	}

	q := common()
	for k, v := range map[string]string{
		"txtGdNo":        "",
		"txtJobId":       job,
		"txtTotPsgCnt":   strconv.Itoa(passengers.Total()),
		"txtSeatAttCd1":  "000",
		"txtSeatAttCd2":  "000",
		"txtSeatAttCd3":  "000",
		"txtSeatAttCd4":  "015",
		"txtSeatAttCd5":  "000",
		"hidFreeFlg":     "N",
		"txtStndFlg":     "N",
		"txtMenuId":      "11",
		"txtSrcarCnt":    "0",
		"txtJrnyCnt":     "1",
		"txtJrnySqno1":   "001",
		"txtJrnyTpCd1":   "11",
		"txtDptDt1":      cand.DepDate,
		"txtDptRsStnCd1": cand.Meta["depCode"],
		"txtDptTm1":      cand.DepTime,
		"txtArvRsStnCd1": cand.Meta["arrCode"],
		"txtTrnNo1":      cand.TrainNo,
		"txtRunDt1":      cand.Meta["runDate"],
		"txtTrnClsfCd1":  cand.Meta["trainClass"],
		"txtPsrmClCd1":   roomClass,
		"txtTrnGpCd1":    cand.Meta["trainGroup"],
		"txtChgFlg1":     "",
	} {
		q.Set(k, v)
	}
	n := 0
	for _, ps := range passengers {
		if ps.Count <= 0 {
			continue
		}
		n++
		code := passengerCodes[ps.Type]
		i := strconv.Itoa(n)
		q.Set("txtPsgTpCd"+i, code.kind)
		q.Set("txtDiscKndCd"+i, code.discount)
		q.Set("txtCompaCnt"+i, strconv.Itoa(ps.Count))
		q.Set("txtCardCode_"+i, "")
		q.Set("txtCardNo_"+i, "")
		q.Set("txtCardPw_"+i, "")
	}

	body, err := c.do(ctx, http.MethodGet, pathReserve, q)
	if err != nil {
		return rail.Reservation{}, err
	}
	var res struct {
		PNR string `json:"h_pnr_no"`
	}
	if err := decode(body, &res); err != nil {
		return rail.Reservation{}, err
	}
	if res.PNR == "" {
		return rail.Reservation{}, rail.DecodeError(rail.ProviderKorail, fmt.Errorf("reserve response without reservation number"))
	}

	if all, err := c.Reservations(ctx); err == nil {
		for _, r := range all {
			if r.Number == res.PNR {
				return r, nil
			}
		}
	}
	return rail.Reservation{
		Provider:  rail.ProviderKorail,
		Number:    res.PNR,
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
