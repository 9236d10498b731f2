package srt

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/example/rail-scheduler/internal/rail"
)

type reservationTrain struct {
	PNR         string `json:"pnrNo"`
	TicketCount string `json:"tkSpecNum"`
	Amount      string `json:"rcvdAmt"`
}

type reservationPay struct {
	TrainCode  string `json:"stlbTrnClsfCd"`
	TrainNo    string `json:"trnNo"`
	DepDate    string `json:"dptDt"`
	DepTime    string `json:"dptTm"`
	DepStation string `json:"dptRsStnCd"`
	ArrTime    string `json:"arvTm"`
	ArrStation string `json:"arvRsStnCd"`
	Paid       string `json:"stlFlg"`
	PayDate    string `json:"iseLmtDt"`
	PayTime    string `json:"iseLmtTm"`
}

func (c *Client) Reservations(ctx context.Context) ([]rail.Reservation, error) {
	body, err := c.post(ctx, pathTickets, url.Values{"pageNo": {"0"}})
	if err != nil {
		return nil, err
	}
	var res struct {
		Trains []reservationTrain `json:"trainListMap"`
		Pays   []reservationPay   `json:"payListMap"`
	}
	if err := decode(body, &res); err != nil {
		return nil, err
	}
	out := make([]rail.Reservation, 0, len(res.Trains))
	for i, t := range res.Trains {
		if i >= len(res.Pays) {
			break
		}
		p := res.Pays[i]
		r := rail.Reservation{
			Provider:  rail.ProviderSRT,
			Number:    t.PNR,
			TrainName: "SRT",
			TrainNo:   p.TrainNo,
			Departure: stationNames[p.DepStation],
			Arrival:   stationNames[p.ArrStation],
			DepDate:   p.DepDate,
			DepTime:   p.DepTime,
			ArrTime:   p.ArrTime,
			Paid:      p.Paid == "Y",
			Meta:      map[string]string{"ticketCount": t.TicketCount},
		}
		r.Price, _ = strconv.Atoi(t.Amount)
		r.Waiting = !r.Paid && p.PayDate == ""
		if p.PayDate != "" {
			r.PayBy, _ = time.ParseInLocation("20060102150405", p.PayDate+p.PayTime, time.Local)
		}
		tickets, err := c.tickets(ctx, t.PNR)
		if err != nil {
			return nil, err
		}
		r.Tickets = tickets
		out = append(out, r)
	}
	return out, nil
}

func (c *Client) tickets(ctx context.Context, pnr string) ([]rail.Ticket, error) {
	body, err := c.post(ctx, pathTicketInf, url.Values{"pnrNo": {pnr}, "jrnySqno": {"1"}})
	if err != nil {
		return nil, err
	}
	var res struct {
		Tickets []struct {
			Car       string `json:"scarNo"`
			Seat      string `json:"seatNo"`
			SeatClass string `json:"psrmClNm"`
			Passenger string `json:"psgTpDvNm"`
			Price     string `json:"rcvdAmt"`
		} `json:"trainListMap"`
	}
	if err := decode(body, &res); err != nil {
		return nil, err
	}
	out := make([]rail.Ticket, 0, len(res.Tickets))
	for _, t := range res.Tickets {
		price, _ := strconv.Atoi(t.Price)
		out = append(out, rail.Ticket{Car: t.Car, Seat: t.Seat, SeatClass: t.SeatClass, Passenger: t.Passenger, Price: price})
	}
	return out, nil
}

// Tickets is empty for SRT: issued tickets are part of the reservation list.
func (c *Client) Tickets(ctx context.Context) ([]rail.Reservation, error) {
	return nil, nil
}

func (c *Client) Cancel(ctx context.Context, r rail.Reservation) error {
	body, err := c.post(ctx, pathCancel, url.Values{
		"pnrNo":     {r.Number},
		"jrnyCnt":   {"1"},
		"rsvChgTno": {"0"},
	})
	if err != nil {
		return err
	}
	return decode(body, nil)
}

func (c *Client) Refund(ctx context.Context, r rail.Reservation) error {
	if !r.Paid {
		return fmt.Errorf("reservation %s is not paid; cancel it instead", r.Number)
	}
	body, err := c.post(ctx, pathRefund, url.Values{
		"pnr_no":       {r.Number},
		"cnc_dmn_cont": {"승차권 환불로 취소"},
		"saleDt":       {r.DepDate},
		"tkRetPwd":     {""},
		"psgNm":        {c.name},
	})
	if err != nil {
		return err
	}
	return decode(body, nil)
}

func (c *Client) Pay(ctx context.Context, r rail.Reservation, card rail.Card) error {
	if r.Paid {
		return nil
	}
	if r.Waiting {
		return fmt.Errorf("reservation %s is on the waiting list", r.Number)
	}
	auth := "J"
	if card.Corporate() {
		auth = "S"
	}
	price := strconv.Itoa(r.Price)
	body, err := c.post(ctx, pathPayment, url.Values{
		"stlDmnDt":        {time.Now().Format("20060102")},
		"mbCrdNo":         {c.membershipNo},
		"stlMnsSqno1":     {"1"},
		"ststlGridcnt":    {"1"},
		"totNewStlAmt":    {price},
		"athnDvCd1":       {auth},
		"vanPwd1":         {card.Password},
		"crdVlidTrm1":     {card.Expire},
		"stlMnsCd1":       {"02"},
		"rsvChgTno":       {"0"},
		"chgMcs":          {"0"},
		"ismtMnthNum1":    {"0"},
		"ctlDvCd":         {"3102"},
		"cgPsId":          {"korail"},
		"pnrNo":           {r.Number},
		"totPrnb":         {r.Meta["ticketCount"]},
		"mnsStlAmt1":      {price},
		"crdInpWayCd1":    {"@"},
		"athnVal1":        {card.Birthday},
		"stlCrCrdNo1":     {card.Number},
		"jrnyCnt":         {"1"},
		"strJobId":        {"3102"},
		"inrecmnsGridcnt": {"1"},
		"dptTm":           {r.DepTime},
		"arvTm":           {r.ArrTime},
		"dptStnConsOrdr2": {"000000"},
		"arvStnConsOrdr2": {"000000"},
		"trnGstCd":        {"0"},
		"pageNo":          {"1"},
		"rowCnt":          {"10"},
		"pageUrl":         {""},
	})
	if err != nil {
		return err
	}
	var res struct {
		OutDataSets struct {
			Result []struct {
				Result  string `json:"strResult"`
				Message string `json:"msgTxt"`
			} `json:"dsOutput0"`
		} `json:"outDataSets"`
	}
	if err := decode(body, &res); err != nil {
		return err
	}
	if len(res.OutDataSets.Result) > 0 && res.OutDataSets.Result[0].Result == "FAIL" {
		return rail.BackendError(rail.ProviderSRT, "", res.OutDataSets.Result[0].Message)
	}
	return nil
}
