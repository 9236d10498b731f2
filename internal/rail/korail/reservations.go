package korail

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/example/rail-scheduler/internal/rail"
)

// waitingDeadline marks a waiting-list reservation's payment deadline.
const waitingDeadline = "00000000"

type reservedTrain struct {
	PNR        string `json:"h_pnr_no"`
	JourneyNo  string `json:"h_jrny_sqno"`
	JourneyCnt string `json:"h_jrny_cnt"`
	ChangeNo   string `json:"h_rsv_chg_no"`
	TrainName  string `json:"h_trn_clsf_nm"`
	TrainNo    string `json:"h_trn_no"`
	DepName    string `json:"h_dpt_rs_stn_nm"`
	ArrName    string `json:"h_arv_rs_stn_nm"`
	DepDate    string `json:"h_run_dt"`
	DepTime    string `json:"h_dpt_tm"`
	ArrTime    string `json:"h_arv_tm"`
	Amount     string `json:"h_rsv_amt"`
	SeatCount  string `json:"h_tot_seat_cnt"`
	PayDate    string `json:"h_ntisu_lmt_dt"`
	PayTime    string `json:"h_ntisu_lmt_tm"`
	WctNo      string `json:"h_wct_no"`
}

func (t reservedTrain) reservation() rail.Reservation {
	r := rail.Reservation{
		Provider:  rail.ProviderKorail,
		Number:    t.PNR,
		TrainName: t.TrainName,
		TrainNo:   t.TrainNo,
		Departure: t.DepName,
		Arrival:   t.ArrName,
		DepDate:   t.DepDate,
		DepTime:   t.DepTime,
		ArrTime:   t.ArrTime,
		Waiting:   t.PayDate == waitingDeadline,
		Meta: map[string]string{
			"journeyNo":  t.JourneyNo,
			"journeyCnt": t.JourneyCnt,
			"changeNo":   t.ChangeNo,
			"wctNo":      t.WctNo,
			"seatCount":  t.SeatCount,
		},
	}
	r.Price, _ = strconv.Atoi(t.Amount)
	if !r.Waiting && t.PayDate != "" {
		r.PayBy, _ = time.ParseInLocation("20060102150405", t.PayDate+t.PayTime, time.Local)
	}
	return r
}

// Reservations lists unpaid reservations. Korail moves paid ones to the
// ticket list.
func (c *Client) Reservations(ctx context.Context) ([]rail.Reservation, error) {
	body, err := c.do(ctx, http.MethodGet, pathReservation, common())
	if err != nil {
		return nil, err
	}
	var res struct {
		Journeys struct {
			List []struct {
				Trains struct {
					List []reservedTrain `json:"train_info"`
				} `json:"train_infos"`
			} `json:"jrny_info"`
		} `json:"jrny_infos"`
	}
	if err := decode(body, &res); err != nil {
		if isNoResults(err) {
			return []rail.Reservation{}, nil
		}
		return nil, err
	}
	var out []rail.Reservation
	for _, j := range res.Journeys.List {
		for _, t := range j.Trains.List {
			out = append(out, t.reservation())
		}
	}
	return out, nil
}

type ticketInfo struct {
	PNR        string `json:"h_pnr_no"`
	TrainName  string `json:"h_trn_clsf_nm"`
	TrainNo    string `json:"h_trn_no"`
	DepName    string `json:"h_dpt_rs_stn_nm"`
	ArrName    string `json:"h_arv_rs_stn_nm"`
	DepDate    string `json:"h_dpt_dt"`
	DepTime    string `json:"h_dpt_tm"`
	ArrTime    string `json:"h_arv_tm"`
	Car        string `json:"h_srcar_no"`
	Seat       string `json:"h_seat_no"`
	SeatClass  string `json:"h_psrm_cl_nm"`
	Passenger  string `json:"h_psg_tp_dv_nm"`
	Price      string `json:"h_rcvd_amt"`
	SaleDate   string `json:"h_orgtk_sale_dt"`
	SaleWctNo  string `json:"h_orgtk_wct_no"`
	SaleSeqNo  string `json:"h_orgtk_sale_sqno"`
	ReturnPwd  string `json:"h_orgtk_ret_pwd"`
	SaleTicket string `json:"h_orgtk_sale_no"`
}

// Tickets lists issued (paid) tickets as paid reservations.
func (c *Client) Tickets(ctx context.Context) ([]rail.Reservation, error) {
	q := common()
	q.Set("txtDeviceId", "")
	q.Set("txtIndex", "1")
	q.Set("h_page_no", "1")
	q.Set("h_abrd_dt_from", "")
	q.Set("h_abrd_dt_to", "")
	q.Set("hiddenAbrdDtFrom", "")
	q.Set("hiddenAbrdDtTo", "")
	body, err := c.do(ctx, http.MethodGet, pathTickets, q)
	if err != nil {
		return nil, err
	}
	var res struct {
		List []struct {
			Tickets []struct {
				Trains struct {
					List []ticketInfo `json:"train_info"`
				} `json:"train_infos"`
			} `json:"ticket_list"`
		} `json:"reservation_list"`
	}
	if err := decode(body, &res); err != nil {
		if isNoResults(err) {
			return []rail.Reservation{}, nil
		}
		return nil, err
	}
	var out []rail.Reservation
	for _, r := range res.List {
		for _, tl := range r.Tickets {
			for _, t := range tl.Trains.List {
				price, _ := strconv.Atoi(t.Price)
				out = append(out, rail.Reservation{
					Provider:  rail.ProviderKorail,
					Number:    t.PNR,
					TrainName: t.TrainName,
					TrainNo:   t.TrainNo,
					Departure: t.DepName,
					Arrival:   t.ArrName,
					DepDate:   t.DepDate,
					DepTime:   t.DepTime,
					ArrTime:   t.ArrTime,
					Price:     price,
					Paid:      true,
					Tickets: []rail.Ticket{{
						Car: t.Car, Seat: t.Seat, SeatClass: t.SeatClass, Passenger: t.Passenger, Price: price,
					}},
					Meta: map[string]string{
						"saleDate":  t.SaleDate,
						"saleWctNo": t.SaleWctNo,
						"saleSeqNo": t.SaleSeqNo,
						"returnPwd": t.ReturnPwd,
					},
				})
			}
		}
	}
	return out, nil
}

func (c *Client) Cancel(ctx context.Context, r rail.Reservation) error {
	if r.Paid {
		return fmt.Errorf("reservation %s is paid; refund it instead", r.Number)
	}
	q := common()
	q.Set("txtPnrNo", r.Number)
	q.Set("txtJrnySqno", r.Meta["journeyNo"])
	q.Set("txtJrnyCnt", r.Meta["journeyCnt"])
	q.Set("hidRsvChgNo", r.Meta["changeNo"])
	body, err := c.do(ctx, http.MethodGet, pathCancel, q)
	if err != nil {
		return err
	}
	return decode(body, nil)
}

func (c *Client) Refund(ctx context.Context, r rail.Reservation) error {
	if !r.Paid {
		return fmt.Errorf("reservation %s is not paid; cancel it instead", r.Number)
	}
	q := common()
	q.Set("txtPrnNo", r.Number)
	q.Set("h_orgtk_sale_dt", r.Meta["saleDate"])
	q.Set("h_orgtk_sale_wct_no", r.Meta["saleWctNo"])
	q.Set("h_orgtk_sale_sqno", r.Meta["saleSeqNo"])
	q.Set("h_orgtk_ret_pwd", r.Meta["returnPwd"])
	q.Set("h_mlg_stl", "N")
	q.Set("tk_ret_tms_dv_cd", "21")
	q.Set("trnNo", r.TrainNo)
	q.Set("pbpAcepTgtFlg", "N")
	q.Set("latitude", "")
	q.Set("longitude", "")
	body, err := c.do(ctx, http.MethodPost, pathRefund, q)
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
	q := common()
	for k, v := range map[string]string{
		"hidPnrNo":           r.Number,
		"hidWctNo":           r.Meta["wctNo"],
		"hidTmpJobSqno1":     "000000",
		"hidTmpJobSqno2":     "000000",
		"hidRsvChgNo":        "000",
		"hidInrecmnsGridcnt": "1",
		"hidStlMnsSqno1":     "1",
		"hidStlMnsCd1":       "02",
		"hidMnsStlAmt1":      strconv.Itoa(r.Price),
		"hidCrdInpWayCd1":    "@",
		"hidStlCrCrdNo1":     card.Number,
		"hidVanPwd1":         card.Password,
		"hidCrdVlidTrm1":     card.Expire,
		"hidIsmtMnthNum1":    "0",
		"hidAthnDvCd1":       auth,
		"hidAthnVal1":        card.Birthday,
		"hiduserYn":          "Y",
	} {
		q.Set(k, v)
	}
	body, err := c.do(ctx, http.MethodPost, pathPayment, q)
	if err != nil {
		return err
	}
	return decode(body, nil)
}
