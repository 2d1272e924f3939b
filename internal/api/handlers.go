package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"pricescout/internal/config"
	"pricescout/internal/rates"
	"pricescout/internal/types"
)

// parseRequest is the body the ordering bot sends. The three ids arrive
// as either JSON strings or numbers; request_id and user_id are echoed
// back, id names the record owner for persistence.
type parseRequest struct {
	URL       string       `json:"url"`
	RequestID types.FlexID `json:"request_id"`
	UserID    types.FlexID `json:"user_id"`
	ID        types.FlexID `json:"id"`
}

type parseResponse struct {
	RequestID   string            `json:"request_id"`
	UserID      string            `json:"user_id"`
	ProductInfo types.ProductInfo `json:"product_info"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	s.metrics.ParseRequestsTotal.Add(1)

	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	s.logger.Info("processing URL", "url", req.URL, "request_id", req.RequestID.String())

	info := s.extractor.Extract(r.Context(), req.URL)
	s.recordExtraction(info)

	requestID := req.RequestID.String()
	if req.RequestID.IsZero() {
		requestID = fmt.Sprintf("req-%d", time.Now().UnixNano())
	}

	if err := s.store.SaveOrder(r.Context(), req.ID.String(), info); err != nil {
		s.metrics.ParseRequestsFailed.Add(1)
		s.metrics.OrderSaveFailures.Add(1)
		s.logger.Error("save order", "error", err)
		s.jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.metrics.OrdersSaved.Add(1)

	resp := parseResponse{
		RequestID:   requestID,
		UserID:      req.UserID.String(),
		ProductInfo: info,
	}
	s.logger.Info("parsed", "request_id", resp.RequestID, "name", info.Name, "price", info.Price)
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) recordExtraction(info types.ProductInfo) {
	if info.Name == types.NameNotFound {
		s.metrics.NamesNotFound.Add(1)
	} else {
		s.metrics.NamesFound.Add(1)
	}
	if info.Price == types.PriceNotFound {
		s.metrics.PricesNotFound.Add(1)
	} else {
		s.metrics.PricesFound.Add(1)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.Version,
		"storage": s.store.Name(),
	})
}

// handleUsers returns the distinct order owners — the broadcast
// recipient list the admin bot iterates over.
func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.DistinctUsers(r.Context())
	if err != nil {
		s.logger.Error("distinct users", "error", err)
		s.jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if users == nil {
		users = []string{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"users": users,
		"count": len(users),
	})
}

type orderSummary struct {
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

type userOrders struct {
	UserID string         `json:"user_id"`
	Count  int            `json:"count"`
	Orders []orderSummary `json:"orders"`
}

// handleOrders aggregates order history per user over the last N days.
func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.jsonError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	since := time.Now().AddDate(0, 0, -days)
	records, err := s.store.OrdersSince(r.Context(), since)
	if err != nil {
		s.logger.Error("orders since", "error", err)
		s.jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Group per user, keeping the newest-first record order.
	byUser := make(map[string]*userOrders)
	var order []string
	for _, rec := range records {
		u, ok := byUser[rec.UserID]
		if !ok {
			u = &userOrders{UserID: rec.UserID}
			byUser[rec.UserID] = u
			order = append(order, rec.UserID)
		}
		u.Count++
		u.Orders = append(u.Orders, orderSummary{
			Name:      rec.Product.Name,
			Price:     rec.Product.Price,
			CreatedAt: rec.CreatedAt,
		})
	}

	users := make([]userOrders, 0, len(order))
	for _, id := range order {
		users = append(users, *byUser[id])
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"days":  days,
		"total": len(records),
		"users": users,
	})
}

func (s *Server) handleGetRates(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"rates": s.rates.Load(),
	})
}

func (s *Server) handleSetRate(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	var body struct {
		Rate float64 `json:"rate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if err := s.rates.SetRate(code, body.Rate); err != nil {
		if errors.Is(err, types.ErrInvalidRate) {
			s.jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("set rate", "currency", code, "error", err)
		s.jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"currency": code,
		"rate":     body.Rate,
	})
}

// handleConvert prices a product in the local currency: either a raw
// price string (as extracted) or an explicit amount plus currency.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Price    string  `json:"price"`
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	var est rates.Estimate
	switch {
	case body.Price != "":
		var err error
		est, err = s.rates.ConvertPrice(body.Price)
		if err != nil {
			s.jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
	case body.Amount > 0:
		est = s.rates.Convert(body.Amount, body.Currency)
	default:
		s.jsonError(w, http.StatusBadRequest, "provide a price string or a positive amount")
		return
	}

	s.jsonResponse(w, http.StatusOK, est)
}
