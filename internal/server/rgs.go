package server

import (
	"fmt"
	"net/http"
	"os"
	"sync"

	"reelsync/encoding"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"
	"github.com/yola1107/kratos/v2/log"
)

// StubRound is one recorded round the stub can serve.
type StubRound struct {
	Mode             string              `json:"mode"`             // BASE or BONUS
	PayoutMultiplier decimal.Decimal     `json:"payoutMultiplier"` // payout in stakes
	CostMultiplier   decimal.Decimal     `json:"costMultiplier"`
	State            encoding.RawMessage `json:"state"`
}

// StubBook configures the stub.
type StubBook struct {
	Currency     string               `json:"currency"`
	StartBalance int64                `json:"startBalance"`
	BetLevels    []int64              `json:"betLevels"`
	DefaultBet   int64                `json:"defaultBetLevel"`
	Rounds       []StubRound          `json:"rounds"`
	Replays      map[string]StubRound `json:"replays"` // game/version/mode/event
}

// LoadStubBook reads a book from a json file.
func LoadStubBook(path string) (*StubBook, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	book := new(StubBook)
	if err := encoding.Unmarshal(b, book); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return book, nil
}

type stubSession struct {
	balance int64
	pending int64 // payout credited on end-round
	active  *StubRound
}

type rgsStub struct {
	book *StubBook
	log  *log.Helper

	mu       sync.Mutex
	sessions map[string]*stubSession
	next     map[string]int // per mode round cursor
}

// NewRGSStub serves recorded rounds over the rgs wallet contract.
func NewRGSStub(book *StubBook, logger log.Logger) http.Handler {
	s := &rgsStub{
		book:     book,
		log:      log.NewHelper(log.With(logger, "module", "server/rgs-stub")),
		sessions: make(map[string]*stubSession),
		next:     make(map[string]int),
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))
	r.Post("/wallet/authenticate", s.authenticate)
	r.Post("/wallet/play", s.play)
	r.Post("/wallet/end-round", s.endRound)
	r.Get("/bet/replay/{game}/{version}/{mode}/{event}", s.replay)
	return r
}

type stubBalance struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type stubRoundReply struct {
	Active           bool                `json:"active"`
	Payout           int64               `json:"payout"`
	PayoutMultiplier float64             `json:"payoutMultiplier"`
	State            encoding.RawMessage `json:"state"`
}

func (s *rgsStub) session(id string) *stubSession {
	ss, ok := s.sessions[id]
	if !ok {
		ss = &stubSession{balance: s.book.StartBalance}
		s.sessions[id] = ss
	}
	return ss
}

func (s *rgsStub) balance(ss *stubSession) stubBalance {
	return stubBalance{Amount: ss.balance, Currency: s.book.Currency}
}

func (s *rgsStub) roundReply(ss *stubSession) *stubRoundReply {
	if ss.active == nil {
		return nil
	}
	return &stubRoundReply{
		Active:           true,
		Payout:           ss.pending,
		PayoutMultiplier: ss.active.PayoutMultiplier.InexactFloat64(),
		State:            ss.active.State,
	}
}

func (s *rgsStub) authenticate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionID"`
	}
	if err := decodeBody(r, &req); err != nil || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "ERR_IS", "invalid session")
		return
	}
	s.mu.Lock()
	ss := s.session(req.SessionID)
	reply := map[string]any{
		"balance": s.balance(ss),
		"config": map[string]any{
			"betLevels":       s.book.BetLevels,
			"defaultBetLevel": s.book.DefaultBet,
		},
		"round": s.roundReply(ss),
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, reply)
}

func (s *rgsStub) play(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionID"`
		Amount    int64  `json:"amount"`
		Mode      string `json:"mode"`
	}
	if err := decodeBody(r, &req); err != nil || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "ERR_IS", "invalid session")
		return
	}
	if !s.allowed(req.Amount) {
		writeError(w, http.StatusBadRequest, "ERR_VAL", "invalid bet amount")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ss := s.session(req.SessionID)
	if ss.active != nil {
		writeError(w, http.StatusBadRequest, "ERR_ATE", "round still active")
		return
	}
	round, ok := s.pick(req.Mode)
	if !ok {
		writeError(w, http.StatusNotFound, "ERR_NF", "no recorded round for mode "+req.Mode)
		return
	}
	cost := round.CostMultiplier
	if cost.IsZero() {
		cost = decimal.NewFromInt(1)
	}
	debit := cost.Mul(decimal.NewFromInt(req.Amount)).IntPart()
	if debit > ss.balance {
		writeError(w, http.StatusBadRequest, "ERR_IPB", "insufficient balance")
		return
	}
	ss.balance -= debit
	payout := round.PayoutMultiplier.Mul(decimal.NewFromInt(req.Amount)).IntPart()
	reply := &stubRoundReply{
		Payout:           payout,
		PayoutMultiplier: round.PayoutMultiplier.InexactFloat64(),
		State:            round.State,
	}
	if payout > 0 {
		ss.active, ss.pending = &round, payout
		reply.Active = true
	}
	s.log.Debugw("msg", "play", "session", req.SessionID, "debit", debit, "payout", payout)
	writeJSON(w, http.StatusOK, map[string]any{"balance": s.balance(ss), "round": reply})
}

func (s *rgsStub) endRound(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionID"`
	}
	if err := decodeBody(r, &req); err != nil || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "ERR_IS", "invalid session")
		return
	}
	s.mu.Lock()
	ss := s.session(req.SessionID)
	ss.balance += ss.pending
	ss.pending, ss.active = 0, nil
	bal := s.balance(ss)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"balance": bal})
}

func (s *rgsStub) replay(w http.ResponseWriter, r *http.Request) {
	key := fmt.Sprintf("%s/%s/%s/%s",
		chi.URLParam(r, "game"), chi.URLParam(r, "version"), chi.URLParam(r, "mode"), chi.URLParam(r, "event"))
	round, ok := s.book.Replays[key]
	if !ok {
		writeError(w, http.StatusNotFound, "ERR_NF", "replay not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"payoutMultiplier": round.PayoutMultiplier,
		"costMultiplier":   round.CostMultiplier,
		"state":            round.State,
	})
}

func (s *rgsStub) allowed(amount int64) bool {
	if amount <= 0 {
		return false
	}
	if len(s.book.BetLevels) == 0 {
		return true
	}
	for _, l := range s.book.BetLevels {
		if l == amount {
			return true
		}
	}
	return false
}

// pick returns the next recorded round of a mode, cycling through the book.
func (s *rgsStub) pick(mode string) (StubRound, bool) {
	var candidates []StubRound
	for _, r := range s.book.Rounds {
		if r.Mode == mode || (r.Mode == "" && mode == "BASE") {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return StubRound{}, false
	}
	i := s.next[mode] % len(candidates)
	s.next[mode]++
	return candidates[i], true
}

func decodeBody(r *http.Request, v any) error {
	return encoding.JSON.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = encoding.JSON.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": code, "message": msg})
}
