package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"PredictionLedger/internal/event"
	"PredictionLedger/internal/ingestion"
	"PredictionLedger/internal/observability"
	"PredictionLedger/internal/projection"
	"PredictionLedger/internal/query"
	"PredictionLedger/internal/state"
)

// SubmitRequest carries an event into the core loop and waits for the
// processing outcome. Reply receives exactly one value.
type SubmitRequest struct {
	Event event.Event
	Reply chan error
}

// HTTPServer serves the query API, the synchronous submit path, and the
// operational endpoints (health, metrics).
type HTTPServer struct {
	engine        *gin.Engine
	srv           *http.Server
	queryService  *query.QueryService
	submitChan    chan<- SubmitRequest
	healthChecker *observability.HealthChecker
	settlements   *projection.SettlementHistoryProjection
	submitTimeout time.Duration
}

func NewHTTPServer(
	addr string,
	qs *query.QueryService,
	submitChan chan<- SubmitRequest,
	hc *observability.HealthChecker,
	settlements *projection.SettlementHistoryProjection,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &HTTPServer{
		engine:        engine,
		queryService:  qs,
		submitChan:    submitChan,
		healthChecker: hc,
		settlements:   settlements,
		submitTimeout: 10 * time.Second,
	}
	s.registerRoutes()

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

func (s *HTTPServer) registerRoutes() {
	s.engine.GET("/healthz", gin.WrapF(s.healthChecker.LivenessHandler))
	s.engine.GET("/readyz", gin.WrapF(s.healthChecker.ReadinessHandler))
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/api/v1")
	v1.POST("/events", s.submitEvent)

	v1.GET("/platform", s.platformStats)
	v1.GET("/markets", s.listMarkets)
	v1.GET("/markets/:addr", s.getMarket)
	v1.GET("/markets/:addr/bets", s.listMarketBets)
	v1.GET("/markets/:addr/payout-preview", s.previewPayout)
	v1.GET("/bettors/:bettor/balance", s.getBalance)
	v1.GET("/bettors/:bettor/bets", s.listBettorBets)
	v1.GET("/bettors/:bettor/journal", s.journalHistory)
	v1.GET("/bettors/:bettor/settlements", s.settlementHistory)
	v1.GET("/bettors/:bettor/bets/:market", s.getBet)
	v1.GET("/cards/:mint", s.getCard)
	v1.GET("/cards", s.listCards)
	v1.GET("/integrity", s.verifyIntegrity)
}

// Run starts the HTTP server (blocking) and shuts down when ctx is cancelled.
func (s *HTTPServer) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func respondOK(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{Code: 0, Message: "ok", Data: data, Meta: meta})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, apiResponse{Code: status, Message: message})
}

// --- Submit path ---

type submitEventJSON struct {
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

// submitEvent parses an event from the request body, hands it to the core
// loop, and waits for the processing outcome. Events accepted here flow
// through the same pipeline as NATS-delivered ones.
func (s *HTTPServer) submitEvent(c *gin.Context) {
	var body submitEventJSON
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if body.EventType == "" {
		respondError(c, http.StatusBadRequest, "event_type is required")
		return
	}

	raw := ingestion.RawEvent{
		Subject:   "http",
		Data:      body.Payload,
		Timestamp: time.Now(),
	}
	evt, err := ingestion.ParseRawEvent(raw, body.EventType)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	req := SubmitRequest{Event: evt, Reply: make(chan error, 1)}
	select {
	case s.submitChan <- req:
	case <-time.After(s.submitTimeout):
		respondError(c, http.StatusServiceUnavailable, "core busy")
		return
	case <-c.Request.Context().Done():
		return
	}

	select {
	case err := <-req.Reply:
		if err != nil {
			respondError(c, statusForError(err), err.Error())
			return
		}
		respondOK(c, gin.H{
			"event_type":      body.EventType,
			"idempotency_key": evt.IdempotencyKey(),
		}, nil)
	case <-time.After(s.submitTimeout):
		respondError(c, http.StatusGatewayTimeout, "processing timed out")
	case <-c.Request.Context().Done():
	}
}

// statusForError maps settlement errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, state.ErrMarketNotFound),
		errors.Is(err, state.ErrBetNotFound),
		errors.Is(err, state.ErrCardNotFound),
		errors.Is(err, state.ErrPlatformNotInitialized):
		return http.StatusNotFound

	case errors.Is(err, state.ErrUnauthorized),
		errors.Is(err, state.ErrNotCardOwner):
		return http.StatusForbidden

	case errors.Is(err, state.ErrMarketExists),
		errors.Is(err, state.ErrBetExists),
		errors.Is(err, state.ErrCardExists),
		errors.Is(err, state.ErrPlatformExists),
		errors.Is(err, state.ErrMarketAlreadyResolved),
		errors.Is(err, state.ErrAlreadyClaimed),
		errors.Is(err, state.ErrFeeAlreadyCollected):
		return http.StatusConflict

	case errors.Is(err, state.ErrQuestionTooLong),
		errors.Is(err, state.ErrDescriptionTooLong),
		errors.Is(err, state.ErrInvalidEndTime),
		errors.Is(err, state.ErrInvalidAmount),
		errors.Is(err, state.ErrInvalidCardTraits),
		errors.Is(err, state.ErrBattleSameCard),
		errors.Is(err, state.ErrInvalidPriceFeed),
		errors.Is(err, state.ErrOracleConfigRequired):
		return http.StatusBadRequest

	default:
		return http.StatusUnprocessableEntity
	}
}

// --- Query handlers ---

func (s *HTTPServer) getBalance(c *gin.Context) {
	resp, err := s.queryService.GetBalance(c.Request.Context(), c.Param("bettor"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, resp, nil)
}

func (s *HTTPServer) platformStats(c *gin.Context) {
	resp, err := s.queryService.GetPlatformStats(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, resp, nil)
}

func (s *HTTPServer) getMarket(c *gin.Context) {
	resp, err := s.queryService.GetMarket(c.Request.Context(), c.Param("addr"))
	if err != nil {
		if errors.Is(err, query.ErrNotFound) {
			respondError(c, http.StatusNotFound, "market not found")
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, resp, nil)
}

func (s *HTTPServer) listMarkets(c *gin.Context) {
	var category *int32
	if v := strings.TrimSpace(c.Query("category")); v != "" {
		cat, err := state.ParseMarketCategory(v)
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		cv := int32(cat)
		category = &cv
	}
	var resolved *bool
	if v := strings.TrimSpace(c.Query("resolved")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid resolved filter")
			return
		}
		resolved = &b
	}
	limit := intQuery(c, "limit", 50)
	beforeCreated := int64QueryPtr(c, "before_created")

	markets, err := s.queryService.ListMarkets(c.Request.Context(), category, resolved, limit, beforeCreated)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, markets, map[string]any{"limit": limit, "count": len(markets)})
}

func (s *HTTPServer) getBet(c *gin.Context) {
	resp, err := s.queryService.GetBet(c.Request.Context(), c.Param("market"), c.Param("bettor"))
	if err != nil {
		if errors.Is(err, query.ErrNotFound) {
			respondError(c, http.StatusNotFound, "bet not found")
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, resp, nil)
}

func (s *HTTPServer) listBettorBets(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	beforePlaced := int64QueryPtr(c, "before_placed")

	bets, err := s.queryService.ListBetsByBettor(c.Request.Context(), c.Param("bettor"), limit, beforePlaced)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, bets, map[string]any{"limit": limit, "count": len(bets)})
}

func (s *HTTPServer) listMarketBets(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	beforePlaced := int64QueryPtr(c, "before_placed")

	bets, err := s.queryService.ListBetsByMarket(c.Request.Context(), c.Param("addr"), limit, beforePlaced)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, bets, map[string]any{"limit": limit, "count": len(bets)})
}

func (s *HTTPServer) getCard(c *gin.Context) {
	resp, err := s.queryService.GetCard(c.Request.Context(), c.Param("mint"))
	if err != nil {
		if errors.Is(err, query.ErrNotFound) {
			respondError(c, http.StatusNotFound, "card not found")
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, resp, nil)
}

func (s *HTTPServer) listCards(c *gin.Context) {
	owner := strings.TrimSpace(c.Query("owner"))
	if owner == "" {
		respondError(c, http.StatusBadRequest, "owner query parameter is required")
		return
	}
	cards, err := s.queryService.ListCardsByOwner(c.Request.Context(), owner)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, cards, map[string]any{"count": len(cards)})
}

func (s *HTTPServer) previewPayout(c *gin.Context) {
	bettor := strings.TrimSpace(c.Query("bettor"))
	if bettor == "" {
		respondError(c, http.StatusBadRequest, "bettor query parameter is required")
		return
	}
	preview, err := s.queryService.PreviewPayout(c.Request.Context(), c.Param("addr"), bettor)
	if err != nil {
		if errors.Is(err, query.ErrNotFound) {
			respondError(c, http.StatusNotFound, "market or bet not found")
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, preview, nil)
}

func (s *HTTPServer) journalHistory(c *gin.Context) {
	limit := intQuery(c, "limit", 100)
	afterSequence := int64QueryPtr(c, "after_sequence")

	entries, err := s.queryService.GetJournalHistory(c.Request.Context(), c.Param("bettor"), limit, afterSequence)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, entries, map[string]any{"limit": limit, "count": len(entries)})
}

// settlementHistory serves the in-memory wallet movement projection. It
// only covers events processed since startup; /journal is the durable view.
func (s *HTTPServer) settlementHistory(c *gin.Context) {
	limit := intQuery(c, "limit", 100)

	entries := s.settlements.QueryByBettor(c.Param("bettor"), limit)
	respondOK(c, entries, map[string]any{"limit": limit, "count": len(entries)})
}

func (s *HTTPServer) verifyIntegrity(c *gin.Context) {
	report, err := s.queryService.VerifyIntegrity(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	status := http.StatusOK
	if !report.IsHealthy {
		status = http.StatusConflict
	}
	c.JSON(status, apiResponse{Code: 0, Message: "ok", Data: report})
}

// --- Query helpers ---

func intQuery(c *gin.Context, key string, def int) int {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func int64QueryPtr(c *gin.Context, key string) *int64 {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
