package report

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gridwatt/internal/store"
)

// Server is the read-only stats API over the three tables. It never
// writes; the scraper's store owns all writes.
type Server struct {
	store *store.Store
	log   *zap.Logger
}

// NewRouter builds the gin engine with all report routes mounted.
func NewRouter(st *store.Store, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{store: st, log: log}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/api/stats/overview", s.overview)
	router.GET("/api/stats/daily", s.daily)
	router.GET("/api/stats/monthly", s.monthly)

	return router
}

// overview returns the latest yearly row: balance, totals, and the newest
// daily reading.
func (s *Server) overview(c *gin.Context) {
	yearly, err := s.store.LatestYearly(c.Request.Context(), c.Query("account"))
	if err != nil {
		s.log.Error("overview query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if yearly == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}

	lastDate := ""
	if yearly.LastDailyDate != nil {
		lastDate = yearly.LastDailyDate.Format("2006-01-02")
	}
	c.JSON(http.StatusOK, gin.H{
		"account_id":       yearly.AccountID,
		"year":             yearly.Year,
		"balance":          zeroIfNil(yearly.Balance),
		"total_usage":      zeroIfNil(yearly.TotalUsage),
		"total_charge":     zeroIfNil(yearly.TotalCharge),
		"last_daily_date":  lastDate,
		"last_daily_usage": zeroIfNil(yearly.LastDailyUsage),
	})
}

// daily returns the [date, usage] series ordered by date ascending.
func (s *Server) daily(c *gin.Context) {
	records, err := s.store.ListDaily(c.Request.Context(), c.Query("account"))
	if err != nil {
		s.log.Error("daily query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	series := make([][2]any, 0, len(records))
	for _, r := range records {
		series = append(series, [2]any{r.Date.Format("2006-01-02"), r.Usage})
	}
	c.JSON(http.StatusOK, gin.H{"daily": series})
}

// monthly returns per-month usage and charge ordered by year then month.
func (s *Server) monthly(c *gin.Context) {
	records, err := s.store.ListMonthly(c.Request.Context(), c.Query("account"))
	if err != nil {
		s.log.Error("monthly query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	type monthEntry struct {
		Month  string  `json:"month"`
		Usage  float64 `json:"usage"`
		Charge float64 `json:"charge"`
	}
	entries := make([]monthEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, monthEntry{
			Month:  formatYearMonth(r.Year, r.Month),
			Usage:  zeroIfNil(r.Usage),
			Charge: zeroIfNil(r.Charge),
		})
	}
	c.JSON(http.StatusOK, gin.H{"monthly": entries})
}

func zeroIfNil(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func formatYearMonth(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}
