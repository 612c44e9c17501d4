// Package http exposes read-only run state over HTTP: clearing series,
// order book depth, the trade log, and Prometheus metrics.
package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/maartenscholl/esl/domain/market"
	"github.com/maartenscholl/esl/domain/orderbook"
	"github.com/maartenscholl/esl/domain/simulation"
)

type Server struct {
	organizer *market.Organizer
	auction   *market.Auction
	log       *logrus.Entry
}

func NewServer(organizer *market.Organizer, auction *market.Auction, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		organizer: organizer,
		auction:   auction,
		log:       log.WithField("component", "http"),
	}
}

// Router builds the gin engine. gin's own logger is off; request logging
// goes through logrus like everything else.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.observe())

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if s.organizer != nil {
		r.GET("/market/quotes", s.quotes)
		r.GET("/market/prices", s.prices)
		r.GET("/market/volumes", s.volumes)
	}
	if s.auction != nil {
		r.GET("/auction/trades", s.trades)
		r.GET("/auction/depth/:property", s.depth)
	}
	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) quotes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state":  s.organizer.State().String(),
		"quotes": s.organizer.Quotes(),
	})
}

func (s *Server) prices(c *gin.Context) {
	c.JSON(http.StatusOK, s.organizer.ClearingPrices())
}

func (s *Server) volumes(c *gin.Context) {
	c.JSON(http.StatusOK, s.organizer.Volumes())
}

func (s *Server) trades(c *gin.Context) {
	c.JSON(http.StatusOK, s.auction.Trades())
}

type depthLevel struct {
	Price    orderbook.Price    `json:"price"`
	Quantity orderbook.Quantity `json:"quantity"`
	Orders   int                `json:"orders"`
}

func (s *Server) depth(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("property"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property id"})
		return
	}
	book := s.auction.Book(simulation.PropertyID(id))
	if book == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "property not traded"})
		return
	}

	levels := 10
	if v := c.Query("levels"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			levels = n
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"property": id,
		"bids":     flatten(book.Levels(orderbook.Bid, levels)),
		"asks":     flatten(book.Levels(orderbook.Ask, levels)),
	})
}

func flatten(levels []orderbook.PriceLevel) []depthLevel {
	out := make([]depthLevel, 0, len(levels))
	for _, l := range levels {
		out = append(out, depthLevel{Price: l.Price, Quantity: l.TotalQty, Orders: l.Count})
	}
	return out
}
