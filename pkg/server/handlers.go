package server

import (
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/elonfeng/clawbeat/internal/store"
	"github.com/elonfeng/clawbeat/pkg/dispatch"
	"github.com/elonfeng/clawbeat/pkg/source"
)

func (s *Server) handleHealth(c *gin.Context) {
	if _, err := s.repo.CountItemsBySource(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "disconnected"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "connected"})
}

func (s *Server) handleDispatch(c *gin.Context) {
	page := queryInt(c, "page", 1)
	size := queryInt(c, "page_size", s.opts.PageSize)
	if size < 1 {
		size = s.opts.PageSize
	}
	if size > s.opts.MaxPageSize {
		size = s.opts.MaxPageSize
	}

	snap, err := s.repo.Snapshot(c.Request.Context(), s.opts.Window)
	if err != nil {
		slog.Error("load snapshot", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	view := s.curator.Page(snap, page, size)
	for i := range view.Days {
		day := &view.Days[i]
		day.Spotlight = displaySlots(day.Spotlight)
		for j := range day.River {
			day.River[j].NewsItem = displayItem(day.River[j].NewsItem)
		}
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleSpotlight(c *gin.Context) {
	date := c.Param("date")
	ord := dispatch.ParseDispatchDate(date)
	if ord == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be MM-DD-YYYY"})
		return
	}

	snap, err := s.repo.Snapshot(c.Request.Context(), s.opts.Window)
	if err != nil {
		slog.Error("load snapshot", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	slots := displaySlots(s.curator.Spotlight(snap, ord.Key()))
	c.JSON(http.StatusOK, gin.H{
		"date":  ord.Key(),
		"slots": lo.Ternary(slots == nil, []dispatch.Slot{}, slots),
	})
}

func (s *Server) handleItems(c *gin.Context) {
	opts := store.ListOpts{
		Date:   c.Query("date"),
		Source: c.Query("source"),
		Limit:  min(max(queryInt(c, "limit", 100), 1), 500),
	}

	items, err := s.repo.ListNewsItems(c.Request.Context(), opts)
	if err != nil {
		slog.Error("list items", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  lo.Map(items, func(item dispatch.NewsItem, _ int) dispatch.NewsItem { return displayItem(item) }),
		"count": len(items),
	})
}

func (s *Server) handleOverrides(c *gin.Context) {
	overrides, err := s.repo.ListOverrides(c.Request.Context(), c.Query("date"))
	if err != nil {
		slog.Error("list overrides", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  lo.Ternary(overrides == nil, []dispatch.Override{}, overrides),
		"count": len(overrides),
	})
}

func (s *Server) handleSources(c *gin.Context) {
	counts, err := s.repo.CountItemsBySource(c.Request.Context())
	if err != nil {
		slog.Error("count items by source", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	type sourceInfo struct {
		Name  string `json:"name"`
		Items int    `json:"items"`
	}

	names := lo.Keys(counts)
	slices.Sort(names)
	infos := lo.Map(names, func(name string, _ int) sourceInfo {
		return sourceInfo{Name: source.DisplaySource(name), Items: counts[name]}
	})

	c.JSON(http.StatusOK, gin.H{
		"data":  infos,
		"count": len(infos),
	})
}

func (s *Server) handleCollect(c *gin.Context) {
	if s.collector == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "collection disabled"})
		return
	}

	res, err := s.collector.Run(c.Request.Context())
	if err != nil {
		slog.Error("collect", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "result": res})
		return
	}
	c.JSON(http.StatusOK, res)
}

func queryInt(c *gin.Context, name string, defaultValue int) int {
	raw := c.Query(name)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("invalid query parameter, using default", "param", name, "value", raw)
		return defaultValue
	}
	return v
}

func displayItem(item dispatch.NewsItem) dispatch.NewsItem {
	item.Source = source.DisplaySource(item.Source)
	if len(item.MoreCoverage) > 0 {
		item.MoreCoverage = lo.Map(item.MoreCoverage, func(cv dispatch.Coverage, _ int) dispatch.Coverage {
			cv.Source = source.DisplaySource(cv.Source)
			return cv
		})
	}
	return item
}

func displaySlots(slots []dispatch.Slot) []dispatch.Slot {
	for i := range slots {
		slots[i].Source = source.DisplaySource(slots[i].Source)
	}
	return slots
}
