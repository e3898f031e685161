// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package status

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/ramsey/services/ramsey/graph"
)

// HealthResponse is the body of GET /v1/ramsey/health.
type HealthResponse struct {
	Status        string  `json:"status"`
	RunID         string  `json:"run_id"`
	State         string  `json:"state"`
	Solved        bool    `json:"solved"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// GraphResponse is the body of GET /v1/ramsey/graph.
type GraphResponse struct {
	N      int    `json:"n"`
	Format string `json:"format"`
	Red    int    `json:"red_edges"`
	Blue   int    `json:"blue_edges"`
	Body   string `json:"body"`
}

// ErrorResponse is returned for bad requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handlers serves the /v1/ramsey routes.
type Handlers struct {
	source  Source
	started time.Time
}

// RegisterRoutes registers the /ramsey routes under rg (typically /v1).
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	r := rg.Group("/ramsey")
	r.GET("/health", h.Health)
	r.GET("/status", h.Status)
	r.GET("/graph", h.Graph)
}

// Health reports liveness.
func (h *Handlers) Health(c *gin.Context) {
	s := h.source.Stats()
	c.JSON(http.StatusOK, HealthResponse{
		Status:        "ok",
		RunID:         h.source.RunID(),
		State:         s.State,
		Solved:        s.Solved,
		UptimeSeconds: time.Since(h.started).Seconds(),
	})
}

// Status returns the run statistics.
func (h *Handlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.source.Stats())
}

// Graph returns the current coloring in the requested format.
func (h *Handlers) Graph(c *gin.Context) {
	format := c.DefaultQuery("format", "loader")
	g := h.source.Graph()

	var body string
	switch format {
	case "loader":
		body = g.LoaderString()
	case "adjacency":
		body = g.AdjacencyList(graph.Red)
	case "summary":
		body = g.CountSummary() + " " + g.DistributionSummaryString(graph.Red)
	case "mathematica":
		body = g.Mathematica()
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown format " + format})
		return
	}

	red, blue := g.ColorCounts()
	c.JSON(http.StatusOK, GraphResponse{
		N:      g.N(),
		Format: format,
		Red:    red,
		Blue:   blue,
		Body:   body,
	})
}
