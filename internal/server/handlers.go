package server

import (
	"context"
	"errors"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	geojson "github.com/paulmach/go.geojson"

	cluster "github.com/MadAppGang/animcluster"
	"github.com/MadAppGang/animcluster/internal/tween"
)

type createViewRequest struct {
	Markers        geojson.FeatureCollection `json:"markers"`
	ViewportHeight float64                   `json:"viewport_height"`
	Device         cluster.Device            `json:"device"`
	Options        *cluster.Options          `json:"options,omitempty"`
}

type createViewResponse struct {
	ID      uuid.UUID       `json:"id"`
	Markers int             `json:"markers"`
	Options cluster.Options `json:"options"`
}

// Press targets
const (
	PressNone    = "none"
	PressMarker  = "marker"
	PressCluster = "cluster"
)

type pressResponse struct {
	Kind    string           `json:"kind"`
	Index   *int             `json:"index,omitempty"`
	Point   *cluster.Point   `json:"point,omitempty"`
	Cluster *cluster.Cluster `json:"cluster,omitempty"`
}

func (s *Server) createView(c *gin.Context) {
	var req createViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if err := cluster.ValidateFeatures(req.Markers.Features); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	opts := *s.cfg.Options
	if req.Options != nil {
		opts = *req.Options
	}
	if err := opts.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := uuid.New()
	surface := tween.NewSurface(s.clock)
	view := cluster.NewView(surface, opts)
	view.Logger = s.logger.With("view_id", id.String())
	view.Metrics = s.cfg.Metrics
	view.Clock = s.clock
	view.SetViewportHeight(req.ViewportHeight)
	view.SetDevice(req.Device)
	if err := view.SetMarkers(cluster.GeoPoints(req.Markers.Features)); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	if s.cfg.MaxViews > 0 && len(s.views) >= s.cfg.MaxViews {
		s.mu.Unlock()
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many views"})
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	sess := &session{
		loop:    cluster.NewLoop(view),
		surface: surface,
		cancel:  cancel,
		created: s.clock.Now(),
	}
	s.views[id] = sess
	s.mu.Unlock()

	go func() {
		if err := sess.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			view.Logger.Error("view loop stopped", "error", err)
		}
	}()

	s.logger.Info("view created", "view_id", id.String(), "markers", len(req.Markers.Features))
	c.JSON(http.StatusCreated, createViewResponse{ID: id, Markers: len(req.Markers.Features), Options: opts})
}

func (s *Server) deleteView(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid view id"})
		return
	}
	s.mu.Lock()
	sess, ok := s.views[id]
	delete(s.views, id)
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "View not found"})
		return
	}

	sess.cancel()
	<-sess.loop.Done()
	s.logger.Info("view deleted", "view_id", id.String(), "age", s.clock.Since(sess.created).String())
	c.Status(http.StatusNoContent)
}

func (s *Server) getView(c *gin.Context, _ uuid.UUID, sess *session) {
	var snap cluster.Snapshot
	if !s.do(c, sess, func(v *cluster.View) { snap = v.Snapshot() }) {
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) postRegion(c *gin.Context, _ uuid.UUID, sess *session) {
	region, ok := bindRegion(c)
	if !ok {
		return
	}
	sess.loop.PostRegion(region)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (s *Server) syncRegion(c *gin.Context, _ uuid.UUID, sess *session) {
	region, ok := bindRegion(c)
	if !ok {
		return
	}
	var (
		plan cluster.Plan
		err  error
	)
	if !s.do(c, sess, func(v *cluster.View) { plan, err = v.RegionChanged(region) }) {
		return
	}
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (s *Server) press(c *gin.Context, _ uuid.UUID, sess *session) {
	var p cluster.Point
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid point: " + err.Error()})
		return
	}

	resp := pressResponse{Kind: PressNone}
	ok := s.do(c, sess, func(v *cluster.View) {
		v.OnPressMarker = func(pt cluster.Point, index int) {
			resp = pressResponse{Kind: PressMarker, Index: &index, Point: &pt}
		}
		v.OnPressCluster = func(cl cluster.Cluster) {
			resp = pressResponse{Kind: PressCluster, Cluster: &cl}
		}
		v.Press(p)
		v.OnPressMarker, v.OnPressCluster = nil, nil
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) fit(c *gin.Context, _ uuid.UUID, sess *session) {
	var (
		region cluster.Region
		err    error
	)
	if !s.do(c, sess, func(v *cluster.View) { region, err = v.FitRegion() }) {
		return
	}
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, region)
}

func bindRegion(c *gin.Context) (cluster.Region, bool) {
	var r cluster.Region
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid region: " + err.Error()})
		return r, false
	}
	for _, f := range []float64{r.Lat, r.Lon, r.LatDelta, r.LonDelta} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid region: coordinates must be finite"})
			return r, false
		}
	}
	if r.LatDelta <= 0 || r.LonDelta < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid region: latitudeDelta must be positive"})
		return r, false
	}
	return r, true
}
