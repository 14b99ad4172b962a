package cmd

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"cosmossdk.io/log"
	"github.com/gin-gonic/gin"

	"github.com/strangelove-ventures/oapp-wirer/reconcile"
	"github.com/strangelove-ventures/oapp-wirer/topology"
	"github.com/strangelove-ventures/oapp-wirer/types"
)

const defaultAPIListen = "localhost:8000"

type statusAPI struct {
	engine  *reconcile.Engine
	state   *types.StateMap
	trigger chan<- string
}

func newRouter(engine *reconcile.Engine, state *types.StateMap, trigger chan<- string, trustedProxies []string) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		return nil, err
	}

	s := &statusAPI{engine: engine, state: state, trigger: trigger}
	router.GET("/report", s.getReport)
	router.GET("/pathways", s.getPathways)
	router.GET("/pathways/:from/:to", s.getPathway)
	router.POST("/reconcile", s.postReconcile)
	return router, nil
}

func (s *statusAPI) getReport(c *gin.Context) {
	report := s.engine.LastReport()
	if report == nil {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "no run has completed yet"})
		return
	}
	c.IndentedJSON(http.StatusOK, report)
}

func (s *statusAPI) getPathways(c *gin.Context) {
	states := s.state.All()
	sort.Slice(states, func(i, j int) bool { return states[i].Pathway < states[j].Pathway })
	c.IndentedJSON(http.StatusOK, states)
}

func (s *statusAPI) getPathway(c *gin.Context) {
	from, err := strconv.ParseUint(c.Param("from"), 10, 32)
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "invalid source eid"})
		return
	}
	to, err := strconv.ParseUint(c.Param("to"), 10, 32)
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "invalid destination eid"})
		return
	}

	if state, ok := s.state.Load(topology.PathwayKey(types.EID(from), types.EID(to))); ok {
		c.IndentedJSON(http.StatusOK, state)
		return
	}
	c.IndentedJSON(http.StatusNotFound, gin.H{"message": "pathway not found"})
}

// postReconcile schedules a run. Requests arriving while one is already pending coalesce.
func (s *statusAPI) postReconcile(c *gin.Context) {
	select {
	case s.trigger <- "api":
		c.IndentedJSON(http.StatusAccepted, gin.H{"message": "reconciliation scheduled"})
	default:
		c.IndentedJSON(http.StatusAccepted, gin.H{"message": "reconciliation already pending"})
	}
}

// serveAPI serves handler on listen until ctx is done.
func serveAPI(ctx context.Context, logger log.Logger, listen string, handler http.Handler) {
	if listen == "" {
		listen = defaultAPIListen
	}
	srv := &http.Server{Addr: listen, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Starting status API", "listen", listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Status API stopped", "err", err)
	}
}
