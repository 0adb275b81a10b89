package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"opgraph/internal/graph"
	"opgraph/internal/store"
)

const shutdownTimeout = 5 * time.Second

func (s *Server) registerRoutes() {
	api := s.echo.Group("/api")
	api.GET("/operations", s.listOperations)
	api.GET("/problems", s.listProblems)
	api.GET("/problems/:name", s.getProblem)
	api.POST("/problems/:name/compute", s.computeProblem)
	api.GET("/problems/:name/nodes/:id", s.getNode)
	api.PUT("/problems/:name/nodes/:id/answers", s.setAnswers)
}

type categoryView struct {
	Name       string         `json:"name"`
	Operations []graph.OpInfo `json:"operations"`
}

func (s *Server) listOperations(c echo.Context) error {
	var out []categoryView
	for _, info := range s.env.Registry.Infos() {
		if len(out) == 0 || out[len(out)-1].Name != info.Category {
			out = append(out, categoryView{Name: info.Category})
		}
		last := &out[len(out)-1]
		last.Operations = append(last.Operations, info)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) listProblems(c echo.Context) error {
	names, err := s.store.List()
	if err != nil {
		return err
	}
	if names == nil {
		names = []string{}
	}
	return c.JSON(http.StatusOK, names)
}

func (s *Server) getProblem(c echo.Context) error {
	var form graph.ProblemForm
	err := s.do(c.Request().Context(), func() error {
		p, err := s.problem(c.Param("name"))
		if err != nil {
			return err
		}
		form = p.ToForm()
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, form)
}

type computeView struct {
	Nodes []graph.NodeReport `json:"nodes"`
}

// computeProblem brings every pending operation up to date, then saves the
// problem and the new operation records.
func (s *Server) computeProblem(c echo.Context) error {
	var view computeView
	err := s.do(c.Request().Context(), func() error {
		p, err := s.problem(c.Param("name"))
		if err != nil {
			return err
		}
		view.Nodes = graph.Report(p.ComputePending())
		if err := store.SaveProblem(s.store, p); err != nil {
			return err
		}
		return store.RecordTranscripts(s.store, p)
	})
	if err != nil {
		return err
	}
	if view.Nodes == nil {
		view.Nodes = []graph.NodeReport{}
	}
	return c.JSON(http.StatusOK, view)
}

type nodeView struct {
	graph.NodeReport
	Columns []graph.ColumnForm `json:"columns,omitempty"`
	Record  string             `json:"record,omitempty"`
	Plot    string             `json:"plot,omitempty"`
}

func (s *Server) getNode(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "node id must be a number")
	}
	var view nodeView
	err = s.do(c.Request().Context(), func() error {
		p, err := s.problem(c.Param("name"))
		if err != nil {
			return err
		}
		op, ok := p.Operation(id)
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "no operation "+c.Param("id"))
		}
		res := op.CheckCache()
		view.NodeReport = graph.NodeResult{Op: op, Result: res}.Report()
		if res.Status != graph.Ready {
			return nil
		}
		cols, err := op.Columns()
		if err != nil {
			return err
		}
		for _, col := range cols {
			view.Columns = append(view.Columns, graph.ColumnToForm(col))
		}
		view.Record = op.Record()
		view.Plot, err = op.Plot()
		return err
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// setAnswers applies a name to value map of answers. Nothing is recomputed.
func (s *Server) setAnswers(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "node id must be a number")
	}
	var answers map[string]string
	// Only the body holds answers; path parameters must not be bound into them.
	if err := (&echo.DefaultBinder{}).BindBody(c, &answers); err != nil {
		return err
	}
	var view graph.NodeReport
	err = s.do(c.Request().Context(), func() error {
		p, err := s.problem(c.Param("name"))
		if err != nil {
			return err
		}
		op, ok := p.Operation(id)
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "no operation "+c.Param("id"))
		}
		if err := graph.ApplyAnswers(op, answers); err != nil {
			return err
		}
		if err := store.SaveProblem(s.store, p); err != nil {
			return err
		}
		view = graph.NodeReport{ID: op.ID(), Name: op.Name(), Status: "clean"}
		if op.IsDirty() {
			view.Status = "dirty"
		}
		for _, q := range op.Unanswered() {
			view.Questions = append(view.Questions, graph.ReportQuestion(q))
		}
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

type errorView struct {
	Error string `json:"error"`
}

// handleError maps graph and store errors onto status codes.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	var se *graph.StructuralError
	switch {
	case errors.As(err, &he):
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	case errors.Is(err, store.ErrNotFound), errors.Is(err, graph.ErrNotFound):
		code = http.StatusNotFound
	case graph.IsInfoRequired(err):
		code = http.StatusUnprocessableEntity
	case errors.As(err, &se):
		code = http.StatusBadRequest
	case errors.Is(err, ErrStopped):
		code = http.StatusServiceUnavailable
	}
	if code >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", c.Path(), "error", err)
	}
	if err := c.JSON(code, errorView{Error: msg}); err != nil {
		s.log.Warn("writing error response", "error", err)
	}
}
