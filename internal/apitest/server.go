// Package apitest runs an in-memory fake of the platform's workflow API for tests.
//
// The fake is a gin engine behind an httptest server. It keeps templates,
// instances and execution logs in memory, answers with the same envelope the
// real API uses, and lets a test inject failures per route:
//   - [Server.Fail] makes a route answer success=false with a message
//   - [Server.Break] makes a route answer 502 with a non-JSON body
//   - [Server.Hold] blocks a route until the returned release func is called
//
// [Server.SetLegacyKeys] switches responses to the alternate key spellings
// (workflow_template_id, current_stage_id, nested detail objects, paged
// lists) so clients can be tested against both shapes.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"workflowdesk/internal/model"
)

// Route names a fake API endpoint for failure injection and call counting.
type Route string

// Routes served by the fake.
const (
	RouteListTemplates  Route = "list-templates"
	RouteGetTemplate    Route = "get-template"
	RouteCreateTemplate Route = "create-template"
	RouteUpdateTemplate Route = "update-template"
	RouteCloneTemplate  Route = "clone-template"
	RouteDeleteTemplate Route = "delete-template"
	RouteListInstances  Route = "list-instances"
	RouteGetInstance    Route = "get-instance"
	RouteStart          Route = "start"
	RouteAdvance        Route = "advance"
	RouteComplete       Route = "complete"
	RouteDeleteInstance Route = "delete-instance"
	RouteLogs           Route = "logs"
	RouteStatistics     Route = "statistics"
)

// Server is the fake workflow API.
type Server struct {
	srv *httptest.Server

	mu          sync.Mutex
	templates   []model.Template
	instances   []model.Instance
	logs        map[string][]model.ExecutionLog
	statistics  map[string]any
	legacyKeys  bool
	keepStage   bool
	failures    map[Route]string
	broken      map[Route]bool
	holds       map[Route]chan struct{}
	calls       map[Route]int
	lastHeaders http.Header
}

// New starts a fake server and registers its shutdown with t.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		logs:     make(map[string][]model.ExecutionLog),
		failures: make(map[Route]string),
		broken:   make(map[Route]bool),
		holds:    make(map[Route]chan struct{}),
		calls:    make(map[Route]int),
	}

	r := gin.New()
	g := r.Group("/api/v1/workflows")

	g.GET("/templates/", s.wrap(RouteListTemplates, s.listTemplates))
	g.POST("/templates/", s.wrap(RouteCreateTemplate, s.createTemplate))
	g.GET("/templates/:id/", s.wrap(RouteGetTemplate, s.getTemplate))
	g.PUT("/templates/:id/", s.wrap(RouteUpdateTemplate, s.updateTemplate))
	g.DELETE("/templates/:id/", s.wrap(RouteDeleteTemplate, s.deleteTemplate))
	g.POST("/templates/:id/clone/", s.wrap(RouteCloneTemplate, s.cloneTemplate))

	g.GET("/instances/", s.wrap(RouteListInstances, s.listInstances))
	g.POST("/instances/start/", s.wrap(RouteStart, s.startWorkflow))
	g.GET("/instances/:id/", s.wrap(RouteGetInstance, s.getInstance))
	g.DELETE("/instances/:id/", s.wrap(RouteDeleteInstance, s.deleteInstance))
	g.POST("/instances/:id/advance/", s.wrap(RouteAdvance, s.advance))
	g.POST("/instances/:id/complete/", s.wrap(RouteComplete, s.complete))
	g.GET("/instances/:id/logs/", s.wrap(RouteLogs, s.listLogs))

	g.GET("/statistics/", s.wrap(RouteStatistics, s.getStatistics))

	s.srv = httptest.NewServer(r)
	t.Cleanup(s.srv.Close)
	return s
}

// URL returns the base URL to configure a client with.
func (s *Server) URL() string {
	return s.srv.URL
}

// ========== Controls ==========

// Fail makes route answer {success: false, message} until [Server.Reset].
func (s *Server) Fail(route Route, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = message
}

// Break makes route answer 502 with an HTML body until [Server.Reset].
func (s *Server) Break(route Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broken[route] = true
}

// Hold blocks requests to route until the returned func is called.
// The call is counted before it blocks.
func (s *Server) Hold(route Route) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.holds[route] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.holds, route)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Reset clears injected failures.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.failures)
	clear(s.broken)
}

// Calls returns how many requests route has received.
func (s *Server) Calls(route Route) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// LastHeader returns a header of the most recent request.
func (s *Server) LastHeader(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastHeaders == nil {
		return ""
	}
	return s.lastHeaders.Get(name)
}

// SetLegacyKeys switches responses to the alternate key spellings.
func (s *Server) SetLegacyKeys(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.legacyKeys = on
}

// SetKeepStageOnComplete makes complete leave current_stage set, the way
// some backends report finished workflows.
func (s *Server) SetKeepStageOnComplete(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keepStage = on
}

// SetStatistics replaces the statistics payload. Nil restores the computed one.
func (s *Server) SetStatistics(raw map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statistics = raw
}

// ========== Seeding ==========

// AddTemplate stores a template, assigning ids where missing.
func (s *Server) AddTemplate(t model.Template) model.Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	for i := range t.Stages {
		if t.Stages[i].ID == "" {
			t.Stages[i].ID = uuid.NewString()
		}
	}
	s.templates = append(s.templates, t.Clone())
	return t
}

// AddInstance stores an instance, assigning an id where missing.
func (s *Server) AddInstance(inst model.Instance) model.Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	if inst.Status == "" {
		inst.Status = model.StatusActive
	}
	s.instances = append(s.instances, inst.Clone())
	return inst
}

// Instance returns the stored state of an instance.
func (s *Server) Instance(id string) (model.Instance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.instanceIndex(id); i >= 0 {
		return s.instances[i].Clone(), true
	}
	return model.Instance{}, false
}

// Template returns the stored state of a template.
func (s *Server) Template(id string) (model.Template, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.templateIndex(id); i >= 0 {
		return s.templates[i].Clone(), true
	}
	return model.Template{}, false
}

// SeedPipeline stores a three-stage template (Intake, Review, Filing) and
// one active instance at the first stage.
func (s *Server) SeedPipeline() (model.Template, model.Instance) {
	tpl := s.AddTemplate(model.Template{
		ID:       "tpl-1040",
		Name:     "Individual 1040",
		IsActive: true,
		Stages: []model.Stage{
			{ID: "stage-a", Name: "Intake", UserTypeGroup: model.GroupTaxpayer},
			{ID: "stage-b", Name: "Review", UserTypeGroup: model.GroupPreparer},
			{ID: "stage-c", Name: "Filing", UserTypeGroup: model.GroupAdmin},
		},
		TaxFormType: "1040",
	})
	inst := s.AddInstance(model.Instance{
		ID:             "inst-x",
		TemplateID:     tpl.ID,
		CurrentStageID: "stage-a",
		Status:         model.StatusActive,
		TaxCaseID:      "case-1",
		TaxCaseName:    "Alice Smith",
		TaxCaseEmail:   "alice@example.com",
		PreparerName:   "Pat Preparer",
	})
	return tpl, inst
}

// ========== Plumbing ==========

func (s *Server) wrap(route Route, h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		s.calls[route]++
		s.lastHeaders = c.Request.Header.Clone()
		hold := s.holds[route]
		failure, failing := s.failures[route]
		broken := s.broken[route]
		s.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-c.Request.Context().Done():
				return
			}
		}

		if broken {
			c.Data(http.StatusBadGateway, "text/html", []byte("<html><body>Bad Gateway</body></html>"))
			return
		}
		if failing {
			fail(c, http.StatusBadRequest, failure)
			return
		}
		h(c)
	}
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

func (s *Server) templateIndex(id string) int {
	return slices.IndexFunc(s.templates, func(t model.Template) bool { return t.ID == id })
}

func (s *Server) instanceIndex(id string) int {
	return slices.IndexFunc(s.instances, func(i model.Instance) bool { return i.ID == id })
}

func (s *Server) appendLog(inst model.Instance, action, message string) {
	s.logs[inst.ID] = append(s.logs[inst.ID], model.ExecutionLog{
		ID:         uuid.NewString(),
		InstanceID: inst.ID,
		StageName:  s.stageName(inst),
		Action:     action,
		Message:    message,
		ActorName:  "Fake Admin",
		CreatedAt:  timePtr(time.Now().UTC()),
	})
}

func (s *Server) stageName(inst model.Instance) string {
	i := s.templateIndex(inst.TemplateID)
	if i < 0 {
		return ""
	}
	for _, st := range s.templates[i].Stages {
		if st.ID == inst.CurrentStageID {
			return st.Name
		}
	}
	return ""
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func notFound(c *gin.Context, kind, id string) {
	fail(c, http.StatusNotFound, fmt.Sprintf("%s %s not found", kind, id))
}
