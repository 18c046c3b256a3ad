package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/caretaker/internal/apperr"
	"github.com/zulandar/caretaker/internal/report"
	"github.com/zulandar/caretaker/internal/role"
	"github.com/zulandar/caretaker/internal/task"
	"github.com/zulandar/caretaker/internal/usertask"
)

// ActorHeader carries the id of the acting user. Authentication happens
// upstream.
const ActorHeader = "X-Actor-ID"

const actorKey = "actor"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, s *Server) {
	router.GET("/healthz", s.handleHealth)

	authed := router.Group("/", s.resolveActor)

	templates := authed.Group("/templates")
	templates.GET("", s.handleListTemplates)
	templates.GET("/:id", s.handleGetTemplate)
	templates.POST("", s.requireCap(role.Admin, "create template"), s.handleCreateTemplate)
	templates.POST("/:id/parents", s.requireCap(role.Admin, "link templates"), s.handleAddParent)
	templates.DELETE("/:id/parents/:parentID", s.requireCap(role.Admin, "unlink templates"), s.handleRemoveParent)

	authed.POST("/generate", s.requireCap(role.Supervisor, "run generation"), s.handleGenerate)
	authed.GET("/reports/:date", s.requireCap(role.Supervisor, "export report"), s.handleReport)

	ut := authed.Group("/user-tasks")
	ut.GET("", s.handleListUserTasks)
	ut.GET("/:id", s.handleGetUserTask)
	ut.GET("/:id/children", s.handleUserTaskChildren)
	ut.POST("/:id/start", s.handleStart)
	ut.POST("/:id/complete", s.handleComplete)
	ut.POST("/:id/evidence", s.handleEvidence)
	ut.POST("/:id/validate", s.handleValidate)
	ut.POST("/:id/notes", s.handleNotes)
	ut.DELETE("/:id", s.handleDeleteUserTask)
}

func (s *Server) handleHealth(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		s.log.WithError(err).Warn("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) resolveActor(c *gin.Context) {
	raw := c.GetHeader(ActorHeader)
	if raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: ActorHeader + " header is required", Kind: "unauthenticated"})
		return
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		s.writeError(c, "api.resolveActor", apperr.Invalid(ActorHeader, "%q is not a user id", raw))
		return
	}
	actor, err := role.ResolveActor(s.db.WithContext(c.Request.Context()), uint(id))
	if err != nil {
		s.writeError(c, "api.resolveActor", err)
		return
	}
	c.Set(actorKey, actor)
	c.Next()
}

func (s *Server) requireCap(cap role.Capability, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorFrom(c)
		if !actor.Can(cap) {
			s.writeError(c, "api.requireCap", &apperr.PermissionError{ActorID: actor.UserID, Action: action})
			return
		}
		c.Next()
	}
}

func actorFrom(c *gin.Context) role.Actor {
	v, _ := c.Get(actorKey)
	actor, _ := v.(role.Actor)
	return actor
}

func idParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Invalid(name, "%q is not a valid id", c.Param(name))
	}
	return uint(id), nil
}

func queryID(c *gin.Context, name string) (uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperr.Invalid(name, "%q is not a valid id", raw)
	}
	return uint(id), nil
}

func (s *Server) handleListTemplates(c *gin.Context) {
	const op = "api.listTemplates"
	var f task.ListFilters
	var err error
	if f.AssetID, err = queryID(c, "asset_id"); err != nil {
		s.writeError(c, op, err)
		return
	}
	if f.RoleID, err = queryID(c, "role_id"); err != nil {
		s.writeError(c, op, err)
		return
	}
	if f.GroupID, err = queryID(c, "group_id"); err != nil {
		s.writeError(c, op, err)
		return
	}
	if raw := c.Query("active"); raw != "" {
		active, perr := strconv.ParseBool(raw)
		if perr != nil {
			s.writeError(c, op, apperr.Invalid("active", "%q is not a boolean", raw))
			return
		}
		f.Active = &active
	}

	list, err := task.List(s.db.WithContext(c.Request.Context()), f)
	if err != nil {
		s.writeError(c, op, err)
		return
	}
	out := make([]templateView, len(list))
	for i, t := range list {
		out[i] = toTemplateView(t)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetTemplate(c *gin.Context) {
	const op = "api.getTemplate"
	id, err := idParam(c, "id")
	if err != nil {
		s.writeError(c, op, err)
		return
	}
	t, err := task.Get(s.db.WithContext(c.Request.Context()), id)
	if err != nil {
		s.writeError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, toTemplateView(*t))
}

func (s *Server) handleCreateTemplate(c *gin.Context) {
	const op = "api.createTemplate"
	var opts task.CreateOpts
	if err := c.ShouldBindJSON(&opts); err != nil {
		s.writeError(c, op, apperr.Invalid("body", "%v", err))
		return
	}
	gdb := s.db.WithContext(c.Request.Context())
	created, err := task.Create(gdb, actorFrom(c).UserID, opts)
	if err != nil {
		s.writeError(c, op, err)
		return
	}
	t, err := task.Get(gdb, created.ID)
	if err != nil {
		s.writeError(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, toTemplateView(*t))
}

type parentRequest struct {
	ParentID uint `json:"parent_id"`
}

func (s *Server) handleAddParent(c *gin.Context) {
	const op = "api.addParent"
	id, err := idParam(c, "id")
	if err != nil {
		s.writeError(c, op, err)
		return
	}
	var req parentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ParentID == 0 {
		s.writeError(c, op, apperr.Invalid("parent_id", "is required"))
		return
	}
	gdb := s.db.WithContext(c.Request.Context())
	if err := task.AddParent(gdb, actorFrom(c).UserID, id, req.ParentID); err != nil {
		s.writeError(c, op, err)
		return
	}
	t, err := task.Get(gdb, id)
	if err != nil {
		s.writeError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, toTemplateView(*t))
}

func (s *Server) handleRemoveParent(c *gin.Context) {
	const op = "api.removeParent"
	id, err := idParam(c, "id")
	if err != nil {
		s.writeError(c, op, err)
		return
	}
	parentID, err := idParam(c, "parentID")
	if err != nil {
		s.writeError(c, op, err)
		return
	}
	if err := task.RemoveParent(s.db.WithContext(c.Request.Context()), actorFrom(c).UserID, id, parentID); err != nil {
		s.writeError(c, op, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type generateRequest struct {
	Date string `json:"date"`
}

func (s *Server) handleGenerate(c *gin.Context) {
	const op = "api.generate"
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, op, apperr.Invalid("body", "%v", err))
		return
	}
	res, err := s.generator.GenerateForDate(c.Request.Context(), req.Date)
	if err != nil {
		s.writeError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":      res.RunID,
		"date":        res.Date,
		"templates":   res.Templates,
		"occurrences": res.Occurrences,
		"created":     res.Created,
		"existing":    res.Existing,
		"linked":      res.Linked,
	})
}

func (s *Server) handleReport(c *gin.Context) {
	const op = "api.report"
	date := c.Param("date")
	var buf bytes.Buffer
	if err := report.ExportDay(s.db.WithContext(c.Request.Context()), date, &buf); err != nil {
		s.writeError(c, op, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="caretaker-`+date+`.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (s *Server) handleListUserTasks(c *gin.Context) {
	const op = "api.listUserTasks"
	f := usertask.ListFilters{Date: c.Query("date")}
	var err error
	if f.UserID, err = queryID(c, "user_id"); err != nil {
		s.writeError(c, op, err)
		return
	}
	if f.TaskID, err = queryID(c, "task_id"); err != nil {
		s.writeError(c, op, err)
		return
	}
	if raw := c.Query("status"); raw != "" {
		st, perr := usertask.ParseStatus(raw)
		if perr != nil {
			s.writeError(c, op, perr)
			return
		}
		f.Status = &st
	}

	list, err := s.machine.List(c.Request.Context(), f)
	if err != nil {
		s.writeError(c, op, err)
		return
	}
	out := make([]userTaskView, len(list))
	for i, ut := range list {
		out[i] = toUserTaskView(ut)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetUserTask(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.writeError(c, "api.getUserTask", err)
		return
	}
	s.respondUserTask(c, "api.getUserTask", id, http.StatusOK)
}

func (s *Server) handleUserTaskChildren(c *gin.Context) {
	const op = "api.userTaskChildren"
	id, err := idParam(c, "id")
	if err != nil {
		s.writeError(c, op, err)
		return
	}
	if _, err := s.machine.Get(c.Request.Context(), id); err != nil {
		s.writeError(c, op, err)
		return
	}
	list, err := s.machine.Children(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, op, err)
		return
	}
	out := make([]userTaskView, len(list))
	for i, ut := range list {
		out[i] = toUserTaskView(ut)
	}
	c.JSON(http.StatusOK, out)
}

// respondUserTask renders the current state of a work item.
func (s *Server) respondUserTask(c *gin.Context, op string, id uint, code int) {
	ut, err := s.machine.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, op, err)
		return
	}
	c.JSON(code, toUserTaskView(*ut))
}

func (s *Server) handleStart(c *gin.Context) {
	const op = "api.start"
	id, err := idParam(c, "id")
	if err != nil {
		s.writeError(c, op, err)
		return
	}
	if _, err := s.machine.Start(c.Request.Context(), id, actorFrom(c)); err != nil {
		s.writeError(c, op, err)
		return
	}
	s.respondUserTask(c, op, id, http.StatusOK)
}

func (s *Server) handleComplete(c *gin.Context) {
	const op = "api.complete"
	id, err := idParam(c, "id")
	if err != nil {
		s.writeError(c, op, err)
		return
	}
	var in usertask.CompleteInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			s.writeError(c, op, apperr.Invalid("body", "%v", err))
			return
		}
	}
	if _, err := s.machine.Complete(c.Request.Context(), id, actorFrom(c), in); err != nil {
		s.writeError(c, op, err)
		return
	}
	s.respondUserTask(c, op, id, http.StatusOK)
}

func (s *Server) handleEvidence(c *gin.Context) {
	const op = "api.evidence"
	id, err := idParam(c, "id")
	if err != nil {
		s.writeError(c, op, err)
		return
	}
	var in usertask.EvidenceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.writeError(c, op, apperr.Invalid("body", "%v", err))
		return
	}
	e, err := s.machine.AttachEvidence(c.Request.Context(), id, actorFrom(c), in)
	if err != nil {
		s.writeError(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, toEvidenceView(*e))
}

type noteRequest struct {
	Note string `json:"note"`
}

func (s *Server) handleValidate(c *gin.Context) {
	const op = "api.validate"
	id, err := idParam(c, "id")
	if err != nil {
		s.writeError(c, op, err)
		return
	}
	var req noteRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.writeError(c, op, apperr.Invalid("body", "%v", err))
			return
		}
	}
	if _, err := s.machine.Validate(c.Request.Context(), id, actorFrom(c), req.Note); err != nil {
		s.writeError(c, op, err)
		return
	}
	s.respondUserTask(c, op, id, http.StatusOK)
}

func (s *Server) handleNotes(c *gin.Context) {
	const op = "api.notes"
	id, err := idParam(c, "id")
	if err != nil {
		s.writeError(c, op, err)
		return
	}
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, op, apperr.Invalid("body", "%v", err))
		return
	}
	if _, err := s.machine.Annotate(c.Request.Context(), id, actorFrom(c), req.Note); err != nil {
		s.writeError(c, op, err)
		return
	}
	s.respondUserTask(c, op, id, http.StatusOK)
}

func (s *Server) handleDeleteUserTask(c *gin.Context) {
	const op = "api.deleteUserTask"
	id, err := idParam(c, "id")
	if err != nil {
		s.writeError(c, op, err)
		return
	}
	if err := s.machine.Delete(c.Request.Context(), id, actorFrom(c)); err != nil {
		s.writeError(c, op, err)
		return
	}
	c.Status(http.StatusNoContent)
}
