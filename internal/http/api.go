package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"garden-attendance/internal/collector"
	"garden-attendance/internal/domain"
	"garden-attendance/internal/export"
	"garden-attendance/internal/render"
	"garden-attendance/internal/service"
	"garden-attendance/internal/storage"
)

const defaultReportDays = 10

// Options carries the services the HTTP layer depends on. Collector, Notify and
// Publisher may be nil when the matching integration is not configured.
type Options struct {
	Attendance   service.AttendanceService
	Collect      service.CollectService
	Collector    collector.Manager
	Notify       service.NotifyService
	Operators    service.OperatorService
	Publisher    *export.Publisher
	Members      map[string]domain.Member
	JWTSecret    string
	TokenTTL     time.Duration
	LookbackDays int
	Logger       logrus.FieldLogger
	Now          func() time.Time
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	attendance   service.AttendanceService
	collect      service.CollectService
	collector    collector.Manager
	notify       service.NotifyService
	operators    service.OperatorService
	publisher    *export.Publisher
	members      map[string]domain.Member
	jwtSecret    []byte
	tokenTTL     time.Duration
	lookbackDays int
	logger       logrus.FieldLogger
	now          func() time.Time
}

func NewHandler(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 12 * time.Hour
	}
	return &Handler{
		attendance:   opts.Attendance,
		collect:      opts.Collect,
		collector:    opts.Collector,
		notify:       opts.Notify,
		operators:    opts.Operators,
		publisher:    opts.Publisher,
		members:      opts.Members,
		jwtSecret:    []byte(strings.TrimSpace(opts.JWTSecret)),
		tokenTTL:     opts.TokenTTL,
		lookbackDays: opts.LookbackDays,
		logger:       opts.Logger,
		now:          opts.Now,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware(), requestLogger(h.logger))
	router.SetHTMLTemplate(render.Templates())

	router.GET("/", h.index)

	attendance := router.Group("/attendance")
	{
		attendance.GET("/get/:date", h.getAttendance)
		attendance.GET("/table/:date", h.attendanceTable)
		attendance.GET("/user/:user", h.userHistory)
		attendance.GET("/members", h.listMembers)
		attendance.GET("/csv", h.downloadReport(export.FormatCSV))
		attendance.GET("/xlsx", h.downloadReport(export.FormatXLSX))

		protected := attendance.Group("", h.authRequired())
		protected.POST("/collect", h.collectMessages)
		protected.GET("/collect/status", h.collectStatus)
		protected.POST("/notify", h.notifyNoShows)
	}

	api := router.Group("/api")
	{
		api.POST("/auth/register", h.register)
		api.POST("/auth/login", h.login)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		protected := api.Group("", h.authRequired())
		protected.POST("/exports", h.publishReport)
		protected.GET("/exports", h.listReports)
		protected.DELETE("/exports", h.purgeReports)
		protected.DELETE("/messages", h.deleteMessages)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  status,
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case len(c.Errors) > 0:
			entry.Warn(c.Errors.String())
		default:
			entry.Info("request")
		}
	}
}

func (h *Handler) index(c *gin.Context) {
	loc := h.attendance.Location()
	c.HTML(http.StatusOK, "index.html", render.IndexData{
		Today:     h.now().In(loc).Format(domain.DateLayout),
		StartDate: h.attendance.StartDate(),
	})
}

func (h *Handler) getAttendance(c *gin.Context) {
	rows, err := h.attendance.GetAttendance(c.Request.Context(), c.Param("date"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	loc := h.attendance.Location()
	resp := make([]AttendanceResponse, len(rows))
	for i := range rows {
		resp[i] = attendanceToResponse(rows[i], loc)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) attendanceTable(c *gin.Context) {
	rows, err := h.attendance.GetAttendance(c.Request.Context(), c.Param("date"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	table, err := render.AttendanceTable(rows, h.attendance.Location())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(table))
}

func (h *Handler) userHistory(c *gin.Context) {
	user := strings.TrimSpace(c.Param("user"))
	history, err := h.attendance.UserHistory(c.Request.Context(), user)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	loc := h.attendance.Location()
	days := make([]DayResponse, len(history))
	for i := range history {
		days[i] = dayToResponse(history[i], loc)
	}
	c.JSON(http.StatusOK, gin.H{user: days})
}

func (h *Handler) listMembers(c *gin.Context) {
	users := h.attendance.Users()
	resp := make([]MemberResponse, len(users))
	for i, user := range users {
		member := h.members[user]
		resp[i] = MemberResponse{
			User:       user,
			Slack:      member.Slack,
			Telegram:   member.Telegram,
			AvatarURL:  render.AvatarURL(user),
			ProfileURL: render.ProfileURL(user),
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) downloadReport(format string) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := h.matrixFromQuery(c)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}

		body, contentType, err := export.Render(format, m, h.attendance.Location())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(m, format)))
		c.Data(http.StatusOK, contentType, body)
	}
}

func (h *Handler) matrixFromQuery(c *gin.Context) (*service.Matrix, error) {
	start := c.DefaultQuery("start", h.attendance.StartDate())
	days, err := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(defaultReportDays)))
	if err != nil {
		return nil, fmt.Errorf("%w: days must be a number", service.ErrInvalidDate)
	}
	return h.attendance.Matrix(c.Request.Context(), start, days)
}

func (h *Handler) collectMessages(c *gin.Context) {
	if h.collector == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "slack collection not configured"})
		return
	}

	oldest, latest := collector.Window(h.now(), h.lookbackDays)
	loc := h.attendance.Location()
	if v := c.Query("start"); v != "" {
		day, err := service.ParseDate(v, loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		oldest = day
	}
	if v := c.Query("end"); v != "" {
		day, err := service.ParseDate(v, loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		// end is inclusive
		latest = day.AddDate(0, 0, 1)
	}

	result, err := h.collector.Trigger(c.Request.Context(), oldest, latest)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, CollectResponse{
		Oldest: oldest.Format(time.RFC3339),
		Latest: latest.Format(time.RFC3339),
		Result: result,
	})
}

func (h *Handler) collectStatus(c *gin.Context) {
	if h.collector == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "slack collection not configured"})
		return
	}
	c.JSON(http.StatusOK, h.collector.LastRun())
}

func (h *Handler) notifyNoShows(c *gin.Context) {
	if h.notify == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notifications not configured"})
		return
	}

	date := c.DefaultQuery("date", h.now().In(h.attendance.Location()).Format(domain.DateLayout))
	report, err := h.notify.SendNoShow(c.Request.Context(), date)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) publishReport(c *gin.Context) {
	if !h.publisher.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage service not configured"})
		return
	}

	m, err := h.matrixFromQuery(c)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	report, err := h.publisher.Publish(c.Request.Context(), c.DefaultQuery("format", export.FormatXLSX), m, h.attendance.Location())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (h *Handler) listReports(c *gin.Context) {
	if !h.publisher.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage service not configured"})
		return
	}

	objects, err := h.publisher.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]StorageObjectResponse, len(objects))
	for i := range objects {
		resp[i] = objectToResponse(objects[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) purgeReports(c *gin.Context) {
	if !h.publisher.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage service not configured"})
		return
	}
	if err := h.publisher.Purge(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteMessages(c *gin.Context) {
	deleted, err := h.collect.RemoveAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidDate), errors.Is(err, export.ErrUnknownFormat):
		return http.StatusBadRequest
	case errors.Is(err, collector.ErrBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type AttendanceResponse struct {
	User    string  `json:"user"`
	FirstTS *string `json:"first_ts"`
}

type CommitResponse struct {
	TS      string   `json:"ts"`
	Message []string `json:"message"`
}

type DayResponse struct {
	Date    string           `json:"date"`
	Commits []CommitResponse `json:"commits"`
}

type MemberResponse struct {
	User       string `json:"user"`
	Slack      string `json:"slack,omitempty"`
	Telegram   string `json:"telegram,omitempty"`
	AvatarURL  string `json:"avatar_url"`
	ProfileURL string `json:"profile_url"`
}

type CollectResponse struct {
	Oldest string                `json:"oldest"`
	Latest string                `json:"latest"`
	Result service.CollectResult `json:"result"`
}

type StorageObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func attendanceToResponse(row domain.AttendanceRow, loc *time.Location) AttendanceResponse {
	resp := AttendanceResponse{User: row.User}
	if row.FirstTS != nil {
		v := row.FirstTS.In(loc).Format(time.RFC3339)
		resp.FirstTS = &v
	}
	return resp
}

func dayToResponse(day domain.DayAttendance, loc *time.Location) DayResponse {
	resp := DayResponse{
		Date:    day.Date,
		Commits: make([]CommitResponse, len(day.Attends)),
	}
	for i, attend := range day.Attends {
		resp.Commits[i] = CommitResponse{
			TS:      attend.TS.In(loc).Format(time.RFC3339),
			Message: attend.Commits,
		}
	}
	return resp
}

func objectToResponse(obj storage.ObjectInfo) StorageObjectResponse {
	resp := StorageObjectResponse{
		Key:  obj.Key,
		Size: obj.Size,
	}
	if obj.LastModified != nil && !obj.LastModified.IsZero() {
		v := obj.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}
