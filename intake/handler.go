package intake

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/audiolens/errors"
	"github.com/kbukum/audiolens/server"
)

// multipartOverhead is the allowance for multipart headers and boundaries on
// top of the file itself.
const multipartOverhead = 1 << 20

// Accepted is the body returned once a job is queued.
type Accepted struct {
	Message  string `json:"message"`
	UploadID string `json:"upload_id"`
	Status   string `json:"status"`
}

// Handler exposes a Service over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the /uploads routes on r. mw runs before every route,
// typically bearer auth.
func (h *Handler) Register(r gin.IRouter, mw ...gin.HandlerFunc) {
	g := r.Group("/uploads", mw...)
	g.POST("/initiate", h.initiate)
	g.POST("/notify", h.notify)
	g.POST("", h.upload)
	g.GET("", h.list)
	g.GET("/:id", h.get)
}

func (h *Handler) initiate(c *gin.Context) {
	out, err := h.svc.Initiate(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, out)
}

func (h *Handler) notify(c *gin.Context) {
	var req NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondWithError(c, apperrors.InvalidInput("body", "expected JSON with storage_path"))
		return
	}
	job, err := h.svc.Notify(c.Request.Context(), req)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondAccepted(c, Accepted{Message: "Upload recorded, processing queued", UploadID: job.ID, Status: string(job.Status)})
}

func (h *Handler) upload(c *gin.Context) {
	limit := h.svc.Config().MaxUploadBytes
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			server.RespondWithError(c, apperrors.TooLarge(limit))
			return
		}
		server.RespondWithError(c, apperrors.InvalidInput("file", "multipart field 'file' is required"))
		return
	}
	f, err := header.Open()
	if err != nil {
		server.RespondWithError(c, apperrors.Internal(err))
		return
	}
	defer f.Close()

	job, err := h.svc.Upload(c.Request.Context(), header.Filename, f, header.Size)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondAccepted(c, Accepted{Message: "Upload stored, processing queued", UploadID: job.ID, Status: string(job.Status)})
}

func (h *Handler) get(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, d)
}

func (h *Handler) list(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		server.RespondWithError(c, apperrors.InvalidInput("query", err.Error()))
		return
	}
	list, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOKWithMeta(c, list, &server.Meta{Count: len(list), Limit: q.Limit})
}
