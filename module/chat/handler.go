package chat

import (
	"github.com/gin-gonic/gin"

	msecurity "PChat/middleware/security"
	"PChat/module/chat/service"
	"PChat/tools/apiresp"
	errs "PChat/tools/errs"
)

// Handler exposes the conversation endpoints.
type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

type openPrivateRequest struct {
	PeerID string `json:"peer_id"`
}

func (h *Handler) OpenPrivate(c *gin.Context) {
	var in openPrivateRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		apiresp.Fail(c, errs.ErrInvalidUser.WrapMsg("bad request body"))
		return
	}
	conv, err := h.svc.OpenPrivate(c.Request.Context(), msecurity.UserID(c), in.PeerID)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Success(c, conv)
}

type createGroupRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
}

func (h *Handler) CreateGroup(c *gin.Context) {
	var in createGroupRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		apiresp.Fail(c, errs.ErrInvalidName.WrapMsg("bad request body"))
		return
	}
	conv, err := h.svc.CreateGroup(c.Request.Context(), msecurity.UserID(c), in.Name, in.MemberIDs)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Success(c, conv)
}

func (h *Handler) List(c *gin.Context) {
	views, err := h.svc.List(c.Request.Context(), msecurity.UserID(c))
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Success(c, views)
}

func (h *Handler) Get(c *gin.Context) {
	view, err := h.svc.Get(c.Request.Context(), c.Param("id"), msecurity.UserID(c))
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Success(c, view)
}
