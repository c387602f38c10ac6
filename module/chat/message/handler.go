package message

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	msecurity "PChat/middleware/security"
	"PChat/tools/apiresp"
	errs "PChat/tools/errs"
)

// MemberChecker answers whether a user belongs to a conversation; the
// realtime server provides it.
type MemberChecker interface {
	RequireMember(ctx context.Context, conversationID, userID string) error
}

// Handler is the REST companion to the realtime path: history paging,
// a plain-HTTP send for clients without a socket, delete.
type Handler struct {
	svc    *Service
	member MemberChecker
}

func NewHandler(svc *Service, member MemberChecker) *Handler {
	return &Handler{svc: svc, member: member}
}

// History pages messages newest-first. Query params: limit, before (a
// message id cursor).
func (h *Handler) History(c *gin.Context) {
	convID := c.Param("id")
	userID := msecurity.UserID(c)
	if err := h.member.RequireMember(c.Request.Context(), convID, userID); err != nil {
		apiresp.Fail(c, err)
		return
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	msgs, err := h.svc.Page(c.Request.Context(), convID, limit, c.Query("before"))
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	// Page selects newest-first; the response body reads oldest-first so
	// clients prepend it to the view as-is.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	apiresp.Success(c, msgs)
}

type sendRequest struct {
	Content   string `json:"content"`
	Type      string `json:"type"`
	ReplyToID string `json:"reply_to_id"`
}

// Send appends over HTTP. Live subscribers still get the realtime event;
// the caller gets the stored message back.
func (h *Handler) Send(c *gin.Context) {
	convID := c.Param("id")
	userID := msecurity.UserID(c)
	var in sendRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		apiresp.Fail(c, errs.ErrEmptyContent.WrapMsg("bad request body"))
		return
	}
	if err := h.member.RequireMember(c.Request.Context(), convID, userID); err != nil {
		apiresp.Fail(c, err)
		return
	}
	m, err := h.svc.Append(c.Request.Context(), convID, userID, in.Content, in.Type, in.ReplyToID)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Success(c, m)
}

// Statuses lists delivery state per recipient for one message,
// membership-checked against the message's conversation.
func (h *Handler) Statuses(c *gin.Context) {
	msgID := c.Param("messageId")
	m, err := h.svc.Get(c.Request.Context(), msgID)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	if err := h.member.RequireMember(c.Request.Context(), m.ConversationID, msecurity.UserID(c)); err != nil {
		apiresp.Fail(c, err)
		return
	}
	statuses, err := h.svc.StatusOf(c.Request.Context(), msgID)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Success(c, statuses)
}

// Delete soft-deletes one message; sender only.
func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.SoftDelete(c.Request.Context(), c.Param("messageId"), msecurity.UserID(c)); err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Success(c, nil)
}
