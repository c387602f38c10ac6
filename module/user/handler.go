package user

import (
	"github.com/gin-gonic/gin"

	msecurity "PChat/middleware/security"
	"PChat/module/user/model"
	"PChat/module/user/service"
	"PChat/tools/apiresp"
	errs "PChat/tools/errs"
)

// PresenceChecker answers whether a user has a live connection right now;
// the realtime registry provides it.
type PresenceChecker interface {
	Online(userID string) bool
}

// Handler exposes the account endpoints.
type Handler struct {
	svc      *service.Service
	presence PresenceChecker
}

func NewHandler(svc *service.Service, presence PresenceChecker) *Handler {
	return &Handler{svc: svc, presence: presence}
}

// publicUser strips credentials and lockout state from API output.
type publicUser struct {
	UserID    string `json:"user_id"`
	Phone     string `json:"phone"`
	Email     string `json:"email,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Bio       string `json:"bio,omitempty"`
	Status    string `json:"status"`
	LastSeen  any    `json:"last_seen,omitempty"`
}

func toPublic(u *model.User) publicUser {
	p := publicUser{
		UserID:    u.UserID,
		Phone:     u.Phone,
		Email:     u.Email,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Bio:       u.Bio,
		Status:    u.Status,
	}
	if u.LastSeen != nil {
		p.LastSeen = u.LastSeen
	}
	return p
}

func (h *Handler) Register(c *gin.Context) {
	var in service.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apiresp.Fail(c, errs.ErrInvalidUser.WrapMsg("bad request body"))
		return
	}
	u, err := h.svc.Register(c.Request.Context(), in)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	// A fresh account gets a session right away, same as logging in.
	res, err := h.svc.Login(c.Request.Context(), u.Phone, in.Password, in.DeviceInfo, c.ClientIP())
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Created(c, gin.H{
		"token":      res.Token,
		"expires_at": res.ExpiresAt,
		"user":       toPublic(res.User),
	})
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	DeviceInfo string `json:"device_info"`
}

func (h *Handler) Login(c *gin.Context) {
	var in loginRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		apiresp.Fail(c, errs.ErrInvalidCredentials.WrapMsg("bad request body"))
		return
	}
	res, err := h.svc.Login(c.Request.Context(), in.Identifier, in.Password, in.DeviceInfo, c.ClientIP())
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Success(c, gin.H{
		"token":      res.Token,
		"expires_at": res.ExpiresAt,
		"user":       toPublic(res.User),
	})
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), msecurity.Token(c)); err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Success(c, nil)
}

func (h *Handler) Me(c *gin.Context) {
	u, err := h.svc.Get(c.Request.Context(), msecurity.UserID(c))
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Success(c, toPublic(u))
}

// Profile serves one account. Status comes from the live registry, not
// the stored field, so a crashed connection never shows a stale online.
func (h *Handler) Profile(c *gin.Context) {
	u, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	p := toPublic(u)
	if h.presence.Online(u.UserID) {
		p.Status = model.StatusOnline
	} else {
		p.Status = model.StatusOffline
	}
	apiresp.Success(c, p)
}

func (h *Handler) Search(c *gin.Context) {
	users, err := h.svc.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	out := make([]publicUser, 0, len(users))
	self := msecurity.UserID(c)
	for _, u := range users {
		if u.UserID == self {
			continue
		}
		out = append(out, toPublic(u))
	}
	apiresp.Success(c, out)
}
