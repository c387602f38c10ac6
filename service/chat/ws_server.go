package chat

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"PChat/config"
	"PChat/logger"
	"PChat/module/chat/message"
	"PChat/service/storage"
	errs "PChat/tools/errs"
	"PChat/tools/safe"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Browsers send arbitrary origins; auth is the token, not the origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server ties the realtime pieces together: the gate admits, the registry
// tracks liveness, the router fans out, the log persists and publishes,
// the broadcaster tells contacts. Handlers reach all of it through here.
type Server struct {
	cfg      config.Config
	gate     *Gate
	reg      *Registry
	router   *Router
	presence *Broadcaster
	log      *message.Service
	convs    storage.ConversationStore
	users    storage.UserStore
	disp     *Dispatcher
}

func NewServer(cfg config.Config, st storage.Stores) *Server {
	s := &Server{
		cfg:    cfg,
		router: NewRouter(),
		convs:  st.Convs,
		users:  st.Users,
		disp:   NewDispatcher(),
	}
	s.gate = NewGate(cfg.JWTOptions(), st.Sessions)
	s.reg = NewRegistry(Hooks{
		OnOnline:  func(userID string) { s.presence.UserOnline(userID) },
		OnOffline: func(userID string, lastSeen time.Time) { s.presence.UserOffline(userID, lastSeen) },
	})
	s.presence = NewBroadcaster(s.reg, st.Convs, st.Users)
	s.log = message.NewService(st.Msgs, st.Convs, st.Users, s.router)
	return s
}

func (s *Server) Dispatcher() *Dispatcher          { return s.disp }
func (s *Server) Rooms() *Router                   { return s.router }
func (s *Server) Log() *message.Service            { return s.log }
func (s *Server) Registry() *Registry              { return s.reg }
func (s *Server) Presence() *Broadcaster           { return s.presence }
func (s *Server) Gate() *Gate                      { return s.gate }
func (s *Server) Users() storage.UserStore         { return s.users }
func (s *Server) Convs() storage.ConversationStore { return s.convs }

// RequireMember gates every conversation-scoped operation. Missing
// conversation and non-membership come back as distinct errors.
func (s *Server) RequireMember(ctx context.Context, conversationID, userID string) error {
	ok, err := s.convs.IsMember(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := s.convs.Get(ctx, conversationID); err != nil {
		return err
	}
	return errs.ErrNotAMember.WrapMsg("", "conversation", conversationID, "user", userID)
}

// HandleWS is the realtime entry point. Admission happens before the
// upgrade so a bad token costs one HTTP 401, never a socket.
func (s *Server) HandleWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	userID, err := s.gate.Admit(ctx, token)
	cancel()
	if err != nil {
		logger.Infof("[ws] admission rejected err=%v", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": errs.ErrAuthenticationFailed.Code, "msg": errs.ErrAuthenticationFailed.Msg})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("[ws] upgrade user=%s err=%v", userID, err)
		return
	}

	client := NewClient(uuid.NewString(), userID, ws, s.cfg.SendQueueSize)
	s.reg.Register(client)
	logger.Infof("[ws] connected user=%s conn=%s", userID, client.ID)

	safe.SafeGo(func() { client.WritePump(s.cfg.PingPeriod, s.cfg.WriteWait) })
	s.readLoop(client)

	// Teardown order matters: leave rooms first so no publish can reach a
	// half-dead connection, then drop registry state (fires offline on the
	// last connection), then close the socket.
	s.router.UnsubscribeAll(client)
	s.reg.Unregister(client)
	client.Close(websocket.CloseNormalClosure, "")
	logger.Infof("[ws] disconnected user=%s conn=%s", userID, client.ID)
}

func (s *Server) readLoop(client *Client) {
	ws := client.WS
	ws.SetReadLimit(s.cfg.ReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	hctx := &Context{S: s}
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warnf("[ws] read user=%s conn=%s err=%v", client.UserID, client.ID, err)
			}
			return
		}

		f, err := ParseFrame(data)
		if err != nil {
			client.Enqueue(EncodeError(err))
			continue
		}
		if err := s.disp.Dispatch(hctx, f, client); err != nil {
			// A failed operation answers with an error frame; the
			// connection itself stays up.
			logger.Debugf("[ws] frame type=%s user=%s err=%v", f.Type, client.UserID, err)
			client.Enqueue(EncodeError(err))
		}
	}
}
