package broker

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"MediChat/logger"
	"MediChat/module/chat/model"
	"MediChat/service/chatsync"
	"MediChat/tools/decode"
	"MediChat/tools/security"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const defaultQueueSize = 64

// Server is the in-memory reference broker: it speaks the client's JSON
// frame protocol over a gin-mounted websocket endpoint. Meant for dev
// setups and protocol tests, not production traffic.
type Server struct {
	store  *Store
	reg    *Registry
	disp   *Dispatcher
	secret []byte
}

// NewServer builds a broker. A non-empty secret turns on JWT verification
// of the authenticate token.
func NewServer(secret string) *Server {
	s := &Server{
		store: NewStore(),
		reg:   NewRegistry(),
		disp:  NewDispatcher(),
	}
	if secret != "" {
		s.secret = []byte(secret)
	}
	s.disp.Register(chatsync.FrameGetConversations, s.handleGetConversations)
	s.disp.Register(chatsync.FrameGetMessages, s.handleGetMessages)
	s.disp.Register(chatsync.FrameMessage, s.handleSendMessage)
	s.disp.Register(chatsync.FrameReadMessage, s.handleReadMessage)
	s.disp.Register(chatsync.FrameCreateConversation, s.handleCreateConversation)
	return s
}

// Engine mounts the websocket endpoint on a fresh gin engine.
func (s *Server) Engine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/ws", s.HandleWS)
	return r
}

// Run serves the broker on addr until the listener dies.
func (s *Server) Run(addr string) error {
	logger.Infof("reference broker listening on %s", addr)
	return s.Engine().Run(addr)
}

// Store exposes broker state to tests and the demo main.
func (s *Server) Store() *Store { return s.store }

// HandleWS upgrades the request and runs the per-connection read loop.
// The socket greets with welcome, requires authenticate before anything
// else, then dispatches frames by type.
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("broker upgrade failed: %v", err)
		return
	}

	s.writeDirect(ws, chatsync.BuildWelcome())

	var cl *client
	defer func() {
		if cl != nil {
			s.reg.remove(cl)
			logger.Infof("broker: user %d disconnected", cl.userID)
		} else {
			_ = ws.Close()
		}
	}()

	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Debug("broker: peer closed")
			} else {
				logger.Infof("broker read err: %v", rerr)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		var frame map[string]any
		if err := json.Unmarshal(data, &frame); err != nil {
			logger.Infof("broker: dropping malformed frame: %v", err)
			continue
		}
		ftype, _ := frame["type"].(string)

		if cl == nil {
			if chatsync.FrameType(ftype) != chatsync.FrameAuthenticate {
				s.writeDirect(ws, chatsync.BuildError("authenticate first"))
				continue
			}
			cl = s.authenticate(ws, frame)
			continue
		}

		h := s.disp.Get(chatsync.FrameType(ftype))
		if h == nil {
			cl.enqueue(mustEncode(chatsync.BuildError("unknown frame type: " + ftype)))
			continue
		}
		if err := h(cl, frame); err != nil {
			cl.enqueue(mustEncode(chatsync.BuildError(err.Error())))
		}
	}
}

// authenticate validates the auth payload (and token, when a secret is
// configured), registers the client and acks with auth_success. On failure
// it answers with an error frame and leaves the socket unauthenticated.
func (s *Server) authenticate(ws *websocket.Conn, frame map[string]any) *client {
	payload, _ := frame["payload"].(map[string]any)
	if payload == nil {
		s.writeDirect(ws, chatsync.BuildError("missing auth payload"))
		return nil
	}
	auth, err := decode.DecodeMap[chatsync.AuthPayload](payload)
	if err != nil || auth.UserID == 0 || auth.UserType == "" {
		s.writeDirect(ws, chatsync.BuildError("bad auth payload"))
		return nil
	}
	if s.secret != nil {
		uid, role, verr := security.Verify(security.DefaultOptions(s.secret), auth.Token)
		if verr != nil || uid != auth.UserID || model.Role(role) != auth.UserType {
			s.writeDirect(ws, chatsync.BuildError("authentication failed"))
			return nil
		}
	}

	cl := newClient(auth.UserID, ws, defaultQueueSize)
	cl.identity = model.Identity{UserID: auth.UserID, UserType: auth.UserType}
	s.reg.add(cl)
	cl.enqueue(mustEncode(chatsync.BuildAuthSuccess()))
	logger.Infof("broker: user %d (%s) authenticated", auth.UserID, auth.UserType)
	return cl
}

// ---- frame handlers ----

type getMessagesCmd struct {
	ConversationID int64 `json:"conversationId"`
	Limit          int   `json:"limit"`
}

type sendCmd struct {
	ConversationID int64             `json:"conversationId"`
	Content        string            `json:"content"`
	MessageType    model.MessageType `json:"messageType"`
	FileURL        string            `json:"fileUrl"`
	FileName       string            `json:"fileName"`
	FileSize       int64             `json:"fileSize"`
}

type readCmd struct {
	MessageID int64 `json:"messageId"`
}

type createConversationCmd struct {
	DoctorID  int64 `json:"doctorId"`
	PatientID int64 `json:"patientId"`
}

func (s *Server) handleGetConversations(c *client, _ map[string]any) error {
	list := s.store.ConversationsFor(c.identity)
	c.enqueue(mustEncode(chatsync.BuildConversations(list)))
	return nil
}

func (s *Server) handleGetMessages(c *client, frame map[string]any) error {
	cmd, err := decode.DecodeMap[getMessagesCmd](frame)
	if err != nil {
		return err
	}
	if cmd.Limit <= 0 {
		cmd.Limit = chatsync.DefaultMessageLimit
	}
	msgs := s.store.Messages(cmd.ConversationID, cmd.Limit)
	c.enqueue(mustEncode(chatsync.BuildMessages(cmd.ConversationID, msgs)))
	return nil
}

func (s *Server) handleSendMessage(c *client, frame map[string]any) error {
	cmd, err := decode.DecodeMap[sendCmd](frame)
	if err != nil {
		return err
	}
	conv, ok := s.store.Conversation(cmd.ConversationID)
	if !ok {
		return errConversationNotFound
	}
	if !conv.Involves(c.userID) {
		return errNotParticipant
	}
	if cmd.MessageType == "" {
		cmd.MessageType = model.MessageTypeText
	}

	peer := conv.PeerID(c.userID)
	msg := s.store.AppendMessage(model.Message{
		ConversationID: cmd.ConversationID,
		SenderID:       c.userID,
		Content:        cmd.Content,
		Type:           cmd.MessageType,
		FileURL:        cmd.FileURL,
		FileName:       cmd.FileName,
		FileSize:       cmd.FileSize,
	}, s.reg.online(peer))

	c.enqueue(mustEncode(chatsync.BuildMessageEvent(chatsync.FrameMessageSent, msg)))
	if pc := s.reg.get(peer); pc != nil {
		pc.enqueue(mustEncode(chatsync.BuildMessageEvent(chatsync.FrameNewMessage, msg)))
	}
	return nil
}

func (s *Server) handleReadMessage(c *client, frame map[string]any) error {
	cmd, err := decode.DecodeMap[readCmd](frame)
	if err != nil {
		return err
	}
	msg, ok := s.store.MarkRead(cmd.MessageID)
	if !ok {
		return errMessageNotFound
	}
	// both sides learn about the flip: the author sees the receipt, the
	// reader converges its local copy
	for _, uid := range []int64{msg.SenderID, c.userID} {
		if rc := s.reg.get(uid); rc != nil {
			rc.enqueue(mustEncode(chatsync.BuildMessageRead(msg.ID)))
		}
	}
	return nil
}

func (s *Server) handleCreateConversation(c *client, frame map[string]any) error {
	cmd, err := decode.DecodeMap[createConversationCmd](frame)
	if err != nil {
		return err
	}
	if cmd.DoctorID == 0 || cmd.PatientID == 0 {
		return errBadConversationPair
	}
	conv, created := s.store.EnsureConversation(cmd.DoctorID, cmd.PatientID)

	// answer both parties with their own view; repeated creates still
	// resolve the requester's pending await
	targets := []int64{c.userID}
	if created {
		targets = []int64{conv.DoctorID, conv.PatientID}
	}
	for _, uid := range targets {
		if rc := s.reg.get(uid); rc != nil {
			if view, ok := s.store.ViewFor(conv.ID, uid); ok {
				rc.enqueue(mustEncode(chatsync.BuildConversationCreated(view)))
			}
		}
	}
	return nil
}

// writeDirect writes on the raw socket; only used before the client's
// writer pump exists.
func (s *Server) writeDirect(ws *websocket.Conn, f *chatsync.Frame) {
	data, err := chatsync.EncodeFrame(f)
	if err != nil {
		return
	}
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		logger.Infof("broker direct write failed: %v", err)
	}
}

func mustEncode(f *chatsync.Frame) []byte {
	data, err := chatsync.EncodeFrame(f)
	if err != nil {
		logger.Errorf("broker encode %s: %v", f.Type, err)
		return []byte("{}")
	}
	return data
}
