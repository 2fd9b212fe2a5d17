package chatsync

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"MediChat/global/config"
	"MediChat/logger"
	"MediChat/module/chat/model"
	errs "MediChat/tools/errs"
	"MediChat/tools/safe"
)

// DefaultMessageLimit is the page size for get_messages when the caller
// does not pass one.
const DefaultMessageLimit = 50

// Options configures a Manager. Zero values fall back to config.Global.
type Options struct {
	// URL is the broker websocket endpoint.
	URL string

	// Notifier receives user-facing errors. Nil means drop them.
	Notifier Notifier

	// Policy shapes reconnection after abnormal closure.
	Policy Policy

	// RequestTimeout bounds request/response correlation (default 5s).
	RequestTimeout time.Duration

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration

	// TokenFn mints the session token carried on the authenticate frame.
	// Nil sends no token.
	TokenFn func(model.Identity) (string, error)
}

func (o Options) norm() Options {
	if o.URL == "" {
		o.URL = config.Global.ServerURL
	}
	if o.Notifier == nil {
		o.Notifier = NopNotifier{}
	}
	if o.Policy.MaxAttempts <= 0 {
		o.Policy.MaxAttempts = config.Global.MaxReconnectAttempts
	}
	if o.Policy.Base <= 0 {
		o.Policy.Base = config.Global.ReconnectBase
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = config.Global.RequestTimeout
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = config.Global.HandshakeTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = config.Global.WriteTimeout
	}
	return o
}

// Manager owns one logical session to the chat broker: the socket, the
// authentication handshake, frame routing into the store/tracker, and the
// reconnection schedule on abnormal closure.
//
// All state transitions happen under mu in reaction to discrete events
// (dial result, inbound frame, transport close, timer). The generation
// counter makes callbacks from a superseded connection no-ops, so a close
// racing a pending reconnect timer can never schedule two overlapping
// attempts.
type Manager struct {
	opts     Options
	identity model.Identity
	store    *Store
	tracker  *Tracker[model.Conversation]

	mu             sync.Mutex
	state          State
	attempt        int
	ws             *websocket.Conn
	gen            uint64
	reconnectTimer *time.Timer
	tornDown       bool
	listeners      map[int]func()
	nextListener   int

	// writeMu serializes frame writes; gorilla allows one writer at a time.
	writeMu sync.Mutex
}

func NewManager(identity model.Identity, opts Options) *Manager {
	return &Manager{
		opts:      opts.norm(),
		identity:  identity,
		store:     NewStore(),
		tracker:   NewTracker[model.Conversation](),
		state:     StateIdle,
		listeners: make(map[int]func()),
	}
}

// Identity returns the (user id, role) tuple this session authenticates as.
func (m *Manager) Identity() model.Identity { return m.identity }

// State returns the current lifecycle position.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot returns the subscriber read surface.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	st := m.state
	m.mu.Unlock()

	convs, msgs := m.store.Copy()
	return Snapshot{
		Connected:     st == StateOpen,
		Connecting:    st == StateConnecting || st == StateAuthenticating || st == StateReconnecting,
		Conversations: convs,
		Messages:      msgs,
	}
}

// Subscribe registers a change listener fired after every observable state
// mutation. The returned func unregisters it; unsubscribing never touches
// the underlying connection.
func (m *Manager) Subscribe(fn func()) func() {
	m.mu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Open starts connecting. It fails synchronously only on construction
// problems (bad URL); dial failures go through the reconnection policy.
func (m *Manager) Open() error {
	u, err := url.Parse(m.opts.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return errs.ErrNotConnected.WrapMsg("bad server url", "url", m.opts.URL)
	}

	m.mu.Lock()
	if m.tornDown {
		m.mu.Unlock()
		return errs.ErrNotConnected.WrapMsg("manager is torn down")
	}
	if m.state != StateIdle && m.state != StateClosed {
		m.mu.Unlock()
		return nil
	}
	m.state = StateConnecting
	gen := m.gen
	m.mu.Unlock()

	m.notifyChange()
	safe.SafeGo(func() { m.dial(gen) })
	return nil
}

// dial performs the transport connect for one generation and, on transport
// open, immediately runs the authenticate handshake.
func (m *Manager) dial(gen uint64) {
	dialer := websocket.Dialer{HandshakeTimeout: m.opts.HandshakeTimeout}
	ws, resp, err := dialer.Dial(m.opts.URL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	m.mu.Lock()
	if m.staleLocked(gen) {
		m.mu.Unlock()
		if ws != nil {
			_ = ws.Close()
		}
		return
	}
	if err != nil {
		m.mu.Unlock()
		logger.Warn("chat dial failed",
			zap.String("url", m.opts.URL), zap.Error(err))
		m.transportClosed(gen, websocket.CloseAbnormalClosure)
		return
	}
	m.ws = ws
	m.state = StateAuthenticating
	m.mu.Unlock()
	m.notifyChange()

	var token string
	if m.opts.TokenFn != nil {
		token, err = m.opts.TokenFn(m.identity)
		if err != nil {
			logger.Error("token mint failed", zap.Error(err))
		}
	}
	if err := m.writeFrame(ws, BuildAuthenticate(m.identity, token)); err != nil {
		_ = ws.Close()
		m.transportClosed(gen, websocket.CloseAbnormalClosure)
		return
	}

	safe.SafeGo(func() { m.readLoop(ws, gen) })
}

// readLoop delivers inbound frames strictly in transport order until the
// socket dies, then reports the close code.
func (m *Manager) readLoop(ws *websocket.Conn, gen uint64) {
	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			m.transportClosed(gen, closeCode(err))
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		m.handleFrame(gen, data)
	}
}

func closeCode(err error) int {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	// read errors without a close frame count as abnormal
	return websocket.CloseAbnormalClosure
}

func isCleanClose(code int) bool {
	return code == websocket.CloseNormalClosure || code == websocket.CloseGoingAway
}

// transportClosed is the single exit point for a dead connection: it decides
// between settling Closed (clean or exhausted) and scheduling a retry.
func (m *Manager) transportClosed(gen uint64, code int) {
	m.mu.Lock()
	if m.staleLocked(gen) {
		m.mu.Unlock()
		return
	}
	m.gen++ // invalidate the reader and any in-flight callbacks
	if m.ws != nil {
		_ = m.ws.Close()
		m.ws = nil
	}

	if isCleanClose(code) {
		m.state = StateClosed
		m.mu.Unlock()
		m.tracker.RejectAll(errs.ErrNotConnected.WrapMsg("connection closed"))
		m.notifyChange()
		return
	}

	if !m.opts.Policy.ShouldRetry(m.attempt) {
		m.state = StateClosed
		m.mu.Unlock()
		m.tracker.RejectAll(errs.ErrReconnectExhausted.Wrap())
		m.notifyChange()
		m.opts.Notifier.Notify("Chat disconnected",
			fmt.Sprintf("gave up after %d reconnect attempts", m.attempt),
			SeverityError)
		return
	}

	m.attempt++
	attempt := m.attempt
	m.state = StateReconnecting
	nextGen := m.gen
	delay := m.opts.Policy.Delay(attempt)
	m.reconnectTimer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		m.reconnectTimer = nil
		if m.staleLocked(nextGen) {
			m.mu.Unlock()
			return
		}
		m.state = StateConnecting
		g := m.gen
		m.mu.Unlock()
		m.notifyChange()
		m.dial(g)
	})
	m.mu.Unlock()

	m.tracker.RejectAll(errs.ErrNotConnected.WrapMsg("connection lost"))
	logger.Infof("chat reconnect %d/%d in %s (close code %d)",
		attempt, m.opts.Policy.norm().MaxAttempts, delay, code)
	m.notifyChange()
}

// staleLocked reports whether a callback belongs to a superseded connection.
// Callers hold mu.
func (m *Manager) staleLocked(gen uint64) bool {
	return m.tornDown || gen != m.gen
}

// Teardown closes the session for good: explicit close requested by the
// registry on identity change or shutdown. Always treated as clean; pending
// requests and reconnect timers die with it.
func (m *Manager) Teardown() {
	m.mu.Lock()
	if m.tornDown {
		m.mu.Unlock()
		return
	}
	m.tornDown = true
	m.gen++
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	ws := m.ws
	m.ws = nil
	m.state = StateClosing
	m.mu.Unlock()

	m.tracker.RejectAll(errs.ErrRequestCanceled.WrapMsg("connection torn down"))

	if ws != nil {
		deadline := time.Now().Add(m.opts.WriteTimeout)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "teardown"),
			deadline)
		_ = ws.Close()
	}

	m.mu.Lock()
	m.state = StateClosed
	m.mu.Unlock()
	m.notifyChange()
}

// ---- inbound frame routing ----

func (m *Manager) handleFrame(gen uint64, raw []byte) {
	f, err := ParseFrame(raw)
	if err != nil {
		// protocol errors are logged and dropped; the connection stays up
		logger.Warn("dropping malformed frame", zap.Error(err))
		return
	}

	switch f.Type {
	case FrameWelcome:
		logger.Debug("chat welcome")

	case FrameAuthSuccess:
		m.mu.Lock()
		if m.staleLocked(gen) {
			m.mu.Unlock()
			return
		}
		m.attempt = 0
		m.state = StateOpen
		m.mu.Unlock()
		logger.Infof("chat session open user=%d role=%s", m.identity.UserID, m.identity.UserType)
		m.notifyChange()

	case FrameError:
		text := f.ErrorText()
		m.tracker.RejectNext(errs.ErrServerRejected.WrapMsg(text))
		m.opts.Notifier.Notify("Chat error", text, SeverityError)

	case FrameConversations:
		m.store.ReplaceConversations(f.Conversations)
		m.notifyChange()

	case FrameMessages:
		m.store.ReplaceMessages(f.ConversationID, f.Messages)
		m.notifyChange()

	case FrameNewMessage, FrameMessageSent:
		msg, err := f.MessageBody()
		if err != nil {
			logger.Warn("dropping message frame", zap.Error(err))
			return
		}
		inserted := m.store.ApplyMessage(*msg)
		if inserted && msg.SenderID != m.identity.UserID && !msg.IsRead {
			m.store.IncrementUnread(msg.ConversationID)
		}
		m.notifyChange()

	case FrameMessageRead:
		if m.store.MarkRead(f.MessageID) {
			m.notifyChange()
		}

	case FrameConversationCreated:
		if f.Conversation == nil {
			logger.Warn("conversation_created without conversation")
			return
		}
		added := m.store.AddConversation(*f.Conversation)
		m.tracker.ResolveNext(*f.Conversation)
		if added {
			m.notifyChange()
		}

	default:
		logger.Infof("ignoring frame type %q", f.Type)
	}
}

// ---- outbound commands ----

// FetchConversations asks for the full conversation snapshot. The reply
// arrives asynchronously as a conversations frame.
func (m *Manager) FetchConversations() error {
	return m.send(BuildGetConversations())
}

// FetchMessages asks for one conversation's history (default page 50).
// The reply resets that conversation's unread counter.
func (m *Manager) FetchMessages(conversationID int64, limit int) error {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	return m.send(BuildGetMessages(conversationID, limit))
}

// SendMessage pushes one message into a conversation. Delivery shows up as
// a message_sent echo.
func (m *Manager) SendMessage(conversationID int64, content string, mt model.MessageType, file *model.FileInfo) error {
	if mt == "" {
		mt = model.MessageTypeText
	}
	return m.send(BuildSendMessage(conversationID, content, mt, file))
}

// MarkMessageAsRead reports a message as read to the broker.
func (m *Manager) MarkMessageAsRead(messageID int64) error {
	return m.send(BuildReadMessage(messageID))
}

// CreateConversation opens a doctor/patient thread and waits for the
// correlated conversation_created (or error) frame, bounded by the request
// timeout and ctx.
func (m *Manager) CreateConversation(ctx context.Context, doctorID, patientID int64) (model.Conversation, error) {
	m.mu.Lock()
	open := m.state == StateOpen && m.ws != nil
	ws := m.ws
	m.mu.Unlock()
	if !open {
		m.opts.Notifier.Notify("Not connected",
			"cannot create conversation while disconnected", SeverityError)
		return model.Conversation{}, errs.ErrNotConnected.Wrap()
	}

	p := m.tracker.Track(m.opts.RequestTimeout)
	if err := m.writeFrame(ws, BuildCreateConversation(doctorID, patientID)); err != nil {
		m.tracker.complete(p.id, result[model.Conversation]{err: err})
		<-p.ch
		m.opts.Notifier.Notify("Send failed", err.Error(), SeverityError)
		return model.Conversation{}, err
	}
	return p.Await(ctx)
}

// send gates a fire-and-forget command on the Open state. Commands issued
// while disconnected fail fast and visibly, never queue.
func (m *Manager) send(f *Frame) error {
	m.mu.Lock()
	open := m.state == StateOpen && m.ws != nil
	ws := m.ws
	m.mu.Unlock()

	if !open {
		m.opts.Notifier.Notify("Not connected",
			"chat command dropped while disconnected", SeverityError)
		return errs.ErrNotConnected.WrapMsg("command", "type", f.Type)
	}
	if err := m.writeFrame(ws, f); err != nil {
		m.opts.Notifier.Notify("Send failed", err.Error(), SeverityError)
		return err
	}
	return nil
}

func (m *Manager) writeFrame(ws *websocket.Conn, f *Frame) error {
	data, err := EncodeFrame(f)
	if err != nil {
		return err
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_ = ws.SetWriteDeadline(time.Now().Add(m.opts.WriteTimeout))
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return errs.ErrTransportWrite.WrapMsg(err.Error(), "type", f.Type)
	}
	return nil
}

func (m *Manager) notifyChange() {
	m.mu.Lock()
	fns := make([]func(), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
