package scenewire

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/gorilla/websocket"
)

var ErrAlreadyStarted = errors.New("the server is already started")
var ErrNotStarted = errors.New("the server is not started")

type ServerSettings struct {
	Host string
	Port int
	// consumed read-only on every tick
	Enabled CategorySet
	// whether the embedding host should start the listener immediately
	AutoStart bool
	// bound on how long a stalled peer can hold a send; on expiry the
	// connection is dropped, the driver is never blocked
	WriteTimeout time.Duration
	ReadLimit    int64
}

func DefaultServerSettings() *ServerSettings {
	return &ServerSettings{
		Host:         "localhost",
		Port:         8137,
		Enabled:      DefaultCategories(),
		AutoStart:    true,
		WriteTimeout: 5 * time.Second,
		ReadLimit:    1024 * 1024,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server owns the websocket listener lifecycle and wires connections to the
// driver: full sync on open, read pump enqueuing commands, leave on close
// or read error.
type Server struct {
	doc      *Document
	settings *ServerSettings

	stateLock  sync.Mutex
	listener   net.Listener
	httpServer *http.Server
	driver     *Driver
	hub        *Hub
	queue      *CommandQueue
}

func NewServerWithDefaults(doc *Document) *Server {
	return NewServer(doc, DefaultServerSettings())
}

func NewServer(doc *Document, settings *ServerSettings) *Server {
	return &Server{
		doc:      doc,
		settings: settings,
	}
}

// Start opens the listener and the driver context. Starting an already
// started server returns ErrAlreadyStarted.
func (self *Server) Start(ctx context.Context) error {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if self.listener != nil {
		return ErrAlreadyStarted
	}

	addr := net.JoinHostPort(self.settings.Host, strconv.Itoa(self.settings.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	self.listener = listener
	self.hub = NewHub()
	self.queue = NewCommandQueue()
	self.driver = NewDriver(ctx, self.doc, self.hub, self.queue, self.enabledCategories)
	self.httpServer = &http.Server{
		Handler: http.HandlerFunc(self.serveWs),
	}
	go self.httpServer.Serve(listener)

	glog.Infof("[server]listening on %s\n", listener.Addr())
	return nil
}

// Stop closes the listener and every subscriber connection. Stopping a
// server that is not running returns ErrNotStarted.
func (self *Server) Stop() error {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if self.listener == nil {
		return ErrNotStarted
	}

	self.httpServer.Close()
	self.driver.Close()
	// hijacked websocket connections are not closed by the http server
	self.hub.CloseAll()

	glog.Infof("[server]stopped on %s\n", self.listener.Addr())
	self.listener = nil
	self.httpServer = nil
	self.driver = nil
	self.hub = nil
	self.queue = nil
	return nil
}

func (self *Server) Running() bool {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return self.listener != nil
}

// Addr returns the bound listen address, nil when not running.
func (self *Server) Addr() net.Addr {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if self.listener == nil {
		return nil
	}
	return self.listener.Addr()
}

// Tick runs one incremental sync. Call after every batch of document
// mutations. No-op when the server is not running.
func (self *Server) Tick() {
	if driver := self.currentDriver(); driver != nil {
		driver.Tick()
	}
}

// Resync broadcasts full state to all subscribers, for wholesale reloads.
func (self *Server) Resync() {
	if driver := self.currentDriver(); driver != nil {
		driver.Resync()
	}
}

// Update mutates the document inside the driver context. When the server is
// not running the mutation is applied directly.
func (self *Server) Update(fn func(*Document)) {
	if driver := self.currentDriver(); driver != nil {
		driver.Update(fn)
		return
	}
	fn(self.doc)
}

func (self *Server) currentDriver() *Driver {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return self.driver
}

func (self *Server) enabledCategories() CategorySet {
	return self.settings.Enabled
}

func (self *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	self.stateLock.Lock()
	driver := self.driver
	hub := self.hub
	queue := self.queue
	self.stateLock.Unlock()

	if driver == nil {
		http.Error(w, "server stopped", http.StatusServiceUnavailable)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.V(1).Infof("[server]upgrade error = %s\n", err)
		return
	}

	connection := &wsConn{
		id:           NewId(),
		ws:           ws,
		writeTimeout: self.settings.WriteTimeout,
	}
	// full sync runs in the driver context before the connection can see
	// broadcasts
	driver.Join(connection)
	go self.readPump(hub, queue, connection)
}

// readPump accepts inbound bytes for one connection. It blocks on socket
// reads only and hands parsed commands to the queue; it never touches
// domain state.
func (self *Server) readPump(hub *Hub, queue *CommandQueue, connection *wsConn) {
	defer func() {
		hub.Leave(connection)
		connection.Close()
		glog.V(1).Infof("[server]leave %s\n", connection.id)
	}()

	if 0 < self.settings.ReadLimit {
		connection.ws.SetReadLimit(self.settings.ReadLimit)
	}
	for {
		_, message, err := connection.ws.ReadMessage()
		if err != nil {
			glog.V(1).Infof("[server]%s<- error = %s\n", connection.id, err)
			return
		}
		command, err := parseCommand(message)
		if err != nil {
			glog.V(2).Infof("[server]drop malformed %s<- = %s\n", connection.id, err)
			continue
		}
		queue.Enqueue(command)
	}
}

type wsConn struct {
	id           Id
	ws           *websocket.Conn
	writeTimeout time.Duration
	sendLock     sync.Mutex
}

func (self *wsConn) Send(message []byte) error {
	self.sendLock.Lock()
	defer self.sendLock.Unlock()

	if 0 < self.writeTimeout {
		self.ws.SetWriteDeadline(time.Now().Add(self.writeTimeout))
	}
	return self.ws.WriteMessage(websocket.TextMessage, message)
}

func (self *wsConn) Close() error {
	return self.ws.Close()
}

func (self *wsConn) Id() Id {
	return self.id
}
