package scenewire

import (
	"slices"
	"sync"

	"github.com/golang/glog"
)

// Connection is one subscriber, owned by the hub from join to leave.
type Connection interface {
	// Send hands one encoded message to the transport. It must not block
	// beyond handing the message to the transport's send buffer.
	Send(message []byte) error
	Close() error
	Id() Id
}

// Hub tracks the live subscriber set and fans out serialized messages.
// Join and leave arrive concurrently from connection contexts; broadcast
// iterates a copy of the live set taken at call time so a racing leave
// cannot corrupt iteration (copy-on-update, like a callback list).
type Hub struct {
	stateLock   sync.Mutex
	connections []Connection
}

func NewHub() *Hub {
	return &Hub{}
}

func (self *Hub) Join(connection Connection) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	i := slices.Index(self.connections, connection)
	if 0 <= i {
		// already present
		return
	}
	nextConnections := slices.Clone(self.connections)
	nextConnections = append(nextConnections, connection)
	self.connections = nextConnections
}

// Leave removes the connection. Removing an already-removed connection is a
// no-op.
func (self *Hub) Leave(connection Connection) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	i := slices.Index(self.connections, connection)
	if i < 0 {
		// not present
		return
	}
	nextConnections := slices.Clone(self.connections)
	nextConnections = slices.Delete(nextConnections, i, i+1)
	self.connections = nextConnections
}

// Connections returns the live set at call time.
func (self *Hub) Connections() []Connection {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return self.connections
}

func (self *Hub) Count() int {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return len(self.connections)
}

// Broadcast sends one message to every live connection. A delivery failure
// drops only that connection; the remaining set still gets the message.
func (self *Hub) Broadcast(message []byte) {
	for _, connection := range self.Connections() {
		if err := connection.Send(message); err != nil {
			glog.Infof("[hub]drop %s = %s\n", connection.Id(), err)
			connection.Close()
			self.Leave(connection)
		}
	}
}

// CloseAll closes and removes every connection, for listener shutdown.
func (self *Hub) CloseAll() {
	self.stateLock.Lock()
	connections := self.connections
	self.connections = nil
	self.stateLock.Unlock()

	for _, connection := range connections {
		connection.Close()
	}
}
