package scenewire

import (
	"context"

	"github.com/golang/glog"
)

type driverEvent struct {
	tick   bool
	resync bool
	update func(*Document)
	join   Connection
	done   chan struct{}
}

// Driver orchestrates syncs. One goroutine owns all document reads, the
// snapshot baseline, and the decision of what to broadcast; ticks, joins,
// resyncs, and document updates are posted to its event channel so they
// never run concurrently with each other. This single-writer discipline is
// what makes the diff read of current state and write of the baseline atomic
// without locking the document.
type Driver struct {
	ctx    context.Context
	cancel context.CancelFunc

	doc     *Document
	hub     *Hub
	queue   *CommandQueue
	diff    *diffEngine
	enabled func() CategorySet

	events chan *driverEvent
}

func NewDriver(
	ctx context.Context,
	doc *Document,
	hub *Hub,
	queue *CommandQueue,
	enabled func() CategorySet,
) *Driver {
	cancelCtx, cancel := context.WithCancel(ctx)
	driver := &Driver{
		ctx:     cancelCtx,
		cancel:  cancel,
		doc:     doc,
		hub:     hub,
		queue:   queue,
		diff:    newDiffEngine(),
		enabled: enabled,
		events:  make(chan *driverEvent),
	}
	go driver.run()
	return driver
}

func (self *Driver) run() {
	defer self.cancel()

	for {
		select {
		case <-self.ctx.Done():
			return
		case event := <-self.events:
			HandleError(func() {
				self.handle(event)
			})
			close(event.done)
		}
	}
}

func (self *Driver) handle(event *driverEvent) {
	switch {
	case event.update != nil:
		event.update(self.doc)
	case event.tick:
		self.tick()
	case event.resync:
		self.resync()
	case event.join != nil:
		self.joinConnection(event.join)
	}
}

// post hands an event to the driver goroutine and waits for it to be
// processed, so callers observe their effect before returning.
func (self *Driver) post(event *driverEvent) {
	event.done = make(chan struct{})
	select {
	case <-self.ctx.Done():
		return
	case self.events <- event:
	}
	select {
	case <-self.ctx.Done():
	case <-event.done:
	}
}

// Tick runs one incremental sync: diff every enabled category in fixed
// order, broadcast the non-empty changesets, then drain and apply queued
// commands. Call it once per external state-change notification.
func (self *Driver) Tick() {
	self.post(&driverEvent{tick: true})
}

// Update runs fn against the document inside the driver context, serialized
// with ticks and joins.
func (self *Driver) Update(fn func(*Document)) {
	self.post(&driverEvent{update: fn})
}

// Resync broadcasts the complete current state to every subscriber and
// resets the incremental baseline to it. Use after a wholesale document
// reload.
func (self *Driver) Resync() {
	self.post(&driverEvent{resync: true})
}

// Join sends a full sync to the new connection and then adds it to the live
// set, so no subscriber ever observes a partial initial state.
func (self *Driver) Join(connection Connection) {
	self.post(&driverEvent{join: connection})
}

func (self *Driver) Close() {
	self.cancel()
}

func (self *Driver) tick() {
	for _, message := range self.incrementalMessages(self.enabled()) {
		self.hub.Broadcast(message)
	}
	for _, command := range self.queue.DrainAll() {
		command := command
		HandleError(func() {
			self.apply(command)
		})
	}
}

func (self *Driver) resync() {
	for _, message := range self.fullMessages(self.enabled(), true) {
		self.hub.Broadcast(message)
	}
}

func (self *Driver) joinConnection(connection Connection) {
	for _, message := range self.fullMessages(self.enabled(), false) {
		if err := connection.Send(message); err != nil {
			glog.V(1).Infof("[driver]full sync %s = %s\n", connection.Id(), err)
			connection.Close()
			return
		}
	}
	self.hub.Join(connection)
	glog.V(1).Infof("[driver]join %s\n", connection.Id())
}

// incrementalMessages materializes the full ordered message list for one
// tick before any send, so every subscriber sees the same relative order of
// category messages. Each category diff is panic-isolated.
func (self *Driver) incrementalMessages(enabled CategorySet) [][]byte {
	messages := [][]byte{}

	data := map[string]any{}
	for _, category := range DataCategories {
		if !enabled[category] {
			continue
		}
		category := category
		HandleError(func() {
			if entries, ok := self.diff.dataCategory(self.doc, category, false, true); ok {
				data[string(category)] = entries
			}
		})
	}
	if 0 < len(data) {
		appendEncoded(&messages, dataMessage(data))
	}

	if enabled[CategoryScenes] {
		for _, name := range self.diff.removedScenes(self.doc) {
			appendEncoded(&messages, sceneRemovedMessage(name))
		}
		for _, name := range self.doc.Scenes.Keys() {
			name := name
			HandleError(func() {
				if record, ok := self.diff.sceneRecord(self.doc, name, false, true); ok {
					appendEncoded(&messages, sceneMessage(name, record))
				}
			})
		}
	}

	if enabled[CategoryContext] {
		HandleError(func() {
			if record, ok := self.diff.contextRecord(self.doc, false, true); ok {
				appendEncoded(&messages, contextMessage(record))
			}
		})
	}

	return messages
}

// fullMessages materializes the complete current state in the fixed order:
// app info, data categories, per-scene records, context. With rebase the
// baseline is reset to the serialized state; joins pass rebase=false so the
// baseline for existing subscribers is untouched.
func (self *Driver) fullMessages(enabled CategorySet, rebase bool) [][]byte {
	messages := [][]byte{}
	appendEncoded(&messages, appMessage(self.doc.Version, self.doc.VersionString))

	data := map[string]any{}
	for _, category := range DataCategories {
		if !enabled[category] {
			continue
		}
		category := category
		HandleError(func() {
			if entries, ok := self.diff.dataCategory(self.doc, category, true, rebase); ok {
				data[string(category)] = entries
			}
		})
	}
	if 0 < len(data) {
		appendEncoded(&messages, dataMessage(data))
	}

	if enabled[CategoryScenes] {
		for _, name := range self.doc.Scenes.Keys() {
			name := name
			HandleError(func() {
				if record, ok := self.diff.sceneRecord(self.doc, name, true, rebase); ok {
					appendEncoded(&messages, sceneMessage(name, record))
				}
			})
		}
	}

	if enabled[CategoryContext] {
		HandleError(func() {
			if record, ok := self.diff.contextRecord(self.doc, true, rebase); ok {
				appendEncoded(&messages, contextMessage(record))
			}
		})
	}

	return messages
}

// apply writes one queued command into the document. Unresolvable commands
// (unknown category, scene, or field type) are discarded, never fatal.
func (self *Driver) apply(command *Command) {
	if command.Category != messageTagScene {
		glog.V(2).Infof("[driver]drop command category=%s\n", command.Category)
		return
	}
	scene, ok := self.doc.Scenes.Get(command.Key)
	if !ok {
		glog.V(2).Infof("[driver]drop command scene=%s\n", command.Key)
		return
	}
	// the only recognized field; unrecognized fields are ignored
	if frame, ok := command.Patch["frame"]; ok {
		if f, ok := frame.(float64); ok {
			scene.FrameCurrent = int(f)
		}
	}
}

func appendEncoded(messages *[][]byte, message Message) {
	encoded, err := encodeMessage(message)
	if err != nil {
		glog.Warningf("[driver]encode error = %s\n", err)
		return
	}
	*messages = append(*messages, encoded)
}
