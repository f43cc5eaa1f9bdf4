package scenewire

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Command is a parsed inbound subscriber message requesting a state
// mutation. Commands are never mutated after enqueue.
type Command struct {
	// wire tuple tag, e.g. "scene"
	Category string
	Key      string
	Patch    map[string]any
}

// parseCommand decodes an inbound `[category, key, {field: value, ...}]`
// tuple. Unrecognized fields survive parsing and are ignored at apply time.
func parseCommand(message []byte) (*Command, error) {
	var tuple []json.RawMessage
	if err := json.Unmarshal(message, &tuple); err != nil {
		return nil, err
	}
	if len(tuple) < 3 {
		return nil, fmt.Errorf("command tuple must have 3 elements, got %d", len(tuple))
	}
	command := &Command{}
	if err := json.Unmarshal(tuple[0], &command.Category); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tuple[1], &command.Key); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tuple[2], &command.Patch); err != nil {
		return nil, err
	}
	return command, nil
}

// CommandQueue hands off inbound commands from concurrent connection read
// pumps to the single driver context. Multi-producer, single-consumer,
// unbounded, FIFO by arrival order. Enqueue holds the lock only to append
// so read pumps never wait on domain-state work.
type CommandQueue struct {
	stateLock sync.Mutex
	commands  []*Command
}

func NewCommandQueue() *CommandQueue {
	return &CommandQueue{}
}

func (self *CommandQueue) Enqueue(command *Command) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	self.commands = append(self.commands, command)
}

// DrainAll atomically empties the queue into an ordered sequence for
// sequential application. Driver-only.
func (self *CommandQueue) DrainAll() []*Command {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	commands := self.commands
	self.commands = nil
	return commands
}

func (self *CommandQueue) Size() int {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return len(self.commands)
}
