package scenewire

import (
	"fmt"
	"sync"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestParseCommand(t *testing.T) {
	command, err := parseCommand([]byte(`["scene","Scene",{"frame":42}]`))
	assert.Equal(t, err, nil)
	assert.Equal(t, command.Category, "scene")
	assert.Equal(t, command.Key, "Scene")
	assert.Equal(t, command.Patch, map[string]any{"frame": 42.0})

	// unrecognized fields survive parsing, they are ignored at apply time
	command, err = parseCommand([]byte(`["scene","Scene",{"frame":1,"warp":9}]`))
	assert.Equal(t, err, nil)
	assert.Equal(t, command.Patch["warp"], 9.0)

	_, err = parseCommand([]byte(`not json`))
	assert.NotEqual(t, err, nil)

	_, err = parseCommand([]byte(`["scene","Scene"]`))
	assert.NotEqual(t, err, nil)

	_, err = parseCommand([]byte(`[1,"Scene",{}]`))
	assert.NotEqual(t, err, nil)

	_, err = parseCommand([]byte(`["scene","Scene",[]]`))
	assert.NotEqual(t, err, nil)
}

func TestCommandQueueFifo(t *testing.T) {
	queue := NewCommandQueue()

	a := &Command{Category: "scene", Key: "Scene", Patch: map[string]any{"frame": 1.0}}
	b := &Command{Category: "scene", Key: "Scene", Patch: map[string]any{"frame": 2.0}}
	queue.Enqueue(a)
	queue.Enqueue(b)
	assert.Equal(t, queue.Size(), 2)

	commands := queue.DrainAll()
	assert.Equal(t, len(commands), 2)
	assert.Equal(t, commands[0], a)
	assert.Equal(t, commands[1], b)

	// drain atomically empties the queue
	assert.Equal(t, queue.Size(), 0)
	assert.Equal(t, len(queue.DrainAll()), 0)
}

func TestCommandQueueConcurrentProducers(t *testing.T) {
	queue := NewCommandQueue()

	producers := 8
	perProducer := 200

	wg := sync.WaitGroup{}
	for p := 0; p < producers; p += 1 {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i += 1 {
				queue.Enqueue(&Command{
					Category: "scene",
					Key:      fmt.Sprintf("p%d", p),
					Patch:    map[string]any{"frame": float64(i)},
				})
			}
		}(p)
	}
	wg.Wait()

	commands := queue.DrainAll()
	assert.Equal(t, len(commands), producers*perProducer)

	// per-producer order is preserved within overall arrival order
	next := map[string]float64{}
	for _, command := range commands {
		frame := command.Patch["frame"].(float64)
		assert.Equal(t, frame, next[command.Key])
		next[command.Key] = frame + 1
	}
}
