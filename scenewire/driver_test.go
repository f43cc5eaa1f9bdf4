package scenewire

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-playground/assert/v2"
)

func allCategories() CategorySet {
	return NewCategorySet(
		CategoryCameras,
		CategoryLamps,
		CategoryObjects,
		CategoryWorlds,
		CategoryScenes,
		CategoryContext,
	)
}

func richDocument() *Document {
	doc := testDocument()
	doc.Cameras.Put("Camera", &Camera{Angle: 0.85})
	doc.Lamps.Put("Lamp", &Lamp{Kind: LampPoint, Energy: 1})
	doc.Worlds.Put("World", &World{GatherMethod: GatherRaytrace})
	return doc
}

func newTestDriver(doc *Document, enabled CategorySet) (*Driver, *Hub, *CommandQueue) {
	hub := NewHub()
	queue := NewCommandQueue()
	driver := NewDriver(context.Background(), doc, hub, queue, func() CategorySet {
		return enabled
	})
	return driver, hub, queue
}

func decodeMessage(t *testing.T, encoded []byte) []any {
	var tuple []any
	err := json.Unmarshal(encoded, &tuple)
	assert.Equal(t, err, nil)
	return tuple
}

func messageTag(t *testing.T, encoded []byte) string {
	return decodeMessage(t, encoded)[0].(string)
}

func TestFullSyncSequence(t *testing.T) {
	doc := richDocument()
	driver, hub, _ := newTestDriver(doc, allCategories())
	defer driver.Close()

	conn := newTestConn()
	driver.Join(conn)
	assert.Equal(t, hub.Count(), 1)

	messages := conn.Messages()
	assert.Equal(t, len(messages), 4)
	assert.Equal(t, messageTag(t, messages[0]), "app")
	assert.Equal(t, messageTag(t, messages[1]), "data")
	assert.Equal(t, messageTag(t, messages[2]), "scene")
	assert.Equal(t, messageTag(t, messages[3]), "context")

	app := decodeMessage(t, messages[0])[1].(map[string]any)
	assert.Equal(t, app["versionString"], "2.69.0")

	// every enabled category's current entries, reconstructed exactly
	data := decodeMessage(t, messages[1])[1].(map[string]any)
	assert.Equal(t, len(data), 4)
	objects := data["objects"].(map[string]any)
	assert.Equal(t, len(objects), 2)
	cube := objects["cube"].(map[string]any)
	assert.Equal(t, cube["type"], "MESH")
	assert.Equal(t, cube["data"], "Cube")

	scene := decodeMessage(t, messages[2])
	assert.Equal(t, scene[1], "Scene")
	assert.Equal(t, scene[2].(map[string]any)["camera"], "Camera")

	clientContext := decodeMessage(t, messages[3])[1].(map[string]any)
	assert.Equal(t, clientContext["filePath"], "/tmp/a.scene")
}

func TestFullSyncFailureNotJoined(t *testing.T) {
	doc := richDocument()
	driver, hub, _ := newTestDriver(doc, allCategories())
	defer driver.Close()

	conn := newTestConn()
	conn.failSend = true
	driver.Join(conn)

	assert.Equal(t, hub.Count(), 0)
	assert.Equal(t, conn.Closed(), true)
}

func TestTickIncrementalFlow(t *testing.T) {
	doc := richDocument()
	driver, _, _ := newTestDriver(doc, allCategories())
	defer driver.Close()

	// settle the baseline before anyone joins
	driver.Tick()

	conn := newTestConn()
	driver.Join(conn)
	conn.Reset()

	// no intervening changes, no messages
	driver.Tick()
	assert.Equal(t, len(conn.Messages()), 0)

	// only the dirty key is broadcast
	driver.Update(func(doc *Document) {
		doc.Objects.MarkDirty("cube")
	})
	driver.Tick()
	messages := conn.Messages()
	assert.Equal(t, len(messages), 1)
	data := decodeMessage(t, messages[0])[1].(map[string]any)
	objects := data["objects"].(map[string]any)
	assert.Equal(t, len(objects), 1)
	_, hasCube := objects["cube"]
	assert.Equal(t, hasCube, true)

	// a deletion broadcasts a null entry
	conn.Reset()
	driver.Update(func(doc *Document) {
		doc.Objects.Delete("lamp")
	})
	driver.Tick()
	messages = conn.Messages()
	assert.Equal(t, len(messages), 1)
	data = decodeMessage(t, messages[0])[1].(map[string]any)
	assert.Equal(t, data["objects"], map[string]any{"lamp": nil})
}

func TestJoinIsolation(t *testing.T) {
	doc := richDocument()
	driver, _, _ := newTestDriver(doc, allCategories())
	defer driver.Close()

	driver.Tick()
	first := newTestConn()
	driver.Join(first)
	first.Reset()

	// a join between ticks must not alter the next changeset for existing
	// subscribers
	second := newTestConn()
	driver.Join(second)
	assert.Equal(t, len(first.Messages()), 0)
	second.Reset()

	driver.Update(func(doc *Document) {
		doc.Objects.MarkDirty("cube")
	})
	driver.Tick()

	firstMessages := first.Messages()
	assert.Equal(t, len(firstMessages), 1)
	data := decodeMessage(t, firstMessages[0])[1].(map[string]any)
	objects := data["objects"].(map[string]any)
	assert.Equal(t, len(objects), 1)

	// and both subscribers see the same changeset
	assert.Equal(t, second.Messages(), firstMessages)
}

func TestSceneRemovalBroadcast(t *testing.T) {
	doc := richDocument()
	driver, _, _ := newTestDriver(doc, allCategories())
	defer driver.Close()

	driver.Tick()
	conn := newTestConn()
	driver.Join(conn)
	conn.Reset()

	driver.Update(func(doc *Document) {
		doc.Scenes.Delete("Scene")
	})
	driver.Tick()

	messages := conn.Messages()
	assert.Equal(t, len(messages), 1)
	assert.Equal(t, string(messages[0]), `["scene","Scene"]`)
}

func TestCommandFifoApply(t *testing.T) {
	doc := richDocument()
	driver, _, queue := newTestDriver(doc, allCategories())
	defer driver.Close()

	driver.Tick()

	// A then B in wall-clock order, B's write lands last
	queue.Enqueue(&Command{Category: "scene", Key: "Scene", Patch: map[string]any{"frame": 5.0}})
	queue.Enqueue(&Command{Category: "scene", Key: "Scene", Patch: map[string]any{"frame": 9.0}})
	driver.Tick()

	frame := 0
	driver.Update(func(doc *Document) {
		scene, _ := doc.Scenes.Get("Scene")
		frame = scene.FrameCurrent
	})
	assert.Equal(t, frame, 9)

	// the mutation is broadcast on the following tick
	conn := newTestConn()
	driver.Join(conn)
	conn.Reset()
	driver.Update(func(doc *Document) {
		scene, _ := doc.Scenes.Get("Scene")
		scene.FrameCurrent = 12
	})
	driver.Tick()
	messages := conn.Messages()
	assert.Equal(t, len(messages), 1)
	scene := decodeMessage(t, messages[0])
	assert.Equal(t, scene[0], "scene")
	assert.Equal(t, scene[2].(map[string]any)["frame"], 12.0)
}

func TestUnresolvableCommandsDiscarded(t *testing.T) {
	doc := richDocument()
	driver, _, queue := newTestDriver(doc, allCategories())
	defer driver.Close()

	driver.Tick()

	queue.Enqueue(&Command{Category: "warp", Key: "Scene", Patch: map[string]any{"frame": 5.0}})
	queue.Enqueue(&Command{Category: "scene", Key: "missing", Patch: map[string]any{"frame": 5.0}})
	queue.Enqueue(&Command{Category: "scene", Key: "Scene", Patch: map[string]any{"warp": 5.0}})
	queue.Enqueue(&Command{Category: "scene", Key: "Scene", Patch: nil})
	driver.Tick()

	frame := 0
	driver.Update(func(doc *Document) {
		scene, _ := doc.Scenes.Get("Scene")
		frame = scene.FrameCurrent
	})
	assert.Equal(t, frame, 1)
}

func TestDisabledCategorySkippedThenResent(t *testing.T) {
	doc := richDocument()
	enabled := NewCategorySet(CategoryScenes, CategoryContext)
	driver, _, _ := newTestDriver(doc, enabled)
	defer driver.Close()

	driver.Tick()
	conn := newTestConn()
	driver.Join(conn)
	conn.Reset()

	driver.Tick()
	assert.Equal(t, len(conn.Messages()), 0)

	// re-enabling a category forces a resend because its baseline and the
	// host dirty marks were left untouched while disabled
	enabled[CategoryObjects] = true
	driver.Tick()
	messages := conn.Messages()
	assert.Equal(t, len(messages), 1)
	data := decodeMessage(t, messages[0])[1].(map[string]any)
	objects := data["objects"].(map[string]any)
	assert.Equal(t, len(objects), 2)
}

func TestResyncRebasesBaseline(t *testing.T) {
	doc := richDocument()
	driver, _, _ := newTestDriver(doc, allCategories())
	defer driver.Close()

	driver.Tick()
	conn := newTestConn()
	driver.Join(conn)
	conn.Reset()

	driver.Resync()
	messages := conn.Messages()
	assert.Equal(t, len(messages), 4)
	assert.Equal(t, messageTag(t, messages[0]), "app")

	// the resync reset the baseline, so the next tick is a no-op
	conn.Reset()
	driver.Tick()
	assert.Equal(t, len(conn.Messages()), 0)
}

func TestTickSurvivesOneBadScene(t *testing.T) {
	doc := richDocument()
	driver, _, _ := newTestDriver(doc, allCategories())
	defer driver.Close()

	driver.Tick()
	conn := newTestConn()
	driver.Join(conn)
	conn.Reset()

	// a nil record panics during serialization; the failure is isolated to
	// that scene and the rest of the tick still runs
	driver.Update(func(doc *Document) {
		doc.Scenes.Put("broken", nil)
		scene, _ := doc.Scenes.Get("Scene")
		scene.FrameCurrent = 3
	})
	driver.Tick()

	sceneFrames := []float64{}
	for _, encoded := range conn.Messages() {
		tuple := decodeMessage(t, encoded)
		if tuple[0] == "scene" && tuple[1] == "Scene" {
			sceneFrames = append(sceneFrames, tuple[2].(map[string]any)["frame"].(float64))
		}
	}
	assert.Equal(t, sceneFrames, []float64{3})
}
