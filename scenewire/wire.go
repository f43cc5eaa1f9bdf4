package scenewire

import (
	"encoding/json"
)

// Broadcast messages are compact array-encoded tuples:
//
//	["app", {"version": [...], "versionString": ...}]
//	["data", {category: {key: value|null, ...}, ...}]
//	["scene", name, {...fields...}]
//	["scene", name]                  scene removal
//	["context", {...fields...}]
//
// A null entry value marks a key removed since the previous snapshot.

const (
	messageTagApp     = "app"
	messageTagData    = "data"
	messageTagScene   = "scene"
	messageTagContext = "context"
)

type Message []any

func appMessage(version [3]int, versionString string) Message {
	return Message{messageTagApp, map[string]any{
		"version":       []any{version[0], version[1], version[2]},
		"versionString": versionString,
	}}
}

func dataMessage(data map[string]any) Message {
	return Message{messageTagData, data}
}

func sceneMessage(name string, fields map[string]any) Message {
	return Message{messageTagScene, name, fields}
}

func sceneRemovedMessage(name string) Message {
	return Message{messageTagScene, name}
}

func contextMessage(fields map[string]any) Message {
	return Message{messageTagContext, fields}
}

// encodeMessage renders one envelope tuple with minimal separators and no
// whitespace.
func encodeMessage(message Message) ([]byte, error) {
	return json.Marshal([]any(message))
}
