package scenewire

import (
	"slices"

	"golang.org/x/exp/maps"
)

// The host-facing scene document. The host mutates it between ticks and the
// driver reads it during ticks; all mutation must go through the driver
// context (`Driver.Update`) once the server is running.

type Vector [3]float64

type Color [3]float64

type Euler [3]float64

// w, x, y, z
type Quaternion [4]float64

// angle, x, y, z
type AxisAngle [4]float64

type RotationMode string

const (
	RotationModeEuler      RotationMode = "XYZ"
	RotationModeAxisAngle  RotationMode = "AXIS_ANGLE"
	RotationModeQuaternion RotationMode = "QUATERNION"
)

type Camera struct {
	// field of view in radians
	Angle float64
}

type LampKind string

const (
	LampPoint LampKind = "POINT"
	LampSpot  LampKind = "SPOT"
	LampSun   LampKind = "SUN"
)

type Lamp struct {
	Kind   LampKind
	Color  Color
	Energy float64
	// spot parameters, used only when Kind is LampSpot
	SpotSize  float64
	SpotBlend float64
}

type Object struct {
	Location           Vector
	RotationMode       RotationMode
	RotationEuler      Euler
	RotationAxisAngle  AxisAngle
	RotationQuaternion Quaternion
	Scale              Vector
	Type               string
	// name of the linked data block, empty if none
	Data string
}

// Mesh geometry is not representable on the wire. Objects reference meshes
// by data block name instead.
type Mesh struct{}

type GatherMethod string

const (
	GatherRaytrace    GatherMethod = "RAYTRACE"
	GatherApproximate GatherMethod = "APPROXIMATE"
)

type World struct {
	AmbientColor        Color
	AOBlendType         string
	AOFactor            float64
	ColorRange          float64
	EnvironmentColor    string
	EnvironmentEnergy   float64
	Exposure            float64
	FalloffStrength     float64
	GatherMethod        GatherMethod
	HorizonColor        Color
	IndirectBounces     int
	IndirectFactor      float64
	UseAmbientOcclusion bool
	UseEnvironmentLight bool
	UseFalloff          bool
	UseIndirectLight    bool
	UseMist             bool
	UseSkyBlend         bool
	UseSkyPaper         bool
	UseSkyReal          bool
	ZenithColor         Color

	// raytrace gather fields
	Samples      int
	SampleMethod string
	Distance     float64

	// approximate gather fields
	Correction     float64
	ErrorThreshold float64
	Passes         int
	UseCache       bool
}

type TimelineMarker struct {
	Name  string
	Frame int
}

type Scene struct {
	ActiveObject    string
	Camera          string
	FPS             float64
	FPSBase         float64
	FrameCurrent    int
	FrameStart      int
	FrameEnd        int
	Gravity         Vector
	Objects         []string
	TimelineMarkers []TimelineMarker
	World           string
}

// Collection is a name-keyed set of records with per-item dirty marks.
// The dirty mark is the host-supplied signal that an item's content changed
// since the last tick; presence changes are detected by the diff engine from
// the key set alone. `Put` and `Delete` raise the collection-level updated
// flag that gates incremental work for the whole category.
type Collection[T any] struct {
	items   map[string]T
	dirty   map[string]bool
	updated bool
}

func NewCollection[T any]() *Collection[T] {
	return &Collection[T]{
		items: map[string]T{},
		dirty: map[string]bool{},
	}
}

func (self *Collection[T]) Put(name string, item T) {
	self.items[name] = item
	self.dirty[name] = true
	self.updated = true
}

func (self *Collection[T]) Delete(name string) {
	if _, ok := self.items[name]; !ok {
		return
	}
	delete(self.items, name)
	delete(self.dirty, name)
	self.updated = true
}

func (self *Collection[T]) Get(name string) (T, bool) {
	item, ok := self.items[name]
	return item, ok
}

func (self *Collection[T]) Len() int {
	return len(self.items)
}

// Keys returns the current names in stable sorted order.
func (self *Collection[T]) Keys() []string {
	keys := maps.Keys(self.items)
	slices.Sort(keys)
	return keys
}

// MarkDirty flags one item for re-serialization on the next incremental
// sync without replacing it.
func (self *Collection[T]) MarkDirty(name string) {
	if _, ok := self.items[name]; !ok {
		return
	}
	self.dirty[name] = true
	self.updated = true
}

func (self *Collection[T]) Updated() bool {
	return self.updated
}

// collectionView is the diff engine's untyped view over a keyed collection.
type collectionView interface {
	updatedFlag() bool
	keys() []string
	isDirty(name string) bool
	value(name string) (any, bool)
	clearDirty()
}

func (self *Collection[T]) updatedFlag() bool {
	return self.updated
}

func (self *Collection[T]) keys() []string {
	return self.Keys()
}

func (self *Collection[T]) isDirty(name string) bool {
	return self.dirty[name]
}

func (self *Collection[T]) value(name string) (any, bool) {
	item, ok := self.items[name]
	if !ok {
		return nil, false
	}
	return item, true
}

func (self *Collection[T]) clearDirty() {
	clear(self.dirty)
	self.updated = false
}

type Document struct {
	Version       [3]int
	VersionString string

	FilePath        string
	SelectedObjects []string

	Cameras *Collection[*Camera]
	Lamps   *Collection[*Lamp]
	Objects *Collection[*Object]
	Worlds  *Collection[*World]
	Scenes  *Collection[*Scene]
}

func NewDocument() *Document {
	return &Document{
		Cameras: NewCollection[*Camera](),
		Lamps:   NewCollection[*Lamp](),
		Objects: NewCollection[*Object](),
		Worlds:  NewCollection[*World](),
		Scenes:  NewCollection[*Scene](),
	}
}

// collection maps a keyed data category to its untyped view. Scene records
// and context are singleton categories and are diffed by structural equality
// instead.
func (self *Document) collection(category Category) collectionView {
	switch category {
	case CategoryCameras:
		return self.Cameras
	case CategoryLamps:
		return self.Lamps
	case CategoryObjects:
		return self.Objects
	case CategoryWorlds:
		return self.Worlds
	default:
		return nil
	}
}
