package scenewire

// serialize converts a domain value into its wire-representable form. The
// bool result is false when the value has no wire representation; callers
// omit such fields rather than failing. Dispatch is a closed switch over the
// known domain types so unknown values fail closed.
func serialize(value any) (any, bool) {
	switch v := value.(type) {
	case *Camera:
		return map[string]any{
			"angle": v.Angle,
		}, true
	case *Lamp:
		return serializeLamp(v), true
	case *Object:
		return serializeObject(v), true
	case *Mesh:
		// referenced by data block name only
		return nil, true
	case *World:
		return serializeWorld(v), true
	case *Scene:
		return serializeScene(v), true
	case TimelineMarker:
		return map[string]any{
			"frame": v.Frame,
			"name":  v.Name,
		}, true
	case Vector:
		return []float64{v[0], v[1], v[2]}, true
	case Color:
		return []float64{v[0], v[1], v[2]}, true
	case Euler:
		return []float64{v[0], v[1], v[2]}, true
	case Quaternion:
		return []float64{v[0], v[1], v[2], v[3]}, true
	case AxisAngle:
		return []float64{v[0], v[1], v[2], v[3]}, true
	default:
		return nil, false
	}
}

// putField adds one serialized field to a mapping, dropping it when the
// value is unrepresentable instead of failing the whole object.
func putField(fields map[string]any, key string, value any) {
	wire, ok := serialize(value)
	if !ok {
		return
	}
	fields[key] = wire
}

func serializeLamp(lamp *Lamp) map[string]any {
	fields := map[string]any{
		"power": lamp.Energy*8 + 10,
		"type":  string(lamp.Kind),
	}
	putField(fields, "color", lamp.Color)
	if lamp.Kind == LampSpot {
		fields["angle"] = lamp.SpotSize / 2
		fields["blend"] = lamp.SpotBlend
	}
	return fields
}

func serializeObject(object *Object) map[string]any {
	fields := map[string]any{
		"rotationMode": string(object.RotationMode),
		"type":         object.Type,
	}
	putField(fields, "location", object.Location)
	putField(fields, "scale", object.Scale)
	switch object.RotationMode {
	case RotationModeAxisAngle:
		putField(fields, "rotation", object.RotationAxisAngle)
	case RotationModeQuaternion:
		putField(fields, "rotation", object.RotationQuaternion)
	default:
		putField(fields, "rotation", object.RotationEuler)
	}
	if object.Data != "" {
		fields["data"] = object.Data
	}
	return fields
}

func serializeWorld(world *World) map[string]any {
	fields := map[string]any{
		"ambientOcclusionBlendType": world.AOBlendType,
		"ambientOcclusionFactor":    world.AOFactor,
		"colorRange":                world.ColorRange,
		"environmentColor":          world.EnvironmentColor,
		"environmentEnergy":         world.EnvironmentEnergy,
		"exposure":                  world.Exposure,
		"falloffStrength":           world.FalloffStrength,
		"gatherMethod":              string(world.GatherMethod),
		"indirectBounces":           world.IndirectBounces,
		"indirectFactor":            world.IndirectFactor,
		"useAmbientOcclusion":       world.UseAmbientOcclusion,
		"useEnvironmentLighting":    world.UseEnvironmentLight,
		"useFalloff":                world.UseFalloff,
		"useIndirectLighting":       world.UseIndirectLight,
		"useMist":                   world.UseMist,
		"useSkyBlend":               world.UseSkyBlend,
		"useSkyPaper":               world.UseSkyPaper,
		"useSkyReal":                world.UseSkyReal,
	}
	// "ambiant" is the historic wire key, kept for client compatibility
	putField(fields, "ambiantColor", world.AmbientColor)
	putField(fields, "horizonColor", world.HorizonColor)
	putField(fields, "zenithColor", world.ZenithColor)
	switch world.GatherMethod {
	case GatherRaytrace:
		fields["samples"] = world.Samples
		fields["samplingMethod"] = world.SampleMethod
		fields["distance"] = world.Distance
	case GatherApproximate:
		fields["correction"] = world.Correction
		fields["errorThreshold"] = world.ErrorThreshold
		fields["passes"] = world.Passes
		fields["useCache"] = world.UseCache
	}
	if world.UseMist {
		fields["mist"] = 2
	}
	return fields
}

func serializeScene(scene *Scene) map[string]any {
	fpsBase := scene.FPSBase
	if fpsBase == 0 {
		fpsBase = 1
	}
	objects := []any{}
	for _, name := range scene.Objects {
		objects = append(objects, name)
	}
	markers := []any{}
	for _, marker := range scene.TimelineMarkers {
		putFieldSeq(&markers, marker)
	}
	fields := map[string]any{
		"activeObject":    nameOrNil(scene.ActiveObject),
		"camera":          nameOrNil(scene.Camera),
		"fps":             scene.FPS / fpsBase,
		"frame":           scene.FrameCurrent,
		"frameEnd":        scene.FrameEnd,
		"frameStart":      scene.FrameStart,
		"objects":         objects,
		"timelineMarkers": markers,
		"world":           nameOrNil(scene.World),
	}
	putField(fields, "gravity", scene.Gravity)
	return fields
}

// putFieldSeq appends one serialized element to a sequence, dropping it when
// unrepresentable.
func putFieldSeq(seq *[]any, value any) {
	wire, ok := serialize(value)
	if !ok {
		return
	}
	*seq = append(*seq, wire)
}

func nameOrNil(name string) any {
	if name == "" {
		return nil
	}
	return name
}
