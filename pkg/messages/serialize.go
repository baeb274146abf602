package messages

import (
	"bytes"
	"fmt"
	"io"

	snapshotfb "github.com/cbodonnell/statexfer/flatbuffers/snapshot"
	"github.com/cbodonnell/statexfer/pkg/schema"
	"github.com/cbodonnell/statexfer/pkg/snapshot"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/klauspost/compress/zstd"
)

// SerializeStateUpdate encodes u as a zstd compressed flatbuffer.
func SerializeStateUpdate(u *StateUpdate) ([]byte, error) {
	b, err := SerializeStateUpdateFlatbuffer(u)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize state update: %v", err)
	}

	compressed := bytes.NewBuffer(nil)
	compWriter, err := zstd.NewWriter(compressed, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd writer: %v", err)
	}
	if _, err := compWriter.Write(b); err != nil {
		return nil, fmt.Errorf("failed to compress state update: %v", err)
	}
	if err := compWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zstd writer: %v", err)
	}

	return compressed.Bytes(), nil
}

func DeserializeStateUpdate(data []byte) (*StateUpdate, error) {
	compReader, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %v", err)
	}
	defer compReader.Close()
	b, err := io.ReadAll(compReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read decompressed state update: %v", err)
	}

	u, err := DeserializeStateUpdateFlatbuffer(b)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize state update: %v", err)
	}

	return u, nil
}

func SerializeStateUpdateFlatbuffer(u *StateUpdate) ([]byte, error) {
	if u == nil {
		return nil, fmt.Errorf("state update is nil")
	}
	builder := flatbuffers.NewBuilder(1024)

	var objects []snapshot.Object
	if u.State != nil {
		objects = u.State.Objects
	}
	objectOffsets := make([]flatbuffers.UOffsetT, 0, len(objects))
	for i := range objects {
		objectOffsets = append(objectOffsets, SerializeObjectFlatbuffer(builder, &objects[i]))
	}
	snapshotfb.StateStartObjectsVector(builder, len(objectOffsets))
	for i := len(objectOffsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(objectOffsets[i])
	}
	objectsVector := builder.EndVector(len(objectOffsets))

	snapshotfb.StateStart(builder)
	snapshotfb.StateAddVersion(builder, u.Version)
	snapshotfb.StateAddObjects(builder, objectsVector)
	state := snapshotfb.StateEnd(builder)
	snapshotfb.FinishStateBuffer(builder, state)

	return builder.FinishedBytes(), nil
}

func SerializeObjectFlatbuffer(builder *flatbuffers.Builder, obj *snapshot.Object) flatbuffers.UOffsetT {
	propertyOffsets := make([]flatbuffers.UOffsetT, 0, len(obj.Properties))
	for _, p := range obj.Properties {
		name := builder.CreateString(p.Name)
		value := builder.CreateString(p.Value)
		typ := builder.CreateString(p.Type)

		snapshotfb.PropertyStart(builder)
		snapshotfb.PropertyAddName(builder, name)
		snapshotfb.PropertyAddValue(builder, value)
		snapshotfb.PropertyAddType(builder, typ)
		propertyOffsets = append(propertyOffsets, snapshotfb.PropertyEnd(builder))
	}
	snapshotfb.ObjectStartPropertiesVector(builder, len(propertyOffsets))
	for i := len(propertyOffsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(propertyOffsets[i])
	}
	properties := builder.EndVector(len(propertyOffsets))

	warningOffsets := make([]flatbuffers.UOffsetT, 0, len(obj.Warnings))
	for _, w := range obj.Warnings {
		warningOffsets = append(warningOffsets, builder.CreateString(w))
	}
	snapshotfb.ObjectStartWarningsVector(builder, len(warningOffsets))
	for i := len(warningOffsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(warningOffsets[i])
	}
	warnings := builder.EndVector(len(warningOffsets))

	name := builder.CreateString(obj.Name)
	debugInfo := builder.CreateString(obj.DebugInfo)

	snapshotfb.ObjectStart(builder)
	snapshotfb.ObjectAddName(builder, name)
	snapshotfb.ObjectAddProperties(builder, properties)
	snapshotfb.ObjectAddWarnings(builder, warnings)
	snapshotfb.ObjectAddExpectedBytes(builder, obj.ExpectedBytes)
	snapshotfb.ObjectAddConsumedBytes(builder, obj.ConsumedBytes)
	snapshotfb.ObjectAddDebugInfo(builder, debugInfo)
	return snapshotfb.ObjectEnd(builder)
}

func DeserializeStateUpdateFlatbuffer(b []byte) (u *StateUpdate, err error) {
	if len(b) < flatbuffers.SizeUOffsetT {
		return nil, fmt.Errorf("buffer of %d bytes is too short", len(b))
	}
	// accessors panic on malformed offsets
	defer func() {
		if r := recover(); r != nil {
			u, err = nil, fmt.Errorf("malformed state update: %v", r)
		}
	}()

	fb := snapshotfb.GetRootAsState(b, 0)
	state := &snapshot.State{
		Objects: make([]snapshot.Object, 0, fb.ObjectsLength()),
	}
	objectFb := &snapshotfb.Object{}
	for i := 0; i < fb.ObjectsLength(); i++ {
		if !fb.Objects(objectFb, i) {
			return nil, fmt.Errorf("failed to read object %d", i)
		}
		state.Objects = append(state.Objects, DeserializeObjectFlatbuffer(objectFb))
	}

	return &StateUpdate{
		Version: fb.Version(),
		State:   state,
	}, nil
}

func DeserializeObjectFlatbuffer(fb *snapshotfb.Object) snapshot.Object {
	obj := snapshot.Object{
		Name:          string(fb.Name()),
		ExpectedBytes: fb.ExpectedBytes(),
		ConsumedBytes: fb.ConsumedBytes(),
	}

	propertyFb := &snapshotfb.Property{}
	for i := 0; i < fb.PropertiesLength(); i++ {
		if fb.Properties(propertyFb, i) {
			obj.Properties = append(obj.Properties, schema.Property{
				Name:  string(propertyFb.Name()),
				Value: string(propertyFb.Value()),
				Type:  string(propertyFb.Type()),
			})
		}
	}
	for i := 0; i < fb.WarningsLength(); i++ {
		obj.Warnings = append(obj.Warnings, string(fb.Warnings(i)))
	}
	// producers without the field get the text rebuilt from the counters
	if debugInfo := fb.DebugInfo(); debugInfo != nil {
		obj.DebugInfo = string(debugInfo)
	} else {
		obj.DebugInfo = snapshot.DebugInfo(obj.ExpectedBytes, obj.ConsumedBytes, obj.Warnings)
	}

	return obj
}
