package messages

import (
	"testing"

	"github.com/cbodonnell/statexfer/pkg/schema"
	"github.com/cbodonnell/statexfer/pkg/snapshot"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestSerializeDeserializeStateUpdate(t *testing.T) {
	type args struct {
		update *StateUpdate
	}
	tests := []struct {
		name    string
		args    args
		wantErr bool
	}{
		{
			name: "Basic state",
			args: args{
				update: &StateUpdate{
					Version: 3,
					State: &snapshot.State{
						Objects: []snapshot.Object{
							{
								Name: "CHUNK_GameLogic",
								Properties: []schema.Property{
									{Name: "frame", Value: "42", Type: "UnsignedInt"},
									{Name: "count[0].id", Value: "7", Type: "Int"},
								},
								ExpectedBytes: 8,
								ConsumedBytes: 8,
								DebugInfo:     snapshot.DebugInfo(8, 8, nil),
							},
							{
								Name:          "CHUNK_Players",
								Properties:    []schema.Property{{Name: "name", Value: "Alice", Type: "AsciiString"}},
								Warnings:      []string{"Block size mismatch: expected 10 bytes, parsed 6"},
								ExpectedBytes: 10,
								ConsumedBytes: 6,
								DebugInfo:     snapshot.DebugInfo(10, 6, []string{"Block size mismatch: expected 10 bytes, parsed 6"}),
							},
						},
					},
				},
			},
			wantErr: false,
		},
		{
			name: "Negative declared block size",
			args: args{
				update: &StateUpdate{
					Version: 2,
					State: &snapshot.State{
						Objects: []snapshot.Object{
							{
								Name:          "CHUNK_Broken",
								Warnings:      []string{"Block size mismatch: expected 0 bytes, parsed 0"},
								ExpectedBytes: 0,
								ConsumedBytes: 0,
								DebugInfo:     snapshot.DebugInfo(-4, 0, []string{"Block size mismatch: expected 0 bytes, parsed 0"}),
							},
						},
					},
				},
			},
			wantErr: false,
		},
		{
			name: "Empty state",
			args: args{
				update: &StateUpdate{Version: 1, State: &snapshot.State{}},
			},
			wantErr: false,
		},
		{
			name:    "Nil update",
			args:    args{update: nil},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := SerializeStateUpdate(tt.args.update)
			if (err != nil) != tt.wantErr {
				t.Errorf("SerializeStateUpdate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}

			got, err := DeserializeStateUpdate(b)
			if err != nil {
				t.Errorf("DeserializeStateUpdate() error = %v", err)
				return
			}

			if diff := cmp.Diff(tt.args.update, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("DeserializeStateUpdate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDeserializeStateUpdateRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "not zstd", data: []byte("definitely not a frame")},
		{name: "empty", data: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DeserializeStateUpdate(tt.data); err == nil {
				t.Errorf("DeserializeStateUpdate() expected an error")
			}
		})
	}
}

func TestDeserializeStateUpdateFlatbufferShortBuffer(t *testing.T) {
	if _, err := DeserializeStateUpdateFlatbuffer([]byte{1, 2}); err == nil {
		t.Errorf("DeserializeStateUpdateFlatbuffer() expected an error")
	}
}
