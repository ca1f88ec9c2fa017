package sink

import (
	"google.golang.org/protobuf/types/known/structpb"
)

// EventKind discriminates the four lifecycle events spec §6 names:
// "CompileStarted, CompileFinished{status, durationMs},
// ProgramSwapped{swapMode: hard|soft}, FrameProduced{frameIndex, tModelMs}".
type EventKind string

const (
	EventCompileStarted  EventKind = "compileStarted"
	EventCompileFinished EventKind = "compileFinished"
	EventProgramSwapped  EventKind = "programSwapped"
	EventFrameProduced   EventKind = "frameProduced"
)

// SwapMode names how a recompiled program replaced the running one (spec
// §4.9 "hard" vs "soft" swap).
type SwapMode string

const (
	SwapHard SwapMode = "hard"
	SwapSoft SwapMode = "soft"
)

// Event is one entry of the event stream emitted synchronously after
// state commits (spec §6). Only the fields relevant to Kind are
// meaningful, mirroring the four distinct payload shapes in the spec.
type Event struct {
	Kind EventKind

	// CompileFinished
	Status      string
	DurationMs  float64

	// ProgramSwapped
	Swap SwapMode

	// FrameProduced
	FrameIndex uint64
	TModelMs   float64
}

func eventToStruct(e Event) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"kind":       string(e.Kind),
		"status":     e.Status,
		"durationMs": e.DurationMs,
		"swapMode":   string(e.Swap),
		"frameIndex": float64(e.FrameIndex),
		"tModelMs":   e.TModelMs,
	})
}

func structToEvent(s *structpb.Struct) Event {
	return Event{
		Kind:       EventKind(s.Fields["kind"].GetStringValue()),
		Status:     s.Fields["status"].GetStringValue(),
		DurationMs: s.Fields["durationMs"].GetNumberValue(),
		Swap:       SwapMode(s.Fields["swapMode"].GetStringValue()),
		FrameIndex: uint64(s.Fields["frameIndex"].GetNumberValue()),
		TModelMs:   s.Fields["tModelMs"].GetNumberValue(),
	}
}
