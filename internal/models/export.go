package models

import "encoding/json"

// ResultTypeVideoRectangle is the only result kind that carries tracks.
const ResultTypeVideoRectangle = "videorectangle"

// Task is one entry of a Label Studio JSON export. Required and optional
// fields are decided by the annotation parser, not by zero values: pointer
// and json.RawMessage fields distinguish "absent" from "zero".
type Task struct {
	ID          json.RawMessage `json:"id"`
	Data        TaskData        `json:"data"`
	Annotations []Annotation    `json:"annotations"`
}

type TaskData struct {
	Video string `json:"video"`
}

type Annotation struct {
	ID     json.RawMessage `json:"id"`
	Result []Result        `json:"result"`
}

type Result struct {
	ID       string      `json:"id"`
	Type     string      `json:"type"`
	FromName string      `json:"from_name"`
	ToName   string      `json:"to_name"`
	Value    ResultValue `json:"value"`
}

type ResultValue struct {
	FramesCount *int           `json:"framesCount,omitempty"`
	Sequence    []SequenceItem `json:"sequence"`
	Labels      []string       `json:"labels,omitempty"`
}

// SequenceItem is one raw keyframe; every geometric field is required.
type SequenceItem struct {
	Frame   *json.Number `json:"frame"`
	X       *float64     `json:"x"`
	Y       *float64     `json:"y"`
	Width   *float64     `json:"width"`
	Height  *float64     `json:"height"`
	Enabled *bool        `json:"enabled"`
	Time    *float64     `json:"time,omitempty"`
}
