package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traffisense/core/errors"
)

func TestDecodeMessage(t *testing.T) {
	t.Run("error wins over frame content", func(t *testing.T) {
		msg, err := DecodeMessage([]byte(`{"error":"File not found","objects":[],"image":"AAAA"}`))
		require.NoError(t, err)
		assert.Equal(t, ErrorMessage{Text: "File not found"}, msg)
	})

	t.Run("frame with image objects and progress", func(t *testing.T) {
		msg, err := DecodeMessage([]byte(`{
			"frame_width": 640, "frame_height": 360,
			"objects": [
				{"id": 4, "box": [1,2,3,4], "direction": 181.5, "is_wrong_way": true, "is_new_violation": true, "speed": 12.5},
				{"id": 5, "direction": 2, "is_wrong_way": false, "is_new_violation": false, "speed": 9}
			],
			"majority_direction": 0,
			"current_frame": 30, "total_frames": 300,
			"image": "/9j/AA=="
		}`))
		require.NoError(t, err)

		frame, ok := msg.(FrameMessage)
		require.True(t, ok, "got %T", msg)
		assert.True(t, frame.HasImage)
		assert.Equal(t, []byte{0xff, 0xd8, 0xff, 0x00}, frame.Image)
		assert.True(t, frame.HasObjects)
		require.Len(t, frame.Objects, 2)
		assert.True(t, frame.Objects[0].IsNewViolation)
		assert.Equal(t, 4, frame.Objects[0].ID)
		assert.True(t, frame.HasProgress)
		assert.Equal(t, 30, frame.CurrentFrame)
		assert.Equal(t, 300, frame.TotalFrames)
	})

	t.Run("empty objects still count as objects", func(t *testing.T) {
		msg, err := DecodeMessage([]byte(`{"objects":[]}`))
		require.NoError(t, err)
		frame := msg.(FrameMessage)
		assert.True(t, frame.HasObjects)
		assert.Empty(t, frame.Objects)
		assert.False(t, frame.HasImage)
		assert.False(t, frame.HasProgress)
	})

	t.Run("status", func(t *testing.T) {
		msg, err := DecodeMessage([]byte(`{"type":"status","message":"Uploading video to cloud"}`))
		require.NoError(t, err)
		assert.Equal(t, StatusMessage{Text: "Uploading video to cloud"}, msg)
	})

	t.Run("report", func(t *testing.T) {
		msg, err := DecodeMessage([]byte(`{"type":"report","summary":{
			"total": 12, "forward": 9, "backward": 2, "stationary": 1, "violations": 2,
			"violation_list": [{"id": 4, "type": "car", "start_time": 5.2, "end_time": 7.0, "start_frame": 156, "end_frame": 210}],
			"average_speed": 31.4,
			"class_breakdown": {"car": 10, "truck": 2},
			"full_video": "full_clip.mp4",
			"cloud_video_url": null
		}}`))
		require.NoError(t, err)
		rep, ok := msg.(ReportMessage)
		require.True(t, ok)
		assert.Equal(t, 12, rep.Report.Total)
		assert.Equal(t, 2, rep.Report.Backward)
		require.Len(t, rep.Report.ViolationList, 1)
		assert.Equal(t, 156, *rep.Report.ViolationList[0].StartFrame)
		assert.Empty(t, rep.Report.CloudVideoURL)
	})

	t.Run("report without summary is malformed", func(t *testing.T) {
		_, err := DecodeMessage([]byte(`{"type":"report"}`))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrCodeMalformedMessage))
	})

	t.Run("unknown", func(t *testing.T) {
		msg, err := DecodeMessage([]byte(`{"type":"heartbeat"}`))
		require.NoError(t, err)
		assert.Equal(t, UnknownMessage{Type: "heartbeat"}, msg)
		assert.Equal(t, "unknown", Kind(msg))
	})

	t.Run("not json", func(t *testing.T) {
		_, err := DecodeMessage([]byte(`not json`))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrCodeMalformedMessage))
	})

	t.Run("bad base64 image", func(t *testing.T) {
		_, err := DecodeMessage([]byte(`{"image":"***"}`))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrCodeMalformedMessage))
	})
}

func TestEnvelopeBuilders(t *testing.T) {
	data, err := json.Marshal(FrameEnvelope(nil, nil, 3, 10))
	require.NoError(t, err)
	assert.JSONEq(t, `{"objects":[],"current_frame":3,"total_frames":10}`, string(data))

	data, err = json.Marshal(StatusEnvelope("Processing"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"status","message":"Processing"}`, string(data))

	data, err = json.Marshal(ErrorEnvelope("File not found"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"File not found"}`, string(data))

	msg, err := FrameEnvelope([]byte{1, 2, 3}, []Object{{ID: 1, IsWrongWay: true}}, 1, 2).Classify()
	require.NoError(t, err)
	frame := msg.(FrameMessage)
	assert.Equal(t, []byte{1, 2, 3}, frame.Image)
	assert.Len(t, frame.Objects, 1)
}
