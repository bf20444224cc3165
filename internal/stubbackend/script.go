package stubbackend

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/pkg/models"
)

// Script produces the payloads streamed for one connection.
type Script func(job string, direction models.Direction) ([][]byte, error)

// GeneratedScript simulates a short analysis: a status line, frames with a
// handful of tracked vehicles (one of them turning wrong-way half way
// through) and a final report.
func GeneratedScript(frames int) Script {
	if frames < 2 {
		frames = 2
	}
	return func(job string, direction models.Direction) ([][]byte, error) {
		majority := 0.0
		if direction != models.DirectionAuto && direction != "" {
			if v, err := strconv.ParseFloat(string(direction), 64); err == nil {
				majority = v
			}
		}

		var out [][]byte
		add := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			out = append(out, data)
			return nil
		}

		if err := add(models.StatusEnvelope("Loading model for " + job)); err != nil {
			return nil, err
		}

		wrongFrom := frames / 2
		var speeds float64
		for i := 1; i <= frames; i++ {
			objects := []models.Object{
				{ID: 1, Box: []float64{10, 10, 60, 40}, Direction: majority, Speed: 42},
				{ID: 2, Box: []float64{80, 12, 130, 44}, Direction: majority, Speed: 38},
			}
			if i >= wrongFrom {
				objects = append(objects, models.Object{
					ID:             3,
					Box:            []float64{150, 20, 190, 50},
					Direction:      math.Mod(majority+180, 360),
					IsWrongWay:     true,
					IsNewViolation: i == wrongFrom,
					Speed:          27,
				})
			}
			for _, o := range objects {
				speeds += o.Speed
			}
			env := models.FrameEnvelope([]byte(fmt.Sprintf("frame-%04d", i)), objects, i, frames)
			env.FrameWidth, env.FrameHeight = 640, 360
			env.MajorityDirection = &majority
			if err := add(env); err != nil {
				return nil, err
			}
		}

		fps := 30.0
		start := float64(wrongFrom) / fps
		end := float64(frames) / fps
		sf, ef := wrongFrom, frames
		report := &models.Report{
			Total:      3,
			Forward:    2,
			Backward:   1,
			Violations: 1,
			ViolationList: []models.Violation{
				{ID: 3, Type: "car", StartTime: &start, EndTime: &end, StartFrame: &sf, EndFrame: &ef},
			},
			AverageSpeed:   speeds / float64(2*frames+(frames-wrongFrom+1)),
			ClassBreakdown: map[string]int{"car": 2, "truck": 1},
			FullVideo:      "processed_" + job,
		}
		if err := add(models.ReportEnvelope(report)); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// RecordingScript streams the lines of a JSONL recording for every job.
func RecordingScript(path string) Script {
	return func(string, models.Direction) ([][]byte, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to read recording").
				WithDetail("path", path)
		}
		var out [][]byte
		sc := bufio.NewScanner(bytes.NewReader(data))
		sc.Buffer(make([]byte, 0, 64<<10), 64<<20)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line != "" {
				out = append(out, []byte(line))
			}
		}
		if err := sc.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to read recording")
		}
		return out, nil
	}
}

// FixedScript streams the same envelopes for every job.
func FixedScript(envs ...models.Envelope) Script {
	return func(string, models.Direction) ([][]byte, error) {
		out := make([][]byte, 0, len(envs))
		for _, env := range envs {
			data, err := json.Marshal(env)
			if err != nil {
				return nil, err
			}
			out = append(out, data)
		}
		return out, nil
	}
}
