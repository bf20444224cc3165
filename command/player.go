package command

import (
	"context"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/traffisense/core/config"
	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/logging"
)

// PlayerCommand plays a recording in an external video player. Arguments
// may contain {seek} (seconds, two decimals) and {url}.
type PlayerCommand struct {
	Name string
	Args []string

	builder *SafeBuilder
	log     *logrus.Entry
}

// NewPlayerCommand returns a player using the configured command.
func NewPlayerCommand(cfg config.PlayerConfig, builder *SafeBuilder) *PlayerCommand {
	if builder == nil {
		builder = NewSafeBuilder()
	}
	name, args := cfg.Command, cfg.Args
	if name == "" {
		name, args = "mpv", []string{"--start={seek}", "{url}"}
	}
	return &PlayerCommand{
		Name:    name,
		Args:    args,
		builder: builder,
		log:     logging.NewLogger("player"),
	}
}

// Expand fills in the argument template for one playback. If the template
// never mentions {url}, the URL is appended.
func (p *PlayerCommand) Expand(url string, position float64) []string {
	seek := strconv.FormatFloat(position, 'f', 2, 64)
	out := make([]string, 0, len(p.Args)+1)
	sawURL := false
	for _, a := range p.Args {
		if strings.Contains(a, "{url}") {
			sawURL = true
		}
		a = strings.ReplaceAll(a, "{seek}", seek)
		a = strings.ReplaceAll(a, "{url}", url)
		out = append(out, a)
	}
	if !sawURL {
		out = append(out, url)
	}
	return out
}

// Play launches the player and returns once it started. The player keeps
// running after Play returns.
func (p *PlayerCommand) Play(ctx context.Context, url string, position float64) error {
	if err := p.builder.Validate("mediaURL", url); err != nil {
		return errors.InvalidInput(err.Error())
	}
	if position < 0 {
		position = 0
	}
	if _, err := p.builder.Resolve(p.Name); err != nil {
		return err
	}

	cmd, err := p.builder.Build(ctx, p.Name, p.Expand(url, position)...)
	if err != nil {
		return err
	}
	cmd = cmd.Detached()

	log := p.log.WithField("command", cmd.String())
	if err := cmd.Start(func(err error) {
		if err != nil {
			log.WithError(err).Debug("Player exited")
		}
	}); err != nil {
		return err
	}
	log.Info("Player started")
	return nil
}
