package command

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"novabot/internal/gate"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Outcome is the terminal state of one dispatch.
type Outcome int

const (
	Dropped Outcome = iota
	Denied
	Throttled
	Responded
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Dropped:
		return "dropped"
	case Denied:
		return "denied"
	case Throttled:
		return "throttled"
	case Responded:
		return "responded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

const (
	maintenanceMessage = "The bot is currently in maintenance mode."
	ownerOnlyMessage   = "This command can only be used by the bot owner."
	failureMessage     = "An error occurred while processing your interaction."
)

// FaultReporter receives handler faults, e.g. to forward them to Sentry. It
// returns an error code the user can quote, or "".
type FaultReporter interface {
	ReportFault(err error, tags map[string]string) string
}

// Dispatcher resolves, gates, throttles and runs commands.
type Dispatcher struct {
	registry  *Registry
	access    *gate.AccessState
	cooldowns *gate.Cooldowns

	timeout  time.Duration
	color    int
	reporter FaultReporter
}

type DispatcherOption func(*Dispatcher)

// WithTimeout bounds each handler run.
func WithTimeout(d time.Duration) DispatcherOption {
	return func(dp *Dispatcher) { dp.timeout = d }
}

func WithEmbedColor(color int) DispatcherOption {
	return func(dp *Dispatcher) { dp.color = color }
}

func WithFaultReporter(r FaultReporter) DispatcherOption {
	return func(dp *Dispatcher) { dp.reporter = r }
}

func NewDispatcher(reg *Registry, access *gate.AccessState, cooldowns *gate.Cooldowns, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry:  reg,
		access:    access,
		cooldowns: cooldowns,
		timeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch handles one interaction to completion. It never panics and never
// returns handler errors; the outcome says how it ended.
func (d *Dispatcher) Dispatch(ctx context.Context, in Interaction) Outcome {
	name := in.CommandName()
	logger := log.With().
		Str("command", name).
		Str("user", in.UserID()).
		Str("guild", in.GuildID()).
		Logger()

	desc, ok := d.registry.Get(name)
	if !ok {
		logger.Warn().Msg("dropping interaction for unknown command")
		return Dropped
	}

	if decision := d.access.Evaluate(in.UserID(), desc.Category); !decision.Allowed {
		logger.Debug().Stringer("reason", decision.Reason).Msg("access denied")
		d.sendNotice(logger, in, d.denialText(decision))
		return Denied
	}

	if res := d.cooldowns.Check(name, in.UserID(), desc.Cooldown); !res.Allowed {
		logger.Debug().Time("retry_at", res.RetryAt).Msg("throttled")
		d.sendNotice(logger, in, fmt.Sprintf(
			"Please wait, you are on a cooldown for `%s`. You can use it again <t:%d:R>.",
			name, res.RetryAt.Unix(),
		))
		return Throttled
	}

	hctx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	err := d.run(hctx, desc, in)
	if err == nil {
		logger.Info().Dur("took", time.Since(start)).Msg("command executed")
		return Responded
	}

	logger.Error().Err(err).Msg("command failed")
	d.fail(logger, in, err, map[string]string{
		"command": name,
		"user":    in.UserID(),
		"guild":   in.GuildID(),
	})
	return Failed
}

// responder is the reply half shared by commands and component presses.
type responder interface {
	Reply(r Response) error
	Followup(r Response) error
	Responded() bool
}

// fail reports err and tells the user, as a follow-up if a reply went out.
func (d *Dispatcher) fail(logger zerolog.Logger, in responder, err error, tags map[string]string) {
	text := failureMessage
	if d.reporter != nil {
		if code := d.reporter.ReportFault(err, tags); code != "" {
			text += fmt.Sprintf("\nError code: `%s`", code)
		}
	}

	failure := d.notice(text)
	if in.Responded() {
		err = in.Followup(failure)
	} else {
		err = in.Reply(failure)
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to send failure response")
	}
}

// run invokes the handler, converting a panic into an error.
func (d *Dispatcher) run(ctx context.Context, desc *Descriptor, in Interaction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v\n%s", desc.Name, r, debug.Stack())
		}
	}()

	c := &Context{Interaction: in, Descriptor: desc, Color: d.color}
	return desc.Handler.Handle(ctx, c)
}

func (d *Dispatcher) denialText(decision gate.Decision) string {
	switch decision.Reason {
	case gate.MaintenanceMode:
		if decision.Message != "" {
			return maintenanceMessage + "\nReason: " + decision.Message
		}
		return maintenanceMessage
	case gate.OwnerOnly:
		return ownerOnlyMessage
	}
	return "You cannot use this command."
}

func (d *Dispatcher) notice(text string) Response {
	return Response{
		Embeds:    []*discordgo.MessageEmbed{{Description: text, Color: d.color}},
		Ephemeral: true,
	}
}

func (d *Dispatcher) sendNotice(logger zerolog.Logger, in responder, text string) {
	if err := in.Reply(d.notice(text)); err != nil {
		logger.Error().Err(err).Msg("failed to send response")
	}
}
