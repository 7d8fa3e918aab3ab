package discord

import (
	"sync"

	"novabot/internal/command"

	"github.com/bwmarrin/discordgo"
)

// interactionAPI is the part of *discordgo.Session used to answer interactions.
type interactionAPI interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// slashInteraction adapts a slash command event to command.Interaction and
// tracks whether the interaction has been acknowledged.
type slashInteraction struct {
	api     interactionAPI
	event   *discordgo.InteractionCreate
	options command.Options

	mu       sync.Mutex
	replied  bool
	deferred bool
}

var _ command.Interaction = (*slashInteraction)(nil)

func newSlashInteraction(api interactionAPI, i *discordgo.InteractionCreate) *slashInteraction {
	return &slashInteraction{
		api:     api,
		event:   i,
		options: resolveOptions(i.ApplicationCommandData()),
	}
}

func resolveOptions(data discordgo.ApplicationCommandInteractionData) command.Options {
	out := make(command.Options, len(data.Options))
	for _, o := range data.Options {
		switch o.Type {
		case discordgo.ApplicationCommandOptionString:
			out[o.Name] = o.StringValue()
		case discordgo.ApplicationCommandOptionInteger:
			out[o.Name] = o.IntValue()
		case discordgo.ApplicationCommandOptionNumber:
			out[o.Name] = o.FloatValue()
		case discordgo.ApplicationCommandOptionBoolean:
			out[o.Name] = o.BoolValue()
		case discordgo.ApplicationCommandOptionUser:
			id, _ := o.Value.(string)
			user := &discordgo.User{ID: id}
			if data.Resolved != nil {
				if u, ok := data.Resolved.Users[id]; ok {
					user = u
				}
			}
			out[o.Name] = user
		case discordgo.ApplicationCommandOptionChannel,
			discordgo.ApplicationCommandOptionRole,
			discordgo.ApplicationCommandOptionMentionable:
			if id, ok := o.Value.(string); ok {
				out[o.Name] = id
			}
		}
	}
	return out
}

func (si *slashInteraction) user() *discordgo.User {
	if si.event.Member != nil && si.event.Member.User != nil {
		return si.event.Member.User
	}
	if si.event.User != nil {
		return si.event.User
	}
	return &discordgo.User{}
}

func (si *slashInteraction) CommandName() string      { return si.event.ApplicationCommandData().Name }
func (si *slashInteraction) UserID() string           { return si.user().ID }
func (si *slashInteraction) Username() string         { return si.user().Username }
func (si *slashInteraction) GuildID() string          { return si.event.GuildID }
func (si *slashInteraction) ChannelID() string        { return si.event.ChannelID }
func (si *slashInteraction) Options() command.Options { return si.options }

func (si *slashInteraction) Responded() bool {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.replied || si.deferred
}

func (si *slashInteraction) Defer(ephemeral bool) error {
	si.mu.Lock()
	defer si.mu.Unlock()

	if si.replied || si.deferred {
		return nil
	}
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := si.api.InteractionRespond(si.event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	})
	if err == nil {
		si.deferred = true
	}
	return err
}

// Reply sends the primary response. After Defer it fills in the deferred
// message; after a previous Reply it degrades to a follow-up.
func (si *slashInteraction) Reply(r command.Response) error {
	si.mu.Lock()
	defer si.mu.Unlock()

	switch {
	case si.replied:
		return si.followup(r)
	case si.deferred:
		content := r.Content
		embeds := r.Embeds
		edit := &discordgo.WebhookEdit{Content: &content, Embeds: &embeds}
		if r.Components != nil {
			edit.Components = &r.Components
		}
		_, err := si.api.InteractionResponseEdit(si.event.Interaction, edit)
		if err == nil {
			si.replied = true
		}
		return err
	}

	err := si.api.InteractionRespond(si.event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: responseData(r),
	})
	if err == nil {
		si.replied = true
	}
	return err
}

func responseData(r command.Response) *discordgo.InteractionResponseData {
	data := &discordgo.InteractionResponseData{Content: r.Content, Embeds: r.Embeds, Components: r.Components}
	if r.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return data
}

func (si *slashInteraction) Followup(r command.Response) error {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.followup(r)
}

func (si *slashInteraction) followup(r command.Response) error {
	return sendFollowup(si.api, si.event.Interaction, r)
}

func sendFollowup(api interactionAPI, i *discordgo.Interaction, r command.Response) error {
	params := &discordgo.WebhookParams{Content: r.Content, Embeds: r.Embeds, Components: r.Components}
	if r.Ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	_, err := api.FollowupMessageCreate(i, true, params)
	return err
}

// componentInteraction adapts a button press to command.ComponentInteraction.
type componentInteraction struct {
	api   interactionAPI
	event *discordgo.InteractionCreate

	mu      sync.Mutex
	replied bool
}

var _ command.ComponentInteraction = (*componentInteraction)(nil)

func newComponentInteraction(api interactionAPI, i *discordgo.InteractionCreate) *componentInteraction {
	return &componentInteraction{api: api, event: i}
}

func (ci *componentInteraction) user() *discordgo.User {
	if ci.event.Member != nil && ci.event.Member.User != nil {
		return ci.event.Member.User
	}
	if ci.event.User != nil {
		return ci.event.User
	}
	return &discordgo.User{}
}

func (ci *componentInteraction) CustomID() string  { return ci.event.MessageComponentData().CustomID }
func (ci *componentInteraction) UserID() string    { return ci.user().ID }
func (ci *componentInteraction) Username() string  { return ci.user().Username }
func (ci *componentInteraction) GuildID() string   { return ci.event.GuildID }
func (ci *componentInteraction) ChannelID() string { return ci.event.ChannelID }

func (ci *componentInteraction) Responded() bool {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	return ci.replied
}

// Update edits the message in place. Once acknowledged it edits through the
// interaction webhook instead.
func (ci *componentInteraction) Update(r command.Response) error {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	// A nil slice would be sent as null and leave the old buttons up.
	components := r.Components
	if components == nil {
		components = []discordgo.MessageComponent{}
	}

	if ci.replied {
		content := r.Content
		embeds := r.Embeds
		_, err := ci.api.InteractionResponseEdit(ci.event.Interaction, &discordgo.WebhookEdit{
			Content:    &content,
			Embeds:     &embeds,
			Components: &components,
		})
		return err
	}

	data := responseData(r)
	data.Components = components
	err := ci.api.InteractionRespond(ci.event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: data,
	})
	if err == nil {
		ci.replied = true
	}
	return err
}

func (ci *componentInteraction) Reply(r command.Response) error {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	if ci.replied {
		return sendFollowup(ci.api, ci.event.Interaction, r)
	}
	err := ci.api.InteractionRespond(ci.event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: responseData(r),
	})
	if err == nil {
		ci.replied = true
	}
	return err
}

func (ci *componentInteraction) Followup(r command.Response) error {
	return sendFollowup(ci.api, ci.event.Interaction, r)
}
